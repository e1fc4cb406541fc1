// Package config provides configuration loading and management for
// Flowplan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Flowplan configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	NATS   NATSConfig   `yaml:"nats"`
	Flows  FlowsConfig  `yaml:"flows"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address for the HTTP API
	Addr string `yaml:"addr"`
	// ReadTimeout bounds how long reading a request may take
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds how long writing a response may take
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// StoreDir is the JetStream storage directory for the embedded server
	StoreDir string `yaml:"store_dir"`
}

// FlowsConfig configures flow document discovery and watching
type FlowsConfig struct {
	// Paths are glob patterns naming directories that hold flow documents
	Paths []string `yaml:"paths"`
	// Extensions lists the document file extensions to pick up
	Extensions []string `yaml:"extensions"`
	// DebounceDelay is how long the watcher waits for more changes
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":3001",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Flows: FlowsConfig{
			Extensions:    []string{".yaml", ".yml"},
			DebounceDelay: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Flows.DebounceDelay < 0 {
		return fmt.Errorf("flows.debounce_delay must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ReadTimeout != 0 {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}
	if other.Server.WriteTimeout != 0 {
		c.Server.WriteTimeout = other.Server.WriteTimeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.StoreDir != "" {
		c.NATS.StoreDir = other.NATS.StoreDir
	}

	// Flows
	if len(other.Flows.Paths) > 0 {
		c.Flows.Paths = other.Flows.Paths
	}
	if len(other.Flows.Extensions) > 0 {
		c.Flows.Extensions = other.Flows.Extensions
	}
	if other.Flows.DebounceDelay != 0 {
		c.Flows.DebounceDelay = other.Flows.DebounceDelay
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
