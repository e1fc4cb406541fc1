// Package main provides the flowplan binary entry point.
// Flowplan compiles flow diagrams written in compact block notation
// into PlanSpace planning documents, and serves them over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/flowplan/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "flowplan"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Flow diagram to PlanSpace compiler",
		Long: `Flowplan compiles flow diagrams written in compact block notation
into PlanSpace planning documents.

It provides:
- Deterministic compilation of protocol and action flows
- A flow store backed by NATS JetStream KV
- An HTTP API for creating, transforming and retrieving flows
- Live recompilation of watched flow documents`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(compileCmd(&configPath, &logLevel))
	cmd.AddCommand(validateCmd(&logLevel))
	cmd.AddCommand(workspacesCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setupLogger configures the process-wide logger and returns it.
// An explicit --log-level flag overrides the configured level.
func setupLogger(flagLevel, cfgLevel string) *slog.Logger {
	chosen := cfgLevel
	if flagLevel != "" {
		chosen = flagLevel
	}

	level := slog.LevelInfo
	switch strings.ToLower(chosen) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads configuration from an explicit path or the layered
// default locations.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		fileCfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg := config.DefaultConfig()
		cfg.Merge(fileCfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
