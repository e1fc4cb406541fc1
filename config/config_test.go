package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":3001" {
		t.Errorf("expected addr :3001, got %s", cfg.Server.Addr)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if cfg.Flows.DebounceDelay != 500*time.Millisecond {
		t.Errorf("expected debounce 500ms, got %v", cfg.Flows.DebounceDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty addr")
	}

	cfg = DefaultConfig()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{
		NATS: NATSConfig{URL: "nats://localhost:4222"},
		Log:  LogConfig{Level: "debug"},
	}

	base.Merge(other)

	if base.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected merged NATS URL, got %s", base.NATS.URL)
	}
	if base.NATS.Embedded {
		t.Error("an external NATS URL should disable the embedded server")
	}
	if base.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", base.Log.Level)
	}
	// Untouched fields keep their defaults
	if base.Server.Addr != ":3001" {
		t.Errorf("expected default addr preserved, got %s", base.Server.Addr)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":9999"
	cfg.Flows.Paths = []string{"./flows/*"}

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Server.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %s", loaded.Server.Addr)
	}
	if len(loaded.Flows.Paths) != 1 || loaded.Flows.Paths[0] != "./flows/*" {
		t.Errorf("unexpected flow paths: %v", loaded.Flows.Paths)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	// The loader distinguishes a missing file from a broken one, so the
	// wrapped error must still match os.ErrNotExist.
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
