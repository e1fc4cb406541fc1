package main

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/c360studio/flowplan/config"
	"github.com/c360studio/flowplan/workspace"
)

func TestAppStartStop(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.NATS.StoreDir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	app := NewApp(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("failed to start app: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve() }()

	if app.natsConn == nil {
		t.Error("NATS connection not initialized")
	}
	if app.js == nil {
		t.Error("JetStream not initialized")
	}
	if app.store == nil {
		t.Fatal("Store not initialized")
	}
	if app.embeddedServer == nil {
		t.Error("Embedded NATS server not started")
	}

	app.Shutdown(5 * time.Second)

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Serve did not return after shutdown")
	}
}

func TestBuildRegistry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	registry := buildRegistry(logger)

	ids := registry.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 workspaces, got %d: %v", len(ids), ids)
	}

	for _, id := range []string{workspace.IDProtocols, workspace.IDActions} {
		if _, ok := registry.Get(id); !ok {
			t.Errorf("workspace %q not registered", id)
		}
	}
}
