package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/c360studio/flowplan/config"
	"github.com/c360studio/flowplan/server"
	"github.com/c360studio/flowplan/storage"
	"github.com/c360studio/flowplan/transform"
	"github.com/c360studio/flowplan/transform/action"
	"github.com/c360studio/flowplan/transform/protocol"
	"github.com/c360studio/flowplan/workspace"
)

// App wires together NATS, storage, the transformer registry and the
// HTTP server.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *natsserver.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Storage
	store *storage.Store

	// Compilation
	registry *transform.Registry

	// HTTP
	httpServer *server.Server
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: buildRegistry(logger),
	}
}

// buildRegistry registers the built-in workspace transformers.
func buildRegistry(logger *slog.Logger) *transform.Registry {
	return transform.NewRegistry(map[string]transform.Transformer{
		workspace.IDProtocols: protocol.New(workspace.Protocols(), logger),
		workspace.IDActions:   action.New(workspace.Actions(), logger),
	})
}

// Start initializes all components. Serving begins with Serve.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	store, err := storage.NewStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.store = store

	a.httpServer = server.New(a.cfg.Server, a.store, a.registry, server.NewMetrics(), a.logger)

	a.logger.Info("Flowplan ready",
		"version", Version,
		"addr", a.cfg.Server.Addr,
		"workspaces", a.registry.IDs())

	return nil
}

// Serve blocks on the HTTP listener until it stops.
func (a *App) Serve() error {
	return a.httpServer.Start()
}

func (a *App) startNATS() error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		a.logger.Info("Starting embedded NATS server")
		opts := &natsserver.Options{
			Port:      -1, // Random available port
			JetStream: true,
			StoreDir:  a.cfg.NATS.StoreDir,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := natsserver.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js

	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Warn("HTTP shutdown error", "error", err)
		}
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("NATS drain error", "error", err)
		}
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}

	a.logger.Info("Shutdown complete")
}

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the flow store and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(*logLevel, "")
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			logger = setupLogger(*logLevel, cfg.Log.Level)

			app := NewApp(cfg, logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := app.Start(ctx); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- app.Serve() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("Received signal", "signal", sig.String())
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			app.Shutdown(10 * time.Second)
			return nil
		},
	}
}
