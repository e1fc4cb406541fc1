// Package server exposes the flow store and transformers over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/flowplan/config"
	"github.com/c360studio/flowplan/storage"
	"github.com/c360studio/flowplan/transform"
)

// Server serves the flow HTTP API.
type Server struct {
	store    *storage.Store
	registry *transform.Registry
	metrics  *Metrics
	logger   *slog.Logger

	httpServer *http.Server
}

// New creates a server over the given store and transformer registry.
func New(cfg config.ServerConfig, store *storage.Store, registry *transform.Registry, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		store:    store,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Handler builds the route table. Exposed separately so tests can
// drive it with httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/flows", s.handleFlowCollection)
	mux.HandleFunc("/api/flows/", s.handleFlowPath)
	mux.HandleFunc("/api/transform", s.handleTransform)
	mux.HandleFunc("/api/workspaces", s.handleWorkspaces)

	return s.instrument(mux)
}

// instrument wraps the mux with request counting and access logging.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.RequestsTotal.WithLabelValues(r.Method, routeLabel(r.URL.Path)).Inc()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// routeLabel collapses paths with embedded IDs so metric cardinality
// stays bounded.
func routeLabel(path string) string {
	switch {
	case path == "/health" || path == "/metrics" ||
		path == "/api/flows" || path == "/api/transform" ||
		path == "/api/workspaces":
		return path
	case len(path) > len("/api/flows/") && path[:len("/api/flows/")] == "/api/flows/":
		return "/api/flows/{id}"
	default:
		return "other"
	}
}

// Start begins serving HTTP requests. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
