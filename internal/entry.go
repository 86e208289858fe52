// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/api"
	"github.com/starford/gebo/internal/audit"
	"github.com/starford/gebo/internal/graphstore"
	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/sse"
	"github.com/starford/gebo/internal/storage"
)

func buildApp(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// openWorkspace creates the workspace directory if needed and opens the
// storage provider and, when configured, the audit log.
func openWorkspace(cfg *Config) (storage.Provider, *audit.Log, error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	var aud *audit.Log
	if cfg.Audit.Enabled() {
		aud, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init audit log: %w", err)
		}
	}
	return store, aud, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("audit_path", cfg.Audit.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, aud, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	if aud != nil {
		defer aud.Close()
	}

	mgr := graphstore.NewManager(store, recorder(aud), logger)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(mgr, aud, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start workspace watcher with SSE callback.
	g.Go(func() error {
		err := graphstore.Watch(gCtx, cfg.Workspace.Path, logger, func(kind, path string) {
			broker.PublishGraphEvent(kind, path)
		})
		if err != nil {
			logger.Warn("workspace watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdin/stdout. Stdout carries the MCP
// protocol, so logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, aud, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	if aud != nil {
		defer aud.Close()
	}

	mgr := graphstore.NewManager(store, recorder(aud), logger)
	srv := mcpserver.New(mgr, aud)

	logger.Info("MCP server starting on stdio",
		slog.String("workspace_path", cfg.Workspace.Path))

	return srv.ServeStdio()
}

// recorder converts a possibly-nil *audit.Log into a graphstore.Recorder.
// A typed nil inside a non-nil interface would defeat the manager's nil check.
func recorder(aud *audit.Log) graphstore.Recorder {
	if aud == nil {
		return nil
	}
	return aud
}
