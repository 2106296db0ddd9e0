// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/onepage/internal/api"
	"github.com/starford/onepage/internal/cache"
	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/mcpserver"
	"github.com/starford/onepage/internal/projects"
	"github.com/starford/onepage/internal/sse"
	"github.com/starford/onepage/internal/store"
	"github.com/starford/onepage/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app.output, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	deps, err := openServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	// SSE broker receives editor events and project changes.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	hub := editor.NewHub(deps.svc, logger,
		editor.WithConfig(cfg.Editor.EditorOptions()),
		editor.WithEmitter(broker),
	)

	auth := api.Auth{Enabled: cfg.Auth.AuthEnabled(), Tokens: cfg.Auth.Tokens}
	apiRouter := api.NewRouter(deps.svc, hub, auth, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORS(cfg.CORS.AllowedOrigins))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := deps.svc.SlugAvailable(req.Context(), "health", ""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Follow hand edits of the file store.
	if fs, ok := deps.store.(*store.FS); ok {
		g.Go(func() error {
			return watcher.Watch(gCtx, fs, watcher.DefaultSettle, logger, func(kind, id, slug, prevSlug string) {
				deps.svc.Invalidate(gCtx, slug)
				if prevSlug != "" {
					deps.svc.Invalidate(gCtx, prevSlug)
				}
				broker.PublishProjectEvent(kind, id, slug)
			})
		})
	}

	// Warm the page cache with the most recently edited projects.
	if cfg.Cache.WarmLimit > 0 && cfg.Cache.Backend != string(cache.BackendDisabled) {
		g.Go(func() error {
			n, err := deps.svc.Warm(gCtx, cfg.Cache.WarmLimit)
			if err != nil {
				logger.Warn("cache warm failed", slog.String("error", err.Error()))
				return nil
			}
			logger.Info("cache warmed", slog.Int("projects", n))
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Live editors write their last changes before the store closes.
		if err := hub.Shutdown(shutdownCtx); err != nil {
			logger.Error("editor shutdown error", slog.String("error", err.Error()))
		}

		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
// Logs go to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.output, cfg.App.LogLevel)
	slog.SetDefault(logger)

	deps, err := openServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	hub := editor.NewHub(deps.svc, logger, editor.WithConfig(cfg.Editor.EditorOptions()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := hub.Shutdown(shutdownCtx); err != nil {
			logger.Error("editor shutdown error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting", slog.String("user", cfg.MCP.User))
	return mcpserver.New(deps.svc, hub, cfg.MCP.User).ServeStdio()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// services are the collaborators shared by the HTTP and MCP entry points.
type services struct {
	store  store.Store
	cache  cache.Cache
	svc    *projects.Service
	logger *slog.Logger
}

func openServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*services, error) {
	if cfg.Storage.Backend == string(store.BackendFS) {
		if err := os.MkdirAll(cfg.Storage.FSPath, 0o755); err != nil {
			return nil, fmt.Errorf("create pages dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Storage.Options())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c, err := cache.Open(ctx, cfg.Cache.Options())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	svc := projects.NewService(st, c, logger, projects.WithMaxPerOwner(cfg.Projects.MaxPerOwner))
	return &services{store: st, cache: c, svc: svc, logger: logger}, nil
}

func (d *services) close() {
	if err := d.cache.Close(); err != nil {
		d.logger.Warn("cache close failed", slog.String("error", err.Error()))
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("store close failed", slog.String("error", err.Error()))
	}
}
