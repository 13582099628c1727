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

	"github.com/starford/coursemark/internal/api"
	"github.com/starford/coursemark/internal/export"
	"github.com/starford/coursemark/internal/exportservice"
	"github.com/starford/coursemark/internal/index"
	"github.com/starford/coursemark/internal/media"
	"github.com/starford/coursemark/internal/mcpserver"
	"github.com/starford/coursemark/internal/render"
	"github.com/starford/coursemark/internal/sse"
	"github.com/starford/coursemark/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger initializes the structured JSON logger and makes it the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) exporter(logger *slog.Logger) *export.Exporter {
	return export.New(render.LiaScript{}, export.WithLogger(logger))
}

func (a *application) archiver(logger *slog.Logger) *media.Archiver {
	fetcher := media.NewHTTPFetcher()
	if a.config.Media.MaxFileSize > 0 {
		fetcher.MaxFileSize = a.config.Media.MaxFileSize
	}
	return media.NewArchiver(fetcher,
		media.WithWorkers(a.config.Media.Workers),
		media.WithLogger(logger))
}

// service opens the library, output directory and export index. The caller
// closes the returned DB.
func (a *application) service(logger *slog.Logger) (*exportservice.Service, *index.DB, error) {
	cfg := a.config

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create library dir: %w", err)
	}
	library, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init library: %w", err)
	}

	svcOpts := []exportservice.Option{
		exportservice.WithArchiver(a.archiver(logger)),
		exportservice.WithWorkers(cfg.Export.Workers),
		exportservice.WithLogger(logger),
	}
	if cfg.Output.Path != "" {
		if err := os.MkdirAll(cfg.Output.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output dir: %w", err)
		}
		out, err := storage.NewFS(cfg.Output.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init output: %w", err)
		}
		svcOpts = append(svcOpts, exportservice.WithOutput(out))
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	svc := exportservice.NewService(library, db, a.exporter(logger), cfg.Export.Options, svcOpts...)
	return svc, db, nil
}

func initialSync(ctx context.Context, syncer *index.Syncer, logger *slog.Logger, cb index.EventCallback) {
	stats, err := syncer.Sync(ctx, cb)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("initial sync done",
		slog.Int("exported", stats.Exported),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed),
		slog.Int("removed", stats.Removed))
}

// Run starts the HTTP server, the SSE broker and the library watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, db, err := app.service(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	syncer := svc.Syncer()
	initialSync(ctx, syncer, logger, nil)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api (includes /api/events).
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start library watcher with SSE callback.
	g.Go(func() error {
		if err := syncer.Watch(gCtx, cfg.Library.Path, broker.PublishExportEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout while the library watcher keeps
// the export index current. Logs must not go to stdout here.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	svc, db, err := app.service(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	syncer := svc.Syncer()
	initialSync(ctx, syncer, logger, nil)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := syncer.Watch(watchCtx, app.config.Library.Path, nil); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	return mcpserver.New(svc).ServeStdio()
}
