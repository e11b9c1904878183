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

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/coverage"
	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/importer"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if app.mcpMode {
		return runMCP(cfg, logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("import_dir", cfg.Import.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the point archive.
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer db.Close()

	// SSE broker first: the engine publishes into it.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Live engine over the archive.
	eng := engine.New(cfg.Engine.Options(), broker.PublishEngineEvent)
	defer eng.Close()

	// Initial sync: replay the archive into the engine.
	if err := loadArchive(db, eng, cfg.Coverage.PageSize, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	queries := engine.NewQueryCache(cfg.Engine.QueryCacheSize)
	blobs := engine.NewBlobCache(cfg.Engine.BlobBudgetBytes)

	apiRouter := api.NewRouter(api.NewHandler(eng, db, queries, blobs), broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
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

	// Batch-file importer.
	if cfg.Import.Dir != "" {
		if err := os.MkdirAll(cfg.Import.Dir, 0o755); err != nil {
			return fmt.Errorf("create import dir: %w", err)
		}
		g.Go(func() error {
			return importer.Watch(gCtx, eng, db, cfg.Import.Dir, logger)
		})
	}

	// Coverage prefetch into its own engine.
	if cfg.Coverage.Enabled {
		cov := coverage.New(db, cfg.Engine.Options(), cfg.Coverage.PageSize, logger)
		defer cov.Close()
		g.Go(func() error {
			if err := cov.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("coverage prefetch: %w", err)
			}
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

// runMCP serves the MCP tools over stdio. Logs go to stderr so stdout stays
// clean for the protocol.
func runMCP(cfg *Config, logger *slog.Logger) error {
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer db.Close()

	eng := engine.New(cfg.Engine.Options(), nil)
	defer eng.Close()

	if err := loadArchive(db, eng, cfg.Coverage.PageSize, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(eng, db).ServeStdio()
}

// loadArchive replays the whole archive into an engine in pages.
func loadArchive(db store.Archive, eng *engine.Engine, pageSize int, logger *slog.Logger) error {
	if pageSize <= 0 {
		pageSize = coverage.DefaultPageSize
	}
	offset := 0
	total := 0
	for {
		page, err := db.ListPage(pageSize, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		res := eng.Merge(page)
		total += res.Inserted + res.Updated
		offset += len(page)
		if len(page) < pageSize {
			break
		}
	}
	logger.Info("archive loaded", slog.Int("points", total))
	return nil
}
