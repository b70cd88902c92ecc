// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/nbbadge/internal/badge"
	"github.com/starford/nbbadge/internal/inject"
	"github.com/starford/nbbadge/internal/mcpserver"
	"github.com/starford/nbbadge/internal/storage"
	"github.com/starford/nbbadge/internal/watch"
)

type components struct {
	logger   *slog.Logger
	store    *storage.FS
	injector *inject.Injector
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func (a *application) setup() (*components, error) {
	cfg := a.config

	logger := newLogger(a.logOut, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("root_dir", cfg.Inject.RootDir),
		slog.String("repo_base_url", cfg.Inject.RepoBaseURL),
		slog.Bool("recursive", cfg.Inject.Recursive),
		slog.Int("workers", cfg.Inject.Workers),
		slog.Bool("keep_going", cfg.Inject.KeepGoing),
		slog.String("detector", cfg.Inject.Detector),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Inject.RootDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	detector, err := badge.DetectorFor(cfg.Inject.Detector)
	if err != nil {
		return nil, err
	}

	injector := inject.New(store, badge.NewBuilder(cfg.Inject.RepoBaseURL),
		inject.WithDetector(detector),
		inject.WithLogger(logger))

	return &components{logger: logger, store: store, injector: injector}, nil
}

// Run performs one badge pass over the configured root.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.setup()
	if err != nil {
		return err
	}

	if _, err := c.injector.Inject(ctx, app.config.Inject.Options()); err != nil {
		return err
	}
	return nil
}

// Watch performs an initial pass and then keeps badges up to date until
// the context is cancelled or the process receives SIGINT/SIGTERM.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.setup()
	if err != nil {
		return err
	}
	cfg := app.config
	logger := c.logger

	if _, err := c.injector.Inject(ctx, cfg.Inject.Options()); err != nil {
		logger.Warn("initial pass failed", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return watch.Watch(gCtx, c.injector, c.store, watch.Options{
			Recursive: cfg.Inject.Recursive,
			Debounce:  cfg.Watch.Debounce,
			DryRun:    cfg.Inject.DryRun,
		}, logger, nil)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watcher error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped")
	return nil
}

// ServeMCP exposes the injector as MCP tools on stdin/stdout. Logs go to
// stderr unless another writer was given, since stdout carries the protocol.
func ServeMCP(_ context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.setup()
	if err != nil {
		return err
	}

	srv := mcpserver.New(c.injector, c.store, app.config.Inject.Options(), app.version)
	c.logger.Info("MCP server starting", slog.String("transport", "stdio"))
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
