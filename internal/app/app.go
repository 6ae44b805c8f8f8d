// Package app wires the stores, caches, venue clients and editorial
// collaborators together and runs the jobs the configured mode selects.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/marketwire/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and runs the mode's jobs. With once set every
// job runs a single time and Run returns; otherwise Run blocks until ctx is
// cancelled.
func (a *App) Run(ctx context.Context, once bool) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("once", once),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	sched, err := a.scheduler(deps)
	if err != nil {
		return err
	}
	if once {
		return sched.RunOnce(ctx)
	}
	return sched.Run(ctx)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
