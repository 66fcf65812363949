// Package app wires the addon runtime and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/tasks"
)

// App runs the HTTP hooks, the job workers and the daily scheduler
type App struct {
	config     *config.Config
	components *Components
	httpServer *http.Server

	ctx        context.Context
	cancelFunc context.CancelFunc
	workers    chan error
	started    atomic.Bool
}

// Start starts the workers and the scheduler in the background, then
// serves HTTP until the server stops.
func (app *App) Start() error {
	app.started.Store(true)
	go func() {
		err := app.components.Pool.Run(app.ctx)
		if err != nil && !errors.Is(err, tasks.ErrBrokerClosed) && !errors.Is(err, context.Canceled) {
			slog.Error("Job workers failed", "error", err)
		}
		app.workers <- err
	}()

	go func() {
		if err := app.components.Scheduler.Start(app.ctx); err != nil {
			slog.Error("Daily scheduler failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts down the HTTP server, stops the scheduler and the workers and
// releases the components.
func (app *App) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	if err := app.components.Scheduler.Stop(); err != nil {
		slog.Error("Failed to stop daily scheduler", "error", err)
	}

	app.cancelFunc()
	if app.started.Load() {
		select {
		case <-app.workers:
		case <-shutdownCtx.Done():
			slog.Warn("Job workers did not stop in time")
		}
	}

	if err := app.components.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	slog.Info("Server shutdown complete")
	return errors.Join(errs...)
}

// GetConfig returns the application configuration
func (app *App) GetConfig() *config.Config {
	return app.config
}

// Components returns the wired components
func (app *App) Components() *Components {
	return app.components
}

// GetHTTPServer returns the HTTP server
func (app *App) GetHTTPServer() *http.Server {
	return app.httpServer
}
