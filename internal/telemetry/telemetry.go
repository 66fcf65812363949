package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/omprussia/weblate-omp/internal/config"
)

// Telemetry owns the meter provider and the instruments built on it.
type Telemetry struct {
	meterProvider metric.MeterProvider
	metrics       *Metrics
	hooks         *HookMetrics
}

// New creates the meter provider described by cfg. A nil or disabled config
// yields a no-op provider. The caller must call Shutdown on exit.
func New(ctx context.Context, cfg *config.TelemetryConfig, version string) (*Telemetry, error) {
	mp, err := newMeterProvider(ctx, cfg, version)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	metrics, err := NewMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	hooks, err := NewHookMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create hook metrics: %w", err)
	}

	return &Telemetry{meterProvider: mp, metrics: metrics, hooks: hooks}, nil
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Metrics returns the addon and job instruments
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// HookMetrics returns the hook API instruments
func (t *Telemetry) HookMetrics() *HookMetrics {
	return t.hooks
}

// Shutdown flushes pending metrics. Safe to call more than once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	mp, ok := t.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.Shutdown(ctx); err != nil && !errors.Is(err, sdkmetric.ErrReaderShutdown) {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	slog.Debug("Meter provider shutdown complete")
	return nil
}
