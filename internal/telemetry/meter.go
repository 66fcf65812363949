// Package telemetry wires OpenTelemetry metrics for addons, jobs and the hook API.
package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/omprussia/weblate-omp/internal/config"
)

// ServiceNamespace groups this service with the Weblate deployment it serves
const ServiceNamespace = "weblate"

// newMeterProvider returns a no-op provider unless cfg enables export.
func newMeterProvider(ctx context.Context, cfg *config.TelemetryConfig, version string) (metric.MeterProvider, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(resourceAttributes(cfg, version)...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	endpoint := cmp.Or(cfg.Endpoint, config.DefaultTelemetryEndpoint)
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if interval := cfg.GetInterval(); interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized",
		"endpoint", endpoint,
		"insecure", cfg.Insecure,
		"interval", cfg.Interval,
	)
	return mp, nil
}

// resourceAttributes identifies the process. Configured attributes come
// last in key order and may not override the service identity.
func resourceAttributes(cfg *config.TelemetryConfig, version string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cmp.Or(cfg.ServiceName, config.DefaultTelemetryService)),
		semconv.ServiceVersion(cmp.Or(version, "unknown")),
		semconv.ServiceNamespace(ServiceNamespace),
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Attributes)) {
		switch attribute.Key(k) {
		case semconv.ServiceNameKey, semconv.ServiceVersionKey, semconv.ServiceNamespaceKey:
			continue
		}
		attrs = append(attrs, attribute.String(k, cfg.Attributes[k]))
	}
	return attrs
}
