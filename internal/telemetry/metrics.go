package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// AddonMetricsMeterName is the name used for the addon and job meter
	AddonMetricsMeterName = "github.com/omprussia/weblate-omp/addons"
)

// Metrics holds the instruments recorded by addons, jobs and the translation memory.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	translationsRecreated metric.Int64Counter
	jobsScheduled         metric.Int64Counter
	jobsProcessed         metric.Int64Counter
	jobDuration           metric.Float64Histogram
	memoryLockRetries     metric.Int64Counter
	addonEvents           metric.Int64Counter
}

// NewMetrics creates the instruments on the given provider.
// If provider is nil, it returns nil (no-op metrics).
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(AddonMetricsMeterName)

	translationsRecreated, err := meter.Int64Counter(
		"weblate_omp_translations_recreated_total",
		metric.WithDescription("Translations removed and recreated from a changed template"),
		metric.WithUnit("{translation}"),
	)
	if err != nil {
		return nil, err
	}

	jobsScheduled, err := meter.Int64Counter(
		"weblate_omp_jobs_scheduled_total",
		metric.WithDescription("Background jobs handed to the broker"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	jobsProcessed, err := meter.Int64Counter(
		"weblate_omp_jobs_processed_total",
		metric.WithDescription("Background jobs executed by workers"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"weblate_omp_job_duration_seconds",
		metric.WithDescription("Duration of background jobs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	memoryLockRetries, err := meter.Int64Counter(
		"weblate_omp_memory_lock_retries_total",
		metric.WithDescription("Translation memory write attempts that found the index locked"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	addonEvents, err := meter.Int64Counter(
		"weblate_omp_addon_events_total",
		metric.WithDescription("Addon event handler invocations"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		translationsRecreated: translationsRecreated,
		jobsScheduled:         jobsScheduled,
		jobsProcessed:         jobsProcessed,
		jobDuration:           jobDuration,
		memoryLockRetries:     memoryLockRetries,
		addonEvents:           addonEvents,
	}, nil
}

// RecordTranslationsRecreated adds n recreated translations for a component
func (m *Metrics) RecordTranslationsRecreated(ctx context.Context, component string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.translationsRecreated.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("component", component)))
}

// RecordJobScheduled counts a job handed to the broker
func (m *Metrics) RecordJobScheduled(ctx context.Context, task string) {
	if m == nil {
		return
	}
	m.jobsScheduled.Add(ctx, 1, metric.WithAttributes(attribute.String("task", task)))
}

// RecordJobProcessed counts a finished job and its duration
func (m *Metrics) RecordJobProcessed(ctx context.Context, task string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("task", task),
		attribute.Bool("success", success),
	)
	m.jobsProcessed.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMemoryLockRetry counts a write attempt that found the memory locked
func (m *Metrics) RecordMemoryLockRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.memoryLockRetries.Add(ctx, 1)
}

// RecordAddonEvent counts one addon handler invocation
func (m *Metrics) RecordAddonEvent(ctx context.Context, addon, event string, success bool) {
	if m == nil {
		return
	}
	m.addonEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("addon", addon),
		attribute.String("event", event),
		attribute.Bool("success", success),
	))
}
