package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HookMeterName is the scope of the hook API instruments
const HookMeterName = "github.com/omprussia/weblate-omp/hooks"

// HookMetrics times the calls Weblate makes into the hook API.
type HookMetrics struct {
	duration metric.Float64Histogram
}

// NewHookMetrics returns nil when provider is nil.
func NewHookMetrics(provider metric.MeterProvider) (*HookMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	duration, err := provider.Meter(HookMeterName).Float64Histogram(
		"weblate_omp_hook_request_duration_seconds",
		metric.WithDescription("Duration of hook API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60),
	)
	if err != nil {
		return nil, err
	}
	return &HookMetrics{duration: duration}, nil
}

// Middleware records one duration sample per request. Component updates
// run the whole resync inline, so the route label separates them from
// cheap listing calls.
func (m *HookMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		m.duration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(hookAttributes(r, ww.Status())...))
	})
}

func hookAttributes(r *http.Request, status int) []attribute.KeyValue {
	if status == 0 {
		status = http.StatusOK
	}
	route := "unmatched"
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.route", route),
		attribute.String("http.request.method", r.Method),
		attribute.String("status_class", statusClass(status)),
	}
	// unknown addon names are rejected with 4xx and would only add noise
	if rctx != nil && status < http.StatusBadRequest {
		if addon := rctx.URLParam("addon"); addon != "" {
			attrs = append(attrs, attribute.String("addon", addon))
		}
	}
	return attrs
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
