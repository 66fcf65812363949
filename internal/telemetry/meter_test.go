package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/omprussia/weblate-omp/internal/config"
)

func TestNewMeterProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        *config.TelemetryConfig
		expectNoOp bool
	}{
		{name: "nil config", expectNoOp: true},
		{name: "disabled", cfg: &config.TelemetryConfig{Interval: "10s"}, expectNoOp: true},
		{name: "enabled with interval", cfg: &config.TelemetryConfig{Enabled: true, Insecure: true, Interval: "10s"}},
		{name: "enabled without interval", cfg: &config.TelemetryConfig{Enabled: true, Insecure: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mp, err := newMeterProvider(ctx, tt.cfg, "0.3.1")
			require.NoError(t, err)
			require.NotNil(t, mp)

			if tt.expectNoOp {
				_, ok := mp.(noop.MeterProvider)
				assert.True(t, ok, "expected no-op meter provider")
				return
			}
			sdkMP, ok := mp.(*sdkmetric.MeterProvider)
			require.True(t, ok, "expected SDK meter provider")
			// no collector is running, so the final flush may fail
			_ = sdkMP.Shutdown(ctx)
		})
	}
}

func TestResourceAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.TelemetryConfig
		version string
		want    map[string]string
	}{
		{
			name: "defaults",
			cfg:  &config.TelemetryConfig{},
			want: map[string]string{
				"service.name":      config.DefaultTelemetryService,
				"service.version":   "unknown",
				"service.namespace": ServiceNamespace,
			},
		},
		{
			name: "configured attributes",
			cfg: &config.TelemetryConfig{
				ServiceName: "weblate-omp-worker",
				Attributes: map[string]string{
					"deployment.environment": "staging",
					"service.name":           "spoofed",
				},
			},
			version: "0.3.1",
			want: map[string]string{
				"service.name":           "weblate-omp-worker",
				"service.version":        "0.3.1",
				"service.namespace":      ServiceNamespace,
				"deployment.environment": "staging",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := map[string]string{}
			for _, kv := range resourceAttributes(tt.cfg, tt.version) {
				_, dup := got[string(kv.Key)]
				require.False(t, dup, "duplicate key %s", kv.Key)
				require.Equal(t, attribute.STRING, kv.Value.Type())
				got[string(kv.Key)] = kv.Value.AsString()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
