package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/omprussia/weblate-omp/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        *config.TelemetryConfig
		expectNoOp bool
	}{
		{name: "nil config", cfg: nil, expectNoOp: true},
		{name: "disabled", cfg: &config.TelemetryConfig{Enabled: false}, expectNoOp: true},
		{
			name: "enabled",
			cfg: &config.TelemetryConfig{
				Enabled:     true,
				ServiceName: "weblate-omp-test",
				Endpoint:    "localhost:4318",
				Insecure:    true,
				Interval:    "30s",
				Attributes:  map[string]string{"deployment.environment": "test"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tel, err := New(ctx, tt.cfg, "1.0.0")
			require.NoError(t, err)
			require.NotNil(t, tel)
			defer func() { _ = tel.Shutdown(ctx) }()

			if tt.expectNoOp {
				_, ok := tel.MeterProvider().(noop.MeterProvider)
				assert.True(t, ok, "expected no-op meter provider")
			} else {
				_, ok := tel.MeterProvider().(*sdkmetric.MeterProvider)
				assert.True(t, ok, "expected SDK meter provider")
			}
			assert.NotNil(t, tel.Metrics())
			assert.NotNil(t, tel.HookMetrics())
		})
	}
}

func TestTelemetry_ShutdownNoOp(t *testing.T) {
	t.Parallel()

	tel, err := New(context.Background(), nil, "dev")
	require.NoError(t, err)
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}
