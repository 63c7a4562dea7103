package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewLevyMetrics(t *testing.T) {
	t.Run("requires meter", func(t *testing.T) {
		_, err := NewLevyMetrics(LevyMetricsConfig{})
		assert.ErrorIs(t, err, ErrMeterNil)
	})

	t.Run("noop meter", func(t *testing.T) {
		lm, err := NewLevyMetrics(LevyMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
		require.NoError(t, err)
		assert.NotPanics(t, func() {
			ctx := context.Background()
			lm.RecordSetupConfigured(ctx, "SHOP", "WEEKLY")
			lm.RecordScan(ctx, OutcomeRejected, "CONFLICT")
			lm.RecordPayment(ctx, "CASH", OutcomeSuccess, decimal.NewFromInt(500))
			lm.ObserveOperation(ctx, "payment", time.Now())
		})
	})
}

func TestLevyMetrics_NilReceiver(t *testing.T) {
	var lm *LevyMetrics
	assert.NotPanics(t, func() {
		lm.RecordScan(context.Background(), OutcomeSuccess, "")
		lm.RecordPayment(context.Background(), "CASH", OutcomeSuccess, decimal.NewFromInt(1))
	})
}

func TestLevyMetrics_RecordPayment(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	lm, err := NewLevyMetrics(LevyMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	lm.RecordPayment(ctx, "CASH", OutcomeSuccess, decimal.RequireFromString("500.25"))
	lm.RecordPayment(ctx, "CASH", OutcomeReplayed, decimal.NewFromInt(500))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), totals["levy_payment_total"])
	assert.Equal(t, int64(50025), totals["levy_collected_amount_total"])
}
