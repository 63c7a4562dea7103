package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when LevyMetrics is built without a meter
var ErrMeterNil = errors.New("NewLevyMetrics: meter cannot be nil")

// Scan outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeReplayed = "replayed"
)

// LevyMetrics records business metrics for levy configuration, QR scans and
// collections. A nil *LevyMetrics is valid and records nothing.
type LevyMetrics struct {
	logger *zap.Logger

	setupsConfigured *Counter
	scansTotal       *Counter
	paymentsTotal    *Counter
	collectedKobo    *Counter
	operationLatency *Histogram
}

// LevyMetricsConfig holds configuration for levy metrics.
type LevyMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLevyMetrics creates the levy instruments on the given meter.
func NewLevyMetrics(cfg LevyMetricsConfig) (*LevyMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LevyMetrics{logger: logger}
	var err error

	lm.setupsConfigured, err = NewCounter(cfg.Meter,
		"levy_setup_configured_total",
		"Number of levy setups configured",
		"{setups}",
	)
	if err != nil {
		return nil, err
	}

	lm.scansTotal, err = NewCounter(cfg.Meter,
		"levy_qr_scan_total",
		"Number of trader QR validations by outcome",
		"{scans}",
	)
	if err != nil {
		return nil, err
	}

	lm.paymentsTotal, err = NewCounter(cfg.Meter,
		"levy_payment_total",
		"Number of levy payment submissions by outcome",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	lm.collectedKobo, err = NewCounter(cfg.Meter,
		"levy_collected_amount_total",
		"Levy amount collected in minor units (kobo)",
		"{kobo}",
	)
	if err != nil {
		return nil, err
	}

	lm.operationLatency, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "levy_operation_duration_seconds",
		Description: "Duration of levy service operations",
		Unit:        "s",
		Boundaries:  LatencyBuckets,
	})
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordSetupConfigured counts a new levy setup.
func (lm *LevyMetrics) RecordSetupConfigured(ctx context.Context, occupancy, period string) {
	if lm == nil {
		return
	}
	lm.setupsConfigured.Inc(ctx, AttrOccupancyType.String(occupancy), AttrPeriod.String(period))
}

// RecordScan counts a QR validation. errorCode is empty on success.
func (lm *LevyMetrics) RecordScan(ctx context.Context, outcome, errorCode string) {
	if lm == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrOutcome.String(outcome)}
	if errorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(errorCode))
	}
	lm.scansTotal.Inc(ctx, attrs...)
}

// RecordPayment counts a payment submission and, for fresh successes, adds
// the amount to the collected total.
func (lm *LevyMetrics) RecordPayment(ctx context.Context, method, outcome string, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.paymentsTotal.Inc(ctx, AttrPaymentMethod.String(method), AttrOutcome.String(outcome))
	if outcome == OutcomeSuccess && amount.IsPositive() {
		lm.collectedKobo.Add(ctx, amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), AttrPaymentMethod.String(method))
	}
}

// ObserveOperation records the duration of a service operation.
func (lm *LevyMetrics) ObserveOperation(ctx context.Context, operation string, started time.Time) {
	if lm == nil {
		return
	}
	lm.operationLatency.RecordDuration(ctx, time.Since(started), attribute.String("operation", operation))
}
