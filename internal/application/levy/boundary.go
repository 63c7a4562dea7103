package levy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// boundary is the error and telemetry envelope every public service method
// runs inside. Domain failures leave with their code intact; everything else,
// panics included, is logged in full and replaced by a generic UNEXPECTED error.
type boundary struct {
	logger  *zap.Logger
	metrics *telemetry.LevyMetrics
}

func (b boundary) start(ctx context.Context, service, method string) (context.Context, trace.Span, time.Time) {
	ctx, span := telemetry.StartServiceSpan(ctx, service, method)
	return ctx, span, time.Now()
}

// finish must be deferred directly so that recover sees a panic.
func (b boundary) finish(ctx context.Context, span trace.Span, op string, started time.Time, errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("panic in %s: %v", op, r)
	}
	if *errp != nil {
		*errp = b.translate(ctx, op, *errp)
		telemetry.RecordError(span, *errp)
	} else {
		telemetry.SetOK(span)
	}
	b.metrics.ObserveOperation(ctx, op, started)
	span.End()
}

func (b boundary) translate(ctx context.Context, op string, err error) error {
	correlationID := logger.GetRequestID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if de, ok := shared.AsDomainError(err); ok {
		if de.Code == shared.CodeUnexpected {
			return de
		}
		b.logger.Info("Levy operation rejected",
			zap.String("operation", op),
			zap.String("code", de.Code),
			zap.String("reason", de.Message),
			zap.String("correlation_id", correlationID),
		)
		out := *de
		out.CorrelationID = correlationID
		return &out
	}

	b.logger.Error("Levy operation failed",
		zap.String("operation", op),
		zap.String("correlation_id", correlationID),
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.Error(err),
	)
	return shared.NewUnexpectedError(correlationID, err)
}

// publish hands pending aggregate events to the bus. Publishing never fails
// the operation that produced the events.
func publish(ctx context.Context, publisher shared.EventPublisher, log *zap.Logger, agg shared.AggregateRoot) {
	events := agg.PullDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		log.Warn("Failed to publish levy events",
			zap.String("aggregate_id", agg.GetID().String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
