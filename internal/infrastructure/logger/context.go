package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationKey
)

// correlation identifies who caused a unit of work. The request id doubles as
// the correlation id reported with failed levy operations.
type correlation struct {
	requestID string
	actorID   string
}

func correlationFrom(ctx context.Context) correlation {
	c, _ := ctx.Value(correlationKey).(correlation)
	return c
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the request id on ctx and attaches a logger carrying it.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	c := correlationFrom(ctx)
	c.requestID = requestID
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(context.WithValue(ctx, correlationKey, c), enriched), enriched
}

// WithActorID records the authenticated chairman or officer on ctx.
func WithActorID(ctx context.Context, logger *zap.Logger, actorID string) (context.Context, *zap.Logger) {
	c := correlationFrom(ctx)
	c.actorID = actorID
	enriched := logger.With(zap.String("actor_id", actorID))
	return WithContext(context.WithValue(ctx, correlationKey, c), enriched), enriched
}

func GetRequestID(ctx context.Context) string { return correlationFrom(ctx).requestID }

func GetActorID(ctx context.Context) string { return correlationFrom(ctx).actorID }

// GetTraceID returns the trace id of the active span, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// correlationFields lists the ids known for ctx, for loggers that are not
// derived from the request logger (the SQL logger, for instance).
func correlationFields(ctx context.Context) []zap.Field {
	c := correlationFrom(ctx)
	fields := make([]zap.Field, 0, 6)
	if c.requestID != "" {
		fields = append(fields, zap.String("request_id", c.requestID))
	}
	if c.actorID != "" {
		fields = append(fields, zap.String("actor_id", c.actorID))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	return fields
}

// L returns the context's logger with trace_id and span_id of the active span.
//
//	logger.L(ctx).Info("payment recorded", zap.String("reference", ref))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
