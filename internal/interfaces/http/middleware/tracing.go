package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// UntracedPaths are never traced. Probe traffic would otherwise dominate
	// the sampled spans.
	UntracedPaths []string
}

// Tracing starts a server span per request via otelgin
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	untraced := make(map[string]bool, len(cfg.UntracedPaths))
	for _, p := range cfg.UntracedPaths {
		untraced[p] = true
	}
	return otelgin.Middleware(cfg.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool { return !untraced[r.URL.Path] }),
	)
}

// SpanAttributes adds request id and actor attributes to the active span
// and marks 5xx responses as errors. It must run after Tracing.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := c.GetString(logger.GinRequestIDKey); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		if actor := c.GetString(logger.GinActorIDKey); actor != "" {
			span.SetAttributes(attribute.String("actor_id", actor))
		}
		if status := c.Writer.Status(); status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}
