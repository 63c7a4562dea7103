package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketlevy/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// unmatchedRoute labels requests no route matched, keeping the path out of
// the attribute set so scanners cannot blow up metric cardinality.
const unmatchedRoute = "unmatched"

type httpMetrics struct {
	requests *telemetry.Counter
	failures *telemetry.Counter
	latency  *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, reqErr := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	failures, failErr := telemetry.NewCounter(meter,
		"http_server_error_total", "HTTP requests answered with a 5xx status", "{request}")
	latency, latErr := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.LatencyBuckets,
	})
	inFlight, flightErr := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"))
	if err := errors.Join(reqErr, failErr, latErr, flightErr); err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, failures: failures, latency: latency, inFlight: inFlight}, nil
}

// HTTPMetrics records request count, server errors, latency and in-flight
// requests per route. A nil meter disables collection.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		method := semconv.HTTPRequestMethodKey.String(c.Request.Method)
		m.inFlight.Add(ctx, 1, metric.WithAttributes(method))
		defer m.inFlight.Add(ctx, -1, metric.WithAttributes(method))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		attrs := []attribute.KeyValue{method, semconv.HTTPRoute(route)}

		m.latency.RecordDuration(ctx, time.Since(start), attrs...)
		m.requests.Inc(ctx, append(attrs, semconv.HTTPResponseStatusCode(status))...)
		if status >= 500 {
			m.failures.Inc(ctx, attrs...)
		}
	}, nil
}
