package logger

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys shared with the HTTP middleware
const (
	GinRequestIDKey = "request_id"
	GinLoggerKey    = "logger"
	GinActorIDKey   = "actor_id"
)

type accessLog struct {
	quiet map[string]bool
}

// AccessLogOption tunes AccessLog.
type AccessLogOption func(*accessLog)

// WithQuietRoutes logs successful hits on the given route patterns at debug
// level. Load balancer probes would otherwise drown the request log.
func WithQuietRoutes(routes ...string) AccessLogOption {
	return func(a *accessLog) {
		for _, r := range routes {
			a.quiet[r] = true
		}
	}
}

// AccessLog attaches a request-scoped logger to the gin and request contexts
// and writes one line per request once the handler chain has finished.
func AccessLog(base *zap.Logger, opts ...AccessLogOption) gin.HandlerFunc {
	a := &accessLog{quiet: map[string]bool{}}
	for _, opt := range opts {
		opt(a)
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString(GinRequestIDKey)

		reqLogger := base.With(zap.String("request_id", requestID))
		c.Set(GinLoggerKey, reqLogger)
		ctx := c.Request.Context()
		if requestID != "" {
			ctx, _ = WithRequestID(ctx, base, requestID)
		}
		c.Request = c.Request.WithContext(WithContext(ctx, reqLogger))

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if ce := reqLogger.Check(a.level(route, status), "HTTP Request"); ce != nil {
			ce.Write(requestFields(c, route, status, time.Since(start))...)
		}
	}
}

func (a *accessLog) level(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case a.quiet[route]:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func requestFields(c *gin.Context, route string, status int, latency time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("body_size", c.Writer.Size()),
	}
	if route != "" {
		fields = append(fields, zap.String("route", route))
	}
	if q := c.Request.URL.RawQuery; q != "" {
		fields = append(fields, zap.String("query", q))
	}
	if actor := c.GetString(GinActorIDKey); actor != "" {
		fields = append(fields, zap.String("actor_id", actor))
	}
	if ua := c.Request.UserAgent(); ua != "" {
		fields = append(fields, zap.String("user_agent", ua))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}
	return fields
}

// Recovery turns a handler panic into a logged stack trace and a generic
// ERR_UNEXPECTED answer. The panic value never reaches the client.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		requestID := c.GetString(GinRequestIDKey)
		base.Error("Panic recovered",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("error", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "ERR_UNEXPECTED",
				"message":    "An unexpected error occurred",
				"request_id": requestID,
			},
		})
	})
}

// GetGinLogger returns the request-scoped logger, or a no-op logger outside
// AccessLog.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if zl, ok := c.Value(GinLoggerKey).(*zap.Logger); ok {
		return zl
	}
	return zap.NewNop()
}
