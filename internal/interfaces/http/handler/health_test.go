package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthEngine(checks map[string]Pinger) *gin.Engine {
	h := NewHealthHandler("1.2.0", checks)
	engine := gin.New()
	engine.GET("/live", h.Live)
	engine.GET("/ready", h.Ready)
	return engine
}

func TestHealthHandler_Live(t *testing.T) {
	w := perform(healthEngine(nil), http.MethodGet, "/live", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.0", resp.Version)
	assert.NotEmpty(t, resp.GoVersion)
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		w := perform(healthEngine(map[string]Pinger{"database": ok, "redis": ok}), http.MethodGet, "/ready", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
	})

	t.Run("one dependency down", func(t *testing.T) {
		w := perform(healthEngine(map[string]Pinger{"database": ok, "redis": down}), http.MethodGet, "/ready", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		env := decode(t, w)
		assert.False(t, env.Success)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})

	t.Run("ping sees a deadline", func(t *testing.T) {
		probe := pingFunc(func(ctx context.Context) error {
			if _, has := ctx.Deadline(); !has {
				return errors.New("no deadline")
			}
			return nil
		})
		w := perform(healthEngine(map[string]Pinger{"database": probe}), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
