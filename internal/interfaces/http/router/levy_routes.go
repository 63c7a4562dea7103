package router

import (
	"github.com/gin-gonic/gin"
	"github.com/marketlevy/backend/internal/infrastructure/auth"
	"github.com/marketlevy/backend/internal/interfaces/http/handler"
)

// LevyHandlers bundles the handlers behind /api/v1/levy
type LevyHandlers struct {
	Setups      *handler.LevySetupHandler
	Collections *handler.CollectionHandler
	Markets     *handler.MarketHandler
}

// NewLevyGroup builds the levy route tree. authn authenticates every route;
// extra middleware such as rate limiting runs after it.
func NewLevyGroup(h LevyHandlers, authn gin.HandlerFunc, extra ...gin.HandlerFunc) *Group {
	chairman := auth.RoleChairman
	officer := auth.RoleOfficer

	levy := NewGroup("/levy").Use(authn).Use(extra...)

	levy.Group("/setups").
		POST("", h.Setups.Configure, chairman).
		PUT("/:id", h.Setups.Update, chairman).
		POST("/:id/deactivate", h.Setups.Deactivate, chairman)

	levy.Group("/markets").
		GET("/:id/setups", h.Setups.ListByMarket, chairman, officer).
		GET("/:id/setups/active", h.Setups.GetActive, chairman, officer).
		POST("/:id/tin", h.Markets.GenerateTIN, chairman).
		GET("/:id/audit-log", h.Markets.AuditLog, chairman)

	levy.
		POST("/scans", h.Collections.Scan, officer).
		POST("/payments", h.Collections.RecordPayment, officer)

	levy.Group("/traders").
		GET("/:id/transactions", h.Collections.ListTransactions, chairman, officer).
		GET("/:id/qr", h.Collections.TraderQR, chairman, officer)

	return levy
}

// RegisterHealth mounts the probes outside the authenticated API
func RegisterHealth(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health/live", h.Live)
	engine.GET("/health/ready", h.Ready)
}
