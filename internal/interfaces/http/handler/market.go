package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/audit"
)

// TINService issues trader identification numbers
type TINService interface {
	GenerateTIN(ctx context.Context, marketID uuid.UUID) (string, error)
}

// AuditReader lists a market's audit trail, newest first
type AuditReader interface {
	FindByMarket(ctx context.Context, marketID uuid.UUID, limit int) ([]audit.Entry, error)
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// MarketHandler handles market-scoped endpoints
type MarketHandler struct {
	BaseHandler
	tins   TINService
	audits AuditReader
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(tins TINService, audits AuditReader) *MarketHandler {
	return &MarketHandler{tins: tins, audits: audits}
}

// TINResponse carries a freshly issued TIN
type TINResponse struct {
	TIN string `json:"tin"`
}

// AuditEntryResponse is one audit log line
type AuditEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	Activity   string    `json:"activity"`
	Details    string    `json:"details"`
	ActorID    uuid.UUID `json:"actor_id"`
	Module     string    `json:"module"`
	RecordedAt time.Time `json:"recorded_at"`
}

// GenerateTIN issues a TIN unique among the market's traders
func (h *MarketHandler) GenerateTIN(c *gin.Context) {
	marketID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	tin, err := h.tins.GenerateTIN(c.Request.Context(), marketID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, TINResponse{TIN: tin})
}

// AuditLog lists recent levy activity for a market. ?limit= caps the result.
func (h *MarketHandler) AuditLog(c *gin.Context) {
	marketID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxAuditLimit))
			return
		}
		limit = n
	}

	entries, err := h.audits.FindByMarket(c.Request.Context(), marketID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:         e.ID,
			Activity:   e.Activity,
			Details:    e.Details,
			ActorID:    e.ActorID,
			Module:     e.Module,
			RecordedAt: e.RecordedAt,
		})
	}
	h.Success(c, out)
}
