package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	levyapp "github.com/marketlevy/backend/internal/application/levy"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// LevySetupService is the slice of the setup registry the handler needs
type LevySetupService interface {
	ConfigureLevySetup(ctx context.Context, req levyapp.ConfigureLevySetupRequest) (*levyapp.LevySetupResponse, error)
	UpdateLevySetup(ctx context.Context, setupID uuid.UUID, req levyapp.UpdateLevySetupRequest) (*levyapp.LevySetupResponse, error)
	GetActiveLevySetup(ctx context.Context, marketID uuid.UUID, occupancyType string) (*levyapp.LevySetupResponse, error)
	DeactivateLevySetup(ctx context.Context, setupID, actorID uuid.UUID) (*levyapp.LevySetupResponse, error)
	ListMarketLevySetups(ctx context.Context, marketID uuid.UUID) ([]levyapp.LevySetupResponse, error)
}

// LevySetupHandler handles levy rate configuration endpoints
type LevySetupHandler struct {
	BaseHandler
	setupService LevySetupService
}

// NewLevySetupHandler creates a new LevySetupHandler
func NewLevySetupHandler(setupService LevySetupService) *LevySetupHandler {
	return &LevySetupHandler{setupService: setupService}
}

// ConfigureLevySetupRequest is the body of POST /setups
type ConfigureLevySetupRequest struct {
	MarketID      string           `json:"market_id" binding:"required,uuid"`
	OccupancyType string           `json:"occupancy_type" binding:"required,occupancy"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	Period        string           `json:"period" binding:"required,levy_period"`
}

// UpdateLevySetupRequest is the body of PUT /setups/:id. Omitted fields are left alone.
type UpdateLevySetupRequest struct {
	MarketID *string          `json:"market_id" binding:"omitempty,uuid"`
	Amount   *decimal.Decimal `json:"amount"`
	Period   *string          `json:"period" binding:"omitempty,levy_period"`
}

// Configure creates the active setup for a market and occupancy type
func (h *LevySetupHandler) Configure(c *gin.Context) {
	var req ConfigureLevySetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	ownerID, ok := h.actorID(c)
	if !ok {
		return
	}

	resp, err := h.setupService.ConfigureLevySetup(c.Request.Context(), levyapp.ConfigureLevySetupRequest{
		MarketID:      uuid.MustParse(req.MarketID),
		OccupancyType: req.OccupancyType,
		Amount:        *req.Amount,
		Period:        req.Period,
		OwnerID:       ownerID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update changes the supplied fields of a setup
func (h *LevySetupHandler) Update(c *gin.Context) {
	setupID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateLevySetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	update := levyapp.UpdateLevySetupRequest{
		Amount:  req.Amount,
		Period:  req.Period,
		ActorID: actorID,
	}
	if req.MarketID != nil {
		marketID := uuid.MustParse(*req.MarketID)
		update.MarketID = &marketID
	}

	resp, err := h.setupService.UpdateLevySetup(c.Request.Context(), setupID, update)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate retires a setup, freeing its market and occupancy pair
func (h *LevySetupHandler) Deactivate(c *gin.Context) {
	setupID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	resp, err := h.setupService.DeactivateLevySetup(c.Request.Context(), setupID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetActive returns the active setup for ?occupancy_type= in a market
func (h *LevySetupHandler) GetActive(c *gin.Context) {
	marketID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	occupancy := c.Query("occupancy_type")
	if occupancy == "" {
		h.BadRequest(c, "occupancy_type query parameter is required")
		return
	}

	resp, err := h.setupService.GetActiveLevySetup(c.Request.Context(), marketID, occupancy)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByMarket returns the active setups of a market
func (h *LevySetupHandler) ListByMarket(c *gin.Context) {
	marketID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.setupService.ListMarketLevySetups(c.Request.Context(), marketID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
