package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/audit"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func marketEngine(t *testing.T) (*MockTINService, *MockAuditReader, func(method, path string) envelopeResult) {
	t.Helper()
	tins := new(MockTINService)
	audits := new(MockAuditReader)
	h := NewMarketHandler(tins, audits)

	engine := newTestEngine(uuid.New())
	engine.POST("/markets/:id/tin", h.GenerateTIN)
	engine.GET("/markets/:id/audit-log", h.AuditLog)

	t.Cleanup(func() {
		tins.AssertExpectations(t)
		audits.AssertExpectations(t)
	})
	return tins, audits, func(method, path string) envelopeResult {
		w := perform(engine, method, path, nil)
		return envelopeResult{status: w.Code, env: decode(t, w)}
	}
}

func TestMarketHandler_GenerateTIN(t *testing.T) {
	tins, _, do := marketEngine(t)
	marketID := uuid.New()
	tins.On("GenerateTIN", mock.Anything, marketID).Return("TIN-4821937", nil)

	res := do(http.MethodPost, "/markets/"+marketID.String()+"/tin")

	assert.Equal(t, http.StatusCreated, res.status)
	assert.JSONEq(t, `{"tin":"TIN-4821937"}`, string(res.env.Data))
}

func TestMarketHandler_GenerateTINExhausted(t *testing.T) {
	tins, _, do := marketEngine(t)
	tins.On("GenerateTIN", mock.Anything, mock.Anything).
		Return("", errors.New("no free TIN after 5 attempts"))

	res := do(http.MethodPost, "/markets/"+uuid.NewString()+"/tin")

	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, dto.ErrCodeUnexpected, res.env.Error.Code)
}

func TestMarketHandler_AuditLog(t *testing.T) {
	_, audits, do := marketEngine(t)
	marketID := uuid.New()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	audits.On("FindByMarket", mock.Anything, marketID, 20).Return([]audit.Entry{{
		ID:         uuid.New(),
		Activity:   "Levy Payment",
		Details:    "Recorded 1500 for trader",
		Module:     "Levy Management",
		MarketID:   marketID,
		RecordedAt: at,
	}}, nil)

	res := do(http.MethodGet, "/markets/"+marketID.String()+"/audit-log?limit=20")
	require.Equal(t, http.StatusOK, res.status)

	var entries []AuditEntryResponse
	require.NoError(t, json.Unmarshal(res.env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Levy Payment", entries[0].Activity)
	assert.True(t, at.Equal(entries[0].RecordedAt))
}

func TestMarketHandler_AuditLogDefaultLimit(t *testing.T) {
	_, audits, do := marketEngine(t)
	audits.On("FindByMarket", mock.Anything, mock.Anything, defaultAuditLimit).Return([]audit.Entry(nil), nil)

	res := do(http.MethodGet, "/markets/"+uuid.NewString()+"/audit-log")

	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `[]`, string(res.env.Data))
}

func TestMarketHandler_AuditLogLimitValidation(t *testing.T) {
	_, _, do := marketEngine(t)

	for _, limit := range []string{"0", "501", "ten"} {
		res := do(http.MethodGet, "/markets/"+uuid.NewString()+"/audit-log?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, res.status, limit)
		assert.Equal(t, dto.ErrCodeValidation, res.env.Error.Code, limit)
	}
}

func TestMarketHandler_AuditLogForbidden(t *testing.T) {
	_, audits, do := marketEngine(t)
	audits.On("FindByMarket", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewForbiddenError("Chairman does not own this market"))

	res := do(http.MethodGet, "/markets/"+uuid.NewString()+"/audit-log")
	assert.Equal(t, http.StatusForbidden, res.status)
}
