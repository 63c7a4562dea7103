package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	levyapp "github.com/marketlevy/backend/internal/application/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type collectionFixture struct {
	identity *MockIdentityService
	payments *MockPaymentService
	qr       *MockQRCodeService
	officers *MockOfficerLookup
	// officerID is the officer record behind the actor's user id
	officerID uuid.UUID
	do        func(method, path string, body any, headers ...string) envelopeResult
	raw       func(method, path string) (int, http.Header, []byte)
}

func newCollectionFixture(t *testing.T, actor uuid.UUID) *collectionFixture {
	t.Helper()
	f := &collectionFixture{
		identity:  new(MockIdentityService),
		payments:  new(MockPaymentService),
		qr:        new(MockQRCodeService),
		officers:  new(MockOfficerLookup),
		officerID: uuid.New(),
	}
	if actor != uuid.Nil {
		f.officers.On("FindOfficerByUserID", mock.Anything, actor).
			Return(&market.Officer{ID: f.officerID, UserID: actor, Active: true}, nil).
			Maybe()
	}
	h := NewCollectionHandler(f.identity, f.payments, f.qr, f.officers)

	engine := newTestEngine(actor)
	engine.POST("/scans", h.Scan)
	engine.POST("/payments", h.RecordPayment)
	engine.GET("/traders/:id/transactions", h.ListTransactions)
	engine.GET("/traders/:id/qr", h.TraderQR)

	f.do = func(method, path string, body any, headers ...string) envelopeResult {
		w := perform(engine, method, path, body, headers...)
		return envelopeResult{status: w.Code, env: decode(t, w)}
	}
	f.raw = func(method, path string) (int, http.Header, []byte) {
		w := perform(engine, method, path, nil)
		return w.Code, w.Header(), w.Body.Bytes()
	}

	t.Cleanup(func() {
		f.identity.AssertExpectations(t)
		f.payments.AssertExpectations(t)
		f.qr.AssertExpectations(t)
		f.officers.AssertExpectations(t)
	})
	return f
}

func TestCollectionHandler_ScanJSONPayload(t *testing.T) {
	traderID := uuid.New()
	marketID := uuid.New()
	f := newCollectionFixture(t, uuid.New())

	f.identity.On("ValidateTraderQRCode", mock.Anything, mock.MatchedBy(func(req levyapp.ValidateTraderQRRequest) bool {
		return req.TraderID == traderID &&
			req.OfficerID == f.officerID &&
			req.ExpectedMarketID != nil && *req.ExpectedMarketID == marketID
	})).Return(&levyapp.TraderPaymentSummary{
		TraderID:    traderID,
		TotalAmount: decimal.NewFromInt(4500),
	}, nil)

	res := f.do(http.MethodPost, "/scans", map[string]any{
		"qr_payload":         `{"traderId":"` + traderID.String() + `","businessName":"Ada Stores","prefix":"LEVY"}`,
		"expected_market_id": marketID.String(),
	})

	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.env.Data), `"total_amount":"4500"`)
}

func TestCollectionHandler_ScanBareTraderID(t *testing.T) {
	traderID := uuid.New()
	f := newCollectionFixture(t, uuid.New())

	f.identity.On("ValidateTraderQRCode", mock.Anything, mock.MatchedBy(func(req levyapp.ValidateTraderQRRequest) bool {
		return req.TraderID == traderID && req.ExpectedMarketID == nil
	})).Return(nil, shared.NewForbiddenError("Officer is not assigned to the trader's market"))

	res := f.do(http.MethodPost, "/scans", map[string]any{"qr_payload": traderID.String()})
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestCollectionHandler_ScanUnreadablePayload(t *testing.T) {
	f := newCollectionFixture(t, uuid.New())

	res := f.do(http.MethodPost, "/scans", map[string]any{"qr_payload": "hello"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, dto.ErrCodeValidation, res.env.Error.Code)
}

func TestCollectionHandler_ScanRequiresActor(t *testing.T) {
	f := newCollectionFixture(t, uuid.Nil)

	res := f.do(http.MethodPost, "/scans", map[string]any{"qr_payload": uuid.NewString()})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestCollectionHandler_CallerWithoutOfficerRecord(t *testing.T) {
	user := uuid.New()
	f := newCollectionFixture(t, uuid.Nil)
	h := NewCollectionHandler(f.identity, f.payments, f.qr, f.officers)
	engine := newTestEngine(user)
	engine.POST("/scans", h.Scan)
	engine.POST("/payments", h.RecordPayment)
	f.officers.On("FindOfficerByUserID", mock.Anything, user).Return(nil, nil).Twice()

	w := perform(engine, http.MethodPost, "/scans", map[string]any{"qr_payload": uuid.NewString()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decode(t, w).Error.Code)

	w = perform(engine, http.MethodPost, "/payments", paymentBody(uuid.New()))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decode(t, w).Error.Code)
}

func TestCollectionHandler_OfficerLookupFailure(t *testing.T) {
	user := uuid.New()
	f := newCollectionFixture(t, uuid.Nil)
	h := NewCollectionHandler(f.identity, f.payments, f.qr, f.officers)
	engine := newTestEngine(user)
	engine.POST("/payments", h.RecordPayment)
	f.officers.On("FindOfficerByUserID", mock.Anything, user).Return(nil, errors.New("connection reset"))

	w := perform(engine, http.MethodPost, "/payments", paymentBody(uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeUnexpected, decode(t, w).Error.Code)
}

func paymentBody(traderID uuid.UUID) map[string]any {
	return map[string]any{
		"trader_id":             traderID.String(),
		"amount":                "1500",
		"period":                "Weekly",
		"payment_method":        "Cash",
		"notes":                 "paid at stall",
		"transaction_reference": "LEVY-REF-1",
	}
}

func TestCollectionHandler_RecordPayment(t *testing.T) {
	traderID := uuid.New()
	f := newCollectionFixture(t, uuid.New())

	f.payments.On("ProcessTraderLevyPayment", mock.Anything, mock.MatchedBy(func(req levyapp.ProcessPaymentRequest) bool {
		return req.TraderID == traderID &&
			req.CollectorID == f.officerID &&
			req.Amount.Equal(decimal.NewFromInt(1500)) &&
			req.Method == "Cash" &&
			req.Notes != nil && *req.Notes == "paid at stall" &&
			req.ClientRequestID != nil && *req.ClientRequestID == "retry-1"
	})).Return(&levyapp.TransactionRecord{ID: uuid.New(), TraderID: traderID, WasDue: true}, nil)

	res := f.do(http.MethodPost, "/payments", paymentBody(traderID), middleware.IdempotencyKeyHeader, "retry-1")

	assert.Equal(t, http.StatusCreated, res.status)
	assert.Contains(t, string(res.env.Data), `"was_due":true`)
}

func TestCollectionHandler_RecordPaymentReplay(t *testing.T) {
	traderID := uuid.New()
	f := newCollectionFixture(t, uuid.New())

	f.payments.On("ProcessTraderLevyPayment", mock.Anything, mock.Anything).
		Return(&levyapp.TransactionRecord{ID: uuid.New(), Replayed: true}, nil)

	res := f.do(http.MethodPost, "/payments", paymentBody(traderID), middleware.IdempotencyKeyHeader, "retry-1")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.env.Data), `"replayed":true`)
}

func TestCollectionHandler_RecordPaymentWithoutKey(t *testing.T) {
	f := newCollectionFixture(t, uuid.New())

	f.payments.On("ProcessTraderLevyPayment", mock.Anything, mock.MatchedBy(func(req levyapp.ProcessPaymentRequest) bool {
		return req.ClientRequestID == nil
	})).Return(nil, shared.NewConfigurationError("No active levy setup for this trader"))

	res := f.do(http.MethodPost, "/payments", paymentBody(uuid.New()))
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Equal(t, dto.ErrCodeConfiguration, res.env.Error.Code)
}

func TestCollectionHandler_RecordPaymentValidation(t *testing.T) {
	f := newCollectionFixture(t, uuid.New())

	res := f.do(http.MethodPost, "/payments", map[string]any{"trader_id": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Len(t, res.env.Error.Details, 3)

	res = f.do(http.MethodPost, "/payments", `{"trader_id":`)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, dto.ErrCodeInvalidJSON, res.env.Error.Code)
}

func TestCollectionHandler_ListTransactions(t *testing.T) {
	traderID := uuid.New()
	f := newCollectionFixture(t, uuid.New())

	wantFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC)

	f.payments.On("ListTraderTransactions", mock.Anything, traderID,
		mock.MatchedBy(func(from *time.Time) bool { return from != nil && from.Equal(wantFrom) }),
		mock.MatchedBy(func(to *time.Time) bool { return to != nil && to.Equal(wantTo) }),
	).Return([]levyapp.TransactionRecord{{ID: uuid.New()}}, nil)

	res := f.do(http.MethodGet, "/traders/"+traderID.String()+"/transactions?from=2024-01-01&to=2024-01-31", nil)
	assert.Equal(t, http.StatusOK, res.status)
}

func TestCollectionHandler_ListTransactionsOpenRange(t *testing.T) {
	traderID := uuid.New()
	f := newCollectionFixture(t, uuid.New())

	f.payments.On("ListTraderTransactions", mock.Anything, traderID, (*time.Time)(nil), (*time.Time)(nil)).
		Return([]levyapp.TransactionRecord{}, nil)

	res := f.do(http.MethodGet, "/traders/"+traderID.String()+"/transactions", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `[]`, string(res.env.Data))
}

func TestCollectionHandler_ListTransactionsBadDate(t *testing.T) {
	f := newCollectionFixture(t, uuid.New())

	res := f.do(http.MethodGet, "/traders/"+uuid.NewString()+"/transactions?from=last-week", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestCollectionHandler_TraderQR(t *testing.T) {
	traderID := uuid.New()
	f := newCollectionFixture(t, uuid.New())
	png := []byte{0x89, 'P', 'N', 'G'}

	f.qr.On("RenderTraderQR", mock.Anything, traderID).Return(&levyapp.TraderQRCode{
		TraderID: traderID,
		PNG:      png,
		Location: "https://s3.example.com/qr/t.png",
	}, nil)

	status, header, body := f.raw(http.MethodGet, "/traders/"+traderID.String()+"/qr")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "image/png", header.Get("Content-Type"))
	assert.Equal(t, "https://s3.example.com/qr/t.png", header.Get(QRLocationHeader))
	assert.Equal(t, png, body)
}

func TestParseRangeBound(t *testing.T) {
	got, err := parseRangeBound("", true)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseRangeBound("2024-03-05T10:00:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), got.UTC())

	got, err = parseRangeBound("2024-03-05", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *got)

	_, err = parseRangeBound("05/03/2024", false)
	assert.Error(t, err)
}
