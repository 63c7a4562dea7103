package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	levyapp "github.com/marketlevy/backend/internal/application/levy"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// TraderIdentityService resolves scanned trader codes
type TraderIdentityService interface {
	ValidateTraderQRCode(ctx context.Context, req levyapp.ValidateTraderQRRequest) (*levyapp.TraderPaymentSummary, error)
}

// PaymentService records and lists levy collections
type PaymentService interface {
	ProcessTraderLevyPayment(ctx context.Context, req levyapp.ProcessPaymentRequest) (*levyapp.TransactionRecord, error)
	ListTraderTransactions(ctx context.Context, traderID uuid.UUID, from, to *time.Time) ([]levyapp.TransactionRecord, error)
}

// QRCodeService renders trader identity codes
type QRCodeService interface {
	RenderTraderQR(ctx context.Context, traderID uuid.UUID) (*levyapp.TraderQRCode, error)
}

// OfficerLookup maps the authenticated user onto a collection officer
type OfficerLookup interface {
	FindOfficerByUserID(ctx context.Context, userID uuid.UUID) (*market.Officer, error)
}

// QRLocationHeader carries the archived QR object location when there is one
const QRLocationHeader = "X-QR-Location"

const dateLayout = "2006-01-02"

// CollectionHandler handles the field officer endpoints: scans, payments,
// transaction history and trader codes
type CollectionHandler struct {
	BaseHandler
	identity TraderIdentityService
	payments PaymentService
	qrCodes  QRCodeService
	officers OfficerLookup
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(identity TraderIdentityService, payments PaymentService, qrCodes QRCodeService, officers OfficerLookup) *CollectionHandler {
	return &CollectionHandler{
		identity: identity,
		payments: payments,
		qrCodes:  qrCodes,
		officers: officers,
	}
}

// ScanRequest is the body of POST /scans. qr_payload is the raw scanned
// content: the JSON card payload or a bare trader id.
type ScanRequest struct {
	QRPayload        string  `json:"qr_payload" binding:"required,max=4096"`
	ExpectedMarketID *string `json:"expected_market_id" binding:"omitempty,uuid"`
}

// PaymentRequest is the body of POST /payments
type PaymentRequest struct {
	TraderID             string           `json:"trader_id" binding:"required,uuid"`
	Amount               *decimal.Decimal `json:"amount" binding:"required"`
	Period               string           `json:"period" binding:"required,levy_period"`
	PaymentMethod        string           `json:"payment_method" binding:"required,payment_method"`
	Incentive            *decimal.Decimal `json:"incentive"`
	Notes                *string          `json:"notes" binding:"omitempty,max=1000"`
	QRPayload            *string          `json:"qr_payload" binding:"omitempty,max=4096"`
	TransactionReference *string          `json:"transaction_reference" binding:"omitempty,max=64"`
}

// Scan resolves a scanned code into the trader's payment summary
func (h *CollectionHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	officerID, ok := h.officerID(c, shared.NewUnauthorizedError("Scanner is not a recognized collection officer"))
	if !ok {
		return
	}

	payload, err := levyapp.DecodeQRPayload(req.QRPayload)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	scan := levyapp.ValidateTraderQRRequest{
		TraderID:  payload.TraderID,
		OfficerID: officerID,
	}
	if req.ExpectedMarketID != nil {
		marketID := uuid.MustParse(*req.ExpectedMarketID)
		scan.ExpectedMarketID = &marketID
	}

	summary, err := h.identity.ValidateTraderQRCode(c.Request.Context(), scan)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// RecordPayment records a collection. A repeated Idempotency-Key replays
// the original transaction instead of charging twice.
func (h *CollectionHandler) RecordPayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	collectorID, ok := h.officerID(c, shared.NewForbiddenError("Only collection officers may record payments"))
	if !ok {
		return
	}

	payment := levyapp.ProcessPaymentRequest{
		TraderID:             uuid.MustParse(req.TraderID),
		CollectorID:          collectorID,
		Amount:               *req.Amount,
		Period:               req.Period,
		Method:               req.PaymentMethod,
		Incentive:            req.Incentive,
		Notes:                req.Notes,
		QRPayload:            req.QRPayload,
		TransactionReference: req.TransactionReference,
	}
	if key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader)); key != "" {
		payment.ClientRequestID = &key
	}

	record, err := h.payments.ProcessTraderLevyPayment(c.Request.Context(), payment)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if record.Replayed {
		h.Success(c, record)
		return
	}
	h.Created(c, record)
}

// ListTransactions returns a trader's collections. from and to accept
// RFC 3339 timestamps or plain dates; a plain to date covers the whole day.
func (h *CollectionHandler) ListTransactions(c *gin.Context) {
	traderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	from, err := parseRangeBound(c.Query("from"), false)
	if err != nil {
		h.BadRequest(c, "Invalid from date")
		return
	}
	to, err := parseRangeBound(c.Query("to"), true)
	if err != nil {
		h.BadRequest(c, "Invalid to date")
		return
	}

	records, err := h.payments.ListTraderTransactions(c.Request.Context(), traderID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// TraderQR renders the trader's identity code as a PNG
func (h *CollectionHandler) TraderQR(c *gin.Context) {
	traderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	code, err := h.qrCodes.RenderTraderQR(c.Request.Context(), traderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if code.Location != "" {
		c.Header(QRLocationHeader, code.Location)
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", code.PNG)
}

// officerID resolves the caller's officer record. Tokens carry the identity
// service user id, which differs from the officer id. missing answers
// callers without a record.
func (h *CollectionHandler) officerID(c *gin.Context, missing error) (uuid.UUID, bool) {
	userID, ok := h.actorID(c)
	if !ok {
		return uuid.Nil, false
	}
	officer, err := h.officers.FindOfficerByUserID(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, false
	}
	if officer == nil {
		h.HandleError(c, missing)
		return uuid.Nil, false
	}
	return officer.ID, true
}

func parseRangeBound(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
