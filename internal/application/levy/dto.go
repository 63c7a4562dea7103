package levy

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/shopspring/decimal"
)

// ConfigureLevySetupRequest represents a request to configure a levy rate
type ConfigureLevySetupRequest struct {
	MarketID      uuid.UUID       `json:"market_id"`
	OccupancyType string          `json:"occupancy_type"`
	Amount        decimal.Decimal `json:"amount"`
	Period        string          `json:"period"`
	OwnerID       uuid.UUID       `json:"-"`
}

// UpdateLevySetupRequest represents a partial update. Nil fields are not changed.
type UpdateLevySetupRequest struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Period   *string          `json:"period,omitempty"`
	MarketID *uuid.UUID       `json:"market_id,omitempty"`
	ActorID  uuid.UUID        `json:"-"`
}

// LevySetupResponse represents a levy setup in API responses
type LevySetupResponse struct {
	ID             uuid.UUID       `json:"id"`
	MarketID       uuid.UUID       `json:"market_id"`
	OccupancyType  string          `json:"occupancy_type"`
	OccupancyLabel string          `json:"occupancy_label"`
	Amount         decimal.Decimal `json:"amount"`
	Period         string          `json:"period"`
	PeriodDays     int             `json:"period_days"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToLevySetupResponse converts a domain LevySetup to a response DTO
func ToLevySetupResponse(s *levy.LevySetup) LevySetupResponse {
	return LevySetupResponse{
		ID:             s.ID,
		MarketID:       s.MarketID,
		OccupancyType:  s.OccupancyType.String(),
		OccupancyLabel: s.OccupancyType.Label(),
		Amount:         s.Rate.Amount,
		Period:         s.Rate.Period.String(),
		PeriodDays:     s.Rate.Days(),
		OwnerID:        s.OwnerID,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Version:        s.Version,
	}
}

// ValidateTraderQRRequest carries a scan made by a field officer
type ValidateTraderQRRequest struct {
	TraderID         uuid.UUID
	OfficerID        uuid.UUID
	ExpectedMarketID *uuid.UUID
}

// OccupancyAmountsResponse is the per-occupancy bucket view of a breakdown
type OccupancyAmountsResponse struct {
	OpenSpace decimal.Decimal `json:"open_space"`
	Kiosk     decimal.Decimal `json:"kiosk"`
	Shop      decimal.Decimal `json:"shop"`
	Warehouse decimal.Decimal `json:"warehouse"`
}

// BreakdownResponse represents what a trader owes
type BreakdownResponse struct {
	CurrentAmount    decimal.Decimal          `json:"current_amount"`
	Arrears          decimal.Decimal          `json:"arrears"`
	TotalAmount      decimal.Decimal          `json:"total_amount"`
	OverdueDays      int                      `json:"overdue_days"`
	Status           string                   `json:"status"`
	OutstandingCount int                      `json:"outstanding_count"`
	ByOccupancy      OccupancyAmountsResponse `json:"by_occupancy"`
	NextDueDate      *time.Time               `json:"next_due_date,omitempty"`
}

func toBreakdownResponse(b levy.Breakdown) BreakdownResponse {
	return BreakdownResponse{
		CurrentAmount:    b.CurrentAmount,
		Arrears:          b.Arrears,
		TotalAmount:      b.TotalAmount,
		OverdueDays:      b.OverdueDays,
		Status:           string(b.Status),
		OutstandingCount: b.OutstandingCount,
		ByOccupancy: OccupancyAmountsResponse{
			OpenSpace: b.ByOccupancy.OpenSpace,
			Kiosk:     b.ByOccupancy.Kiosk,
			Shop:      b.ByOccupancy.Shop,
			Warehouse: b.ByOccupancy.Warehouse,
		},
		NextDueDate: b.NextDueDate,
	}
}

// TraderPaymentSummary is the result of a QR scan
type TraderPaymentSummary struct {
	TraderID              uuid.UUID         `json:"trader_id"`
	DisplayName           string            `json:"display_name"`
	OccupancyLabel        string            `json:"occupancy_label"`
	TIN                   string            `json:"tin"`
	PaymentFrequencyLabel string            `json:"payment_frequency_label"`
	TotalAmount           decimal.Decimal   `json:"total_amount"`
	MarketID              uuid.UUID         `json:"market_id"`
	MarketName            string            `json:"market_name"`
	LastPaymentDate       *time.Time        `json:"last_payment_date,omitempty"`
	BuildingTypeCount     int               `json:"building_type_count"`
	Breakdown             BreakdownResponse `json:"breakdown"`
	PaymentSubmissionURL  string            `json:"payment_submission_url"`
}

// ProcessPaymentRequest represents a collection submitted by an officer.
// Optional fields are nil when not supplied.
type ProcessPaymentRequest struct {
	TraderID             uuid.UUID
	CollectorID          uuid.UUID
	Amount               decimal.Decimal
	Period               string
	Method               string
	Incentive            *decimal.Decimal
	Notes                *string
	QRPayload            *string
	TransactionReference *string
	ClientRequestID      *string
}

// TransactionRecord represents a levy transaction in API responses
type TransactionRecord struct {
	ID                   uuid.UUID        `json:"id"`
	TraderID             uuid.UUID        `json:"trader_id"`
	MarketID             uuid.UUID        `json:"market_id"`
	CollectorID          uuid.UUID        `json:"collector_id"`
	Amount               decimal.Decimal  `json:"amount"`
	Period               string           `json:"period"`
	PaymentMethod        string           `json:"payment_method"`
	Status               string           `json:"status"`
	PaymentDate          time.Time        `json:"payment_date"`
	CollectionDate       *time.Time       `json:"collection_date,omitempty"`
	DueDate              *time.Time       `json:"due_date,omitempty"`
	OccupancyType        string           `json:"occupancy_type"`
	TransactionReference string           `json:"transaction_reference"`
	Incentive            *decimal.Decimal `json:"incentive,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	// WasDue reports whether the levy was due when collected. Informational only.
	WasDue bool `json:"was_due"`
	// Replayed is true when an earlier submission with the same client request id was returned
	Replayed bool `json:"replayed"`
}

// ToTransactionRecord converts a domain LevyTransaction to a response DTO
func ToTransactionRecord(t *levy.LevyTransaction) TransactionRecord {
	return TransactionRecord{
		ID:                   t.ID,
		TraderID:             t.TraderID,
		MarketID:             t.MarketID,
		CollectorID:          t.CollectorID,
		Amount:               t.Rate.Amount,
		Period:               t.Rate.Period.String(),
		PaymentMethod:        t.PaymentMethod.String(),
		Status:               t.Status.String(),
		PaymentDate:          t.PaymentDate,
		CollectionDate:       t.CollectionDate,
		DueDate:              t.DueDate,
		OccupancyType:        t.OccupancyType.String(),
		TransactionReference: t.TransactionReference,
		Incentive:            t.Incentive,
		Notes:                t.Notes,
		CreatedAt:            t.CreatedAt,
	}
}
