package levy

import (
	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants for levy events
const (
	EventTypeLevySetupConfigured  = "LevySetupConfigured"
	EventTypeLevySetupUpdated     = "LevySetupUpdated"
	EventTypeLevySetupDeactivated = "LevySetupDeactivated"
	EventTypeLevyPaymentRecorded  = "LevyPaymentRecorded"
)

// LevySetupConfiguredEvent is raised when a chairman configures a new rate
type LevySetupConfiguredEvent struct {
	shared.BaseDomainEvent
	SetupID       uuid.UUID       `json:"setup_id"`
	OccupancyType OccupancyType   `json:"occupancy_type"`
	Amount        decimal.Decimal `json:"amount"`
	Period        PaymentPeriod   `json:"period"`
}

// NewLevySetupConfiguredEvent creates a new LevySetupConfiguredEvent
func NewLevySetupConfiguredEvent(s *LevySetup) *LevySetupConfiguredEvent {
	return &LevySetupConfiguredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLevySetupConfigured, AggregateTypeLevySetup, s.ID, s.MarketID, s.OwnerID),
		SetupID:         s.ID,
		OccupancyType:   s.OccupancyType,
		Amount:          s.Rate.Amount,
		Period:          s.Rate.Period,
	}
}

// LevySetupUpdatedEvent is raised when a setup's rate or market changes
type LevySetupUpdatedEvent struct {
	shared.BaseDomainEvent
	SetupID          uuid.UUID       `json:"setup_id"`
	PreviousMarketID uuid.UUID       `json:"previous_market_id"`
	PreviousAmount   decimal.Decimal `json:"previous_amount"`
	PreviousPeriod   PaymentPeriod   `json:"previous_period"`
	Amount           decimal.Decimal `json:"amount"`
	Period           PaymentPeriod   `json:"period"`
}

// NewLevySetupUpdatedEvent creates a new LevySetupUpdatedEvent
func NewLevySetupUpdatedEvent(s *LevySetup, previous Rate, previousMarket, actorID uuid.UUID) *LevySetupUpdatedEvent {
	return &LevySetupUpdatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeLevySetupUpdated, AggregateTypeLevySetup, s.ID, s.MarketID, actorID),
		SetupID:          s.ID,
		PreviousMarketID: previousMarket,
		PreviousAmount:   previous.Amount,
		PreviousPeriod:   previous.Period,
		Amount:           s.Rate.Amount,
		Period:           s.Rate.Period,
	}
}

// LevySetupDeactivatedEvent is raised when a setup is retired
type LevySetupDeactivatedEvent struct {
	shared.BaseDomainEvent
	SetupID       uuid.UUID     `json:"setup_id"`
	OccupancyType OccupancyType `json:"occupancy_type"`
}

// NewLevySetupDeactivatedEvent creates a new LevySetupDeactivatedEvent
func NewLevySetupDeactivatedEvent(s *LevySetup, actorID uuid.UUID) *LevySetupDeactivatedEvent {
	return &LevySetupDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLevySetupDeactivated, AggregateTypeLevySetup, s.ID, s.MarketID, actorID),
		SetupID:         s.ID,
		OccupancyType:   s.OccupancyType,
	}
}

// LevyPaymentRecordedEvent is raised when an officer records a collection
type LevyPaymentRecordedEvent struct {
	shared.BaseDomainEvent
	TransactionID        uuid.UUID       `json:"transaction_id"`
	TraderID             uuid.UUID       `json:"trader_id"`
	Amount               decimal.Decimal `json:"amount"`
	Period               PaymentPeriod   `json:"period"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	TransactionReference string          `json:"transaction_reference"`
}

// NewLevyPaymentRecordedEvent creates a new LevyPaymentRecordedEvent
func NewLevyPaymentRecordedEvent(t *LevyTransaction) *LevyPaymentRecordedEvent {
	return &LevyPaymentRecordedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeLevyPaymentRecorded, AggregateTypeLevyTransaction, t.ID, t.MarketID, t.CollectorID),
		TransactionID:        t.ID,
		TraderID:             t.TraderID,
		Amount:               t.Rate.Amount,
		Period:               t.Rate.Period,
		PaymentMethod:        t.PaymentMethod,
		TransactionReference: t.TransactionReference,
	}
}
