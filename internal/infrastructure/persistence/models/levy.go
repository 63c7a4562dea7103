package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/shopspring/decimal"
)

// LevySetupModel is the persistence model for the LevySetup aggregate.
// The partial unique index keeps at most one active row per market and
// occupancy type.
type LevySetupModel struct {
	AggregateModel
	MarketID      uuid.UUID          `gorm:"type:uuid;not null;index;index:idx_levy_setups_active_pair,unique,where:active = true"`
	OccupancyType levy.OccupancyType `gorm:"type:varchar(32);not null;index:idx_levy_setups_active_pair,unique,where:active = true"`
	Amount        decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	PaymentPeriod levy.PaymentPeriod `gorm:"type:varchar(16);not null"`
	OwnerID       uuid.UUID          `gorm:"type:uuid;not null"`
	Active        bool               `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (LevySetupModel) TableName() string {
	return "levy_setups"
}

// ToDomain converts the persistence model to a domain LevySetup
func (m *LevySetupModel) ToDomain() *levy.LevySetup {
	return &levy.LevySetup{
		BaseAggregateRoot: m.ToAggregateRoot(),
		MarketID:          m.MarketID,
		OccupancyType:     m.OccupancyType,
		Rate:              levy.Rate{Amount: m.Amount, Period: m.PaymentPeriod},
		OwnerID:           m.OwnerID,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain LevySetup
func (m *LevySetupModel) FromDomain(s *levy.LevySetup) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.MarketID = s.MarketID
	m.OccupancyType = s.OccupancyType
	m.Amount = s.Rate.Amount
	m.PaymentPeriod = s.Rate.Period
	m.OwnerID = s.OwnerID
	m.Active = s.Active
}

// LevySetupModelFromDomain creates a new persistence model from a domain LevySetup
func LevySetupModelFromDomain(s *levy.LevySetup) *LevySetupModel {
	m := &LevySetupModel{}
	m.FromDomain(s)
	return m
}

// LevyTransactionModel is the persistence model for LevyTransaction. Rows are
// append-only once paid.
type LevyTransactionModel struct {
	AggregateModel
	TraderID             uuid.UUID              `gorm:"type:uuid;not null;index:idx_levy_tx_trader_paid,priority:1"`
	MarketID             uuid.UUID              `gorm:"type:uuid;not null;index"`
	CollectorID          uuid.UUID              `gorm:"type:uuid;not null;index"`
	Amount               decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	PaymentPeriod        levy.PaymentPeriod     `gorm:"type:varchar(16);not null"`
	PaymentMethod        levy.PaymentMethod     `gorm:"type:varchar(32);not null"`
	Status               levy.TransactionStatus `gorm:"type:varchar(16);not null;index"`
	PaymentDate          time.Time              `gorm:"not null;index:idx_levy_tx_trader_paid,priority:2,sort:desc"`
	CollectionDate       *time.Time
	DueDate              *time.Time
	OccupancyType        levy.OccupancyType `gorm:"type:varchar(32)"`
	TransactionReference string             `gorm:"type:varchar(64);not null;uniqueIndex"`
	Incentive            *decimal.Decimal   `gorm:"type:decimal(18,2)"`
	Notes                string             `gorm:"type:text"`
	IdempotencyKey       *string            `gorm:"type:varchar(64);uniqueIndex"`
	QRPayload            string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LevyTransactionModel) TableName() string {
	return "levy_transactions"
}

// ToDomain converts the persistence model to a domain LevyTransaction
func (m *LevyTransactionModel) ToDomain() *levy.LevyTransaction {
	t := &levy.LevyTransaction{
		BaseAggregateRoot:    m.ToAggregateRoot(),
		TraderID:             m.TraderID,
		MarketID:             m.MarketID,
		CollectorID:          m.CollectorID,
		Rate:                 levy.Rate{Amount: m.Amount, Period: m.PaymentPeriod},
		PaymentMethod:        m.PaymentMethod,
		Status:               m.Status,
		PaymentDate:          m.PaymentDate,
		CollectionDate:       m.CollectionDate,
		DueDate:              m.DueDate,
		OccupancyType:        m.OccupancyType,
		TransactionReference: m.TransactionReference,
		Incentive:            m.Incentive,
		Notes:                m.Notes,
		QRPayload:            m.QRPayload,
	}
	if m.IdempotencyKey != nil {
		t.IdempotencyKey = *m.IdempotencyKey
	}
	return t
}

// FromDomain populates the persistence model from a domain LevyTransaction.
// An empty idempotency key is stored as NULL so the unique index ignores it.
func (m *LevyTransactionModel) FromDomain(t *levy.LevyTransaction) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.TraderID = t.TraderID
	m.MarketID = t.MarketID
	m.CollectorID = t.CollectorID
	m.Amount = t.Rate.Amount
	m.PaymentPeriod = t.Rate.Period
	m.PaymentMethod = t.PaymentMethod
	m.Status = t.Status
	m.PaymentDate = t.PaymentDate
	m.CollectionDate = t.CollectionDate
	m.DueDate = t.DueDate
	m.OccupancyType = t.OccupancyType
	m.TransactionReference = t.TransactionReference
	m.Incentive = t.Incentive
	m.Notes = t.Notes
	m.QRPayload = t.QRPayload
	m.IdempotencyKey = nil
	if t.IdempotencyKey != "" {
		key := t.IdempotencyKey
		m.IdempotencyKey = &key
	}
}

// LevyTransactionModelFromDomain creates a new persistence model from a domain LevyTransaction
func LevyTransactionModelFromDomain(t *levy.LevyTransaction) *LevyTransactionModel {
	m := &LevyTransactionModel{}
	m.FromDomain(t)
	return m
}
