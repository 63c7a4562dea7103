package levy

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeLevySetup is the aggregate type name for levy setups
const AggregateTypeLevySetup = "LevySetup"

// LevySetup is the rate template a chairman defines for one occupancy type in
// one market. At most one setup per (market, occupancy) is active.
type LevySetup struct {
	shared.BaseAggregateRoot
	MarketID      uuid.UUID
	OccupancyType OccupancyType
	Rate          Rate
	OwnerID       uuid.UUID
	Active        bool
}

// SetupChanges carries a partial update. Nil fields are left untouched.
type SetupChanges struct {
	Amount   *decimal.Decimal
	Period   *PaymentPeriod
	MarketID *uuid.UUID
}

// IsEmpty reports whether no field was supplied
func (c SetupChanges) IsEmpty() bool {
	return c.Amount == nil && c.Period == nil && c.MarketID == nil
}

// NewLevySetup creates a new active levy setup
func NewLevySetup(marketID uuid.UUID, occupancy OccupancyType, rate Rate, ownerID uuid.UUID, now time.Time) (*LevySetup, error) {
	if marketID == uuid.Nil {
		return nil, shared.NewValidationError("Market ID cannot be empty")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewValidationError("Owner ID cannot be empty")
	}
	if !occupancy.IsValid() {
		return nil, shared.NewValidationError("Invalid occupancy type: " + occupancy.String())
	}
	validated, err := NewRate(rate.Amount, rate.Period)
	if err != nil {
		return nil, err
	}

	setup := &LevySetup{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		MarketID:          marketID,
		OccupancyType:     occupancy,
		Rate:              validated,
		OwnerID:           ownerID,
		Active:            true,
	}

	setup.AddDomainEvent(NewLevySetupConfiguredEvent(setup))

	return setup, nil
}

// ApplyChanges mutates only the supplied fields. It returns true when the
// market moved, in which case the caller must re-check the one-active-setup
// rule for the new (market, occupancy) pair.
func (s *LevySetup) ApplyChanges(changes SetupChanges, actorID uuid.UUID, now time.Time) (bool, error) {
	if changes.IsEmpty() {
		return false, shared.NewValidationError("At least one of amount, period or market must be supplied")
	}

	rate := s.Rate
	if changes.Amount != nil {
		rate.Amount = *changes.Amount
	}
	if changes.Period != nil {
		rate.Period = *changes.Period
	}
	validated, err := NewRate(rate.Amount, rate.Period)
	if err != nil {
		return false, err
	}

	marketChanged := false
	previousMarket := s.MarketID
	if changes.MarketID != nil {
		if *changes.MarketID == uuid.Nil {
			return false, shared.NewValidationError("Market ID cannot be empty")
		}
		marketChanged = *changes.MarketID != s.MarketID
		s.MarketID = *changes.MarketID
	}

	previousRate := s.Rate
	s.Rate = validated
	s.Touch(now)

	s.AddDomainEvent(NewLevySetupUpdatedEvent(s, previousRate, previousMarket, actorID))

	return marketChanged, nil
}

// Deactivate retires the setup so a replacement can be configured
func (s *LevySetup) Deactivate(actorID uuid.UUID, now time.Time) error {
	if !s.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "Levy setup is already inactive")
	}
	s.Active = false
	s.Touch(now)

	s.AddDomainEvent(NewLevySetupDeactivatedEvent(s, actorID))

	return nil
}
