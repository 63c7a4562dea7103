package levy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LevySetupRepository persists levy setups
type LevySetupRepository interface {
	// FindByID returns nil, nil when the setup does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*LevySetup, error)

	// FindActive returns the active setup for the pair, or nil, nil. When more
	// than one active row exists the most recently created wins.
	FindActive(ctx context.Context, marketID uuid.UUID, occupancy OccupancyType) (*LevySetup, error)

	// FindActiveByMarket returns all active setups of a market, newest first
	FindActiveByMarket(ctx context.Context, marketID uuid.UUID) ([]*LevySetup, error)

	// CreateIfNoActive inserts the setup unless an active setup already exists
	// for its (market, occupancy) pair. The check and the insert share one
	// database transaction. Returns a CONFLICT domain error when taken.
	CreateIfNoActive(ctx context.Context, setup *LevySetup) error

	// Update saves a mutated setup with an optimistic version check. When
	// checkActiveConflict is set, the same one-active-setup rule as
	// CreateIfNoActive is enforced against the setup's current pair.
	Update(ctx context.Context, setup *LevySetup, checkActiveConflict bool) error
}

// TransactionFilter narrows a trader's transaction history
type TransactionFilter struct {
	From *time.Time
	To   *time.Time
}

// LevyTransactionRepository persists levy transactions
type LevyTransactionRepository interface {
	// FindByID returns nil, nil when the transaction does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*LevyTransaction, error)

	// FindByTrader returns the trader's transactions, newest payment first
	FindByTrader(ctx context.Context, traderID uuid.UUID, filter TransactionFilter) ([]*LevyTransaction, error)

	// FindByIdempotencyKey returns the transaction recorded under key, or nil, nil
	FindByIdempotencyKey(ctx context.Context, key string) (*LevyTransaction, error)

	// Create appends a new transaction
	Create(ctx context.Context, tx *LevyTransaction) error
}
