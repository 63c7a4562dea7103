package market

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return nil, nil when the record does not exist.

// MarketReader looks up markets
type MarketReader interface {
	FindMarketByID(ctx context.Context, id uuid.UUID) (*Market, error)
}

// TraderReader looks up traders
type TraderReader interface {
	FindTraderByID(ctx context.Context, id uuid.UUID) (*Trader, error)
	FindTradersByMarket(ctx context.Context, marketID uuid.UUID) ([]*Trader, error)
	TINExists(ctx context.Context, tin string) (bool, error)
}

// OfficerReader looks up collection officers
type OfficerReader interface {
	FindOfficerByID(ctx context.Context, id uuid.UUID) (*Officer, error)
	// FindOfficerByUserID maps an authenticated user onto their officer
	// record, preferring an active one
	FindOfficerByUserID(ctx context.Context, userID uuid.UUID) (*Officer, error)
	FindOfficersByMarket(ctx context.Context, marketID uuid.UUID) ([]*Officer, error)
}

// Directory bundles every lookup the levy engine needs
type Directory interface {
	MarketReader
	TraderReader
	OfficerReader
}
