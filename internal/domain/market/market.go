// Package market holds the read-only views of markets, traders and
// collection officers that the levy engine consumes. Their lifecycle is owned
// by another service.
package market

import (
	"strings"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
)

// Market is a physical market administered by a local government
type Market struct {
	ID              uuid.UUID
	Name            string
	LocalGovernment string
	State           string
}

// BuildingTypeAssignment records how many units of a building type a trader holds
type BuildingTypeAssignment struct {
	BuildingType levy.OccupancyType
	Count        int
}

// Trader is a levy payer registered in a market
type Trader struct {
	ID                      uuid.UUID
	MarketID                uuid.UUID
	TIN                     string
	BusinessName            string
	FirstName               string
	LastName                string
	OccupancyType           levy.OccupancyType
	BuildingTypeAssignments []BuildingTypeAssignment
	QRToken                 string
}

// DisplayName prefers the business name and falls back to the person's name
func (t *Trader) DisplayName() string {
	if name := strings.TrimSpace(t.BusinessName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(t.FirstName) + " " + strings.TrimSpace(t.LastName))
}

// BuildingTypeCount is the number of distinct building types assigned.
// A trader with no assignments but a known occupancy type occupies one unit.
func (t *Trader) BuildingTypeCount() int {
	distinct := make(map[levy.OccupancyType]struct{}, len(t.BuildingTypeAssignments))
	for _, a := range t.BuildingTypeAssignments {
		distinct[a.BuildingType] = struct{}{}
	}
	if len(distinct) == 0 && t.OccupancyType.IsValid() {
		return 1
	}
	return len(distinct)
}

// Officer is a field agent who collects levies in one market
type Officer struct {
	ID       uuid.UUID
	MarketID uuid.UUID
	UserID   uuid.UUID
	Active   bool
}

// CanCollectFrom reports whether the officer may collect from the trader.
// Authorization is purely market equality.
func (o *Officer) CanCollectFrom(t *Trader) bool {
	return o.MarketID == t.MarketID
}
