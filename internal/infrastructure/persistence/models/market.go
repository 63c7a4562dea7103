package models

import (
	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/market"
)

// The market directory tables are owned by the registration service. The levy
// engine only reads them, so these models carry no version column.

// MarketModel maps the markets table
type MarketModel struct {
	BaseModel
	Name            string `gorm:"type:varchar(200);not null"`
	LocalGovernment string `gorm:"type:varchar(100);not null"`
	State           string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (MarketModel) TableName() string {
	return "markets"
}

// ToDomain converts the persistence model to a domain Market
func (m *MarketModel) ToDomain() *market.Market {
	return &market.Market{
		ID:              m.ID,
		Name:            m.Name,
		LocalGovernment: m.LocalGovernment,
		State:           m.State,
	}
}

// TraderModel maps the traders table
type TraderModel struct {
	BaseModel
	MarketID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	TIN           string                   `gorm:"column:tin;type:varchar(32);index"`
	BusinessName  string                   `gorm:"type:varchar(200)"`
	FirstName     string                   `gorm:"type:varchar(100)"`
	LastName      string                   `gorm:"type:varchar(100)"`
	OccupancyType levy.OccupancyType       `gorm:"type:varchar(32)"`
	QRToken       string                   `gorm:"column:qr_token;type:text"`
	BuildingTypes []TraderBuildingTypeModel `gorm:"foreignKey:TraderID"`
}

// TableName returns the table name for GORM
func (TraderModel) TableName() string {
	return "traders"
}

// ToDomain converts the persistence model to a domain Trader
func (m *TraderModel) ToDomain() *market.Trader {
	t := &market.Trader{
		ID:            m.ID,
		MarketID:      m.MarketID,
		TIN:           m.TIN,
		BusinessName:  m.BusinessName,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		OccupancyType: m.OccupancyType,
		QRToken:       m.QRToken,
	}
	for _, bt := range m.BuildingTypes {
		t.BuildingTypeAssignments = append(t.BuildingTypeAssignments, market.BuildingTypeAssignment{
			BuildingType: bt.BuildingType,
			Count:        bt.Count,
		})
	}
	return t
}

// TraderBuildingTypeModel maps trader_building_types
type TraderBuildingTypeModel struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key"`
	TraderID     uuid.UUID          `gorm:"type:uuid;not null;index"`
	BuildingType levy.OccupancyType `gorm:"type:varchar(32);not null"`
	Count        int                `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (TraderBuildingTypeModel) TableName() string {
	return "trader_building_types"
}

// OfficerModel maps the officers table
type OfficerModel struct {
	BaseModel
	MarketID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Active   bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (OfficerModel) TableName() string {
	return "officers"
}

// ToDomain converts the persistence model to a domain Officer
func (m *OfficerModel) ToDomain() *market.Officer {
	return &market.Officer{
		ID:       m.ID,
		MarketID: m.MarketID,
		UserID:   m.UserID,
		Active:   m.Active,
	}
}
