package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/market"
	"github.com/marketlevy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMarketDirectory reads markets, traders and officers from the tables the
// registration service maintains
type GormMarketDirectory struct {
	db *gorm.DB
}

// NewGormMarketDirectory creates a new GormMarketDirectory
func NewGormMarketDirectory(db *gorm.DB) *GormMarketDirectory {
	return &GormMarketDirectory{db: db}
}

// FindMarketByID finds a market by its ID
func (d *GormMarketDirectory) FindMarketByID(ctx context.Context, id uuid.UUID) (*market.Market, error) {
	var model models.MarketModel
	if err := d.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTraderByID finds a trader with its building type assignments
func (d *GormMarketDirectory) FindTraderByID(ctx context.Context, id uuid.UUID) (*market.Trader, error) {
	var model models.TraderModel
	if err := d.db.WithContext(ctx).Preload("BuildingTypes").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTradersByMarket lists the traders of a market ordered by business name
func (d *GormMarketDirectory) FindTradersByMarket(ctx context.Context, marketID uuid.UUID) ([]*market.Trader, error) {
	var rows []models.TraderModel
	err := d.db.WithContext(ctx).
		Preload("BuildingTypes").
		Where("market_id = ?", marketID).
		Order("business_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	traders := make([]*market.Trader, 0, len(rows))
	for i := range rows {
		traders = append(traders, rows[i].ToDomain())
	}
	return traders, nil
}

// TINExists reports whether any trader already holds the TIN
func (d *GormMarketDirectory) TINExists(ctx context.Context, tin string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.TraderModel{}).Where("tin = ?", tin).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindOfficerByID finds a collection officer by its ID
func (d *GormMarketDirectory) FindOfficerByID(ctx context.Context, id uuid.UUID) (*market.Officer, error) {
	var model models.OfficerModel
	if err := d.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOfficerByUserID finds the officer record of an identity-service user.
// An active record wins over deactivated ones, then the newest.
func (d *GormMarketDirectory) FindOfficerByUserID(ctx context.Context, userID uuid.UUID) (*market.Officer, error) {
	var model models.OfficerModel
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("active DESC").
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOfficersByMarket lists the officers assigned to a market
func (d *GormMarketDirectory) FindOfficersByMarket(ctx context.Context, marketID uuid.UUID) ([]*market.Officer, error) {
	var rows []models.OfficerModel
	if err := d.db.WithContext(ctx).Where("market_id = ?", marketID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	officers := make([]*market.Officer, 0, len(rows))
	for i := range rows {
		officers = append(officers, rows[i].ToDomain())
	}
	return officers, nil
}

var _ market.Directory = (*GormMarketDirectory)(nil)
