package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var errActiveSetupExists = shared.NewConflictError("An active levy setup already exists for this market and occupancy type")

// GormLevySetupRepository implements levy.LevySetupRepository using GORM
type GormLevySetupRepository struct {
	db *gorm.DB
}

// NewGormLevySetupRepository creates a new GormLevySetupRepository
func NewGormLevySetupRepository(db *gorm.DB) *GormLevySetupRepository {
	return &GormLevySetupRepository{db: db}
}

// FindByID finds a levy setup by its ID
func (r *GormLevySetupRepository) FindByID(ctx context.Context, id uuid.UUID) (*levy.LevySetup, error) {
	var model models.LevySetupModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds the active setup for a market and occupancy type
func (r *GormLevySetupRepository) FindActive(ctx context.Context, marketID uuid.UUID, occupancy levy.OccupancyType) (*levy.LevySetup, error) {
	var model models.LevySetupModel
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND occupancy_type = ? AND active = ?", marketID, occupancy, true).
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

// FindActiveByMarket lists the active setups of a market, newest first
func (r *GormLevySetupRepository) FindActiveByMarket(ctx context.Context, marketID uuid.UUID) ([]*levy.LevySetup, error) {
	var rows []models.LevySetupModel
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND active = ?", marketID, true).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	setups := make([]*levy.LevySetup, 0, len(rows))
	for i := range rows {
		setups = append(setups, rows[i].ToDomain())
	}
	return setups, nil
}

// CreateIfNoActive inserts the setup unless its pair already has an active
// setup. The partial unique index catches inserts that race past the check.
func (r *GormLevySetupRepository) CreateIfNoActive(ctx context.Context, setup *levy.LevySetup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := activeSetupExists(tx, setup.MarketID, setup.OccupancyType, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return errActiveSetupExists
		}
		return translateWriteError(tx.Create(models.LevySetupModelFromDomain(setup)).Error, errActiveSetupExists)
	})
}

// Update saves a mutated setup. The setup's version has already been bumped by
// the domain, so the row must still hold the previous version.
func (r *GormLevySetupRepository) Update(ctx context.Context, setup *levy.LevySetup, checkActiveConflict bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if checkActiveConflict {
			taken, err := activeSetupExists(tx, setup.MarketID, setup.OccupancyType, setup.ID)
			if err != nil {
				return err
			}
			if taken {
				return errActiveSetupExists
			}
		}

		model := models.LevySetupModelFromDomain(setup)
		result := tx.Model(&models.LevySetupModel{}).
			Scopes(model.MatchPriorVersion()).
			Updates(map[string]any{
				"market_id":      model.MarketID,
				"occupancy_type": model.OccupancyType,
				"amount":         model.Amount,
				"payment_period": model.PaymentPeriod,
				"active":         model.Active,
				"version":        model.Version,
				"updated_at":     model.UpdatedAt,
			})
		if err := translateWriteError(result.Error, errActiveSetupExists); err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return staleOrMissing(tx, setup.ID)
		}
		return nil
	})
}

func activeSetupExists(tx *gorm.DB, marketID uuid.UUID, occupancy levy.OccupancyType, excludeID uuid.UUID) (bool, error) {
	query := tx.Model(&models.LevySetupModel{}).
		Where("market_id = ? AND occupancy_type = ? AND active = ?", marketID, occupancy, true)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func staleOrMissing(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.LevySetupModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("Levy setup")
	}
	return shared.NewConflictError("Levy setup was modified concurrently, reload and retry")
}

// translateWriteError maps unique violations onto the given CONFLICT error
func translateWriteError(err error, conflict *shared.DomainError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict
	}
	return err
}

var _ levy.LevySetupRepository = (*GormLevySetupRepository)(nil)
