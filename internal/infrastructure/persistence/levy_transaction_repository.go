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

// GormLevyTransactionRepository implements levy.LevyTransactionRepository using GORM
type GormLevyTransactionRepository struct {
	db *gorm.DB
}

// NewGormLevyTransactionRepository creates a new GormLevyTransactionRepository
func NewGormLevyTransactionRepository(db *gorm.DB) *GormLevyTransactionRepository {
	return &GormLevyTransactionRepository{db: db}
}

// FindByID finds a levy transaction by its ID
func (r *GormLevyTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*levy.LevyTransaction, error) {
	var model models.LevyTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTrader returns a trader's transactions, newest payment first. Both
// ends of the filter are inclusive.
func (r *GormLevyTransactionRepository) FindByTrader(ctx context.Context, traderID uuid.UUID, filter levy.TransactionFilter) ([]*levy.LevyTransaction, error) {
	query := r.db.WithContext(ctx).Where("trader_id = ?", traderID)
	if filter.From != nil {
		query = query.Where("payment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("payment_date <= ?", *filter.To)
	}

	var rows []models.LevyTransactionModel
	if err := query.Order("payment_date DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	txs := make([]*levy.LevyTransaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].ToDomain())
	}
	return txs, nil
}

// FindByIdempotencyKey returns the transaction recorded under key
func (r *GormLevyTransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*levy.LevyTransaction, error) {
	if key == "" {
		return nil, nil
	}
	var model models.LevyTransactionModel
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create appends a new transaction. A reused reference or idempotency key is
// reported as CONFLICT.
func (r *GormLevyTransactionRepository) Create(ctx context.Context, tx *levy.LevyTransaction) error {
	err := r.db.WithContext(ctx).Create(models.LevyTransactionModelFromDomain(tx)).Error
	return translateWriteError(err, shared.NewConflictError("A transaction with this reference or request id already exists"))
}

var _ levy.LevyTransactionRepository = (*GormLevyTransactionRepository)(nil)
