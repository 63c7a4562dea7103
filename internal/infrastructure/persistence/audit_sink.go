package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/audit"
	"github.com/marketlevy/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditSink appends audit entries to the audit_logs table
type GormAuditSink struct {
	db *gorm.DB
}

// NewGormAuditSink creates a new GormAuditSink
func NewGormAuditSink(db *gorm.DB) *GormAuditSink {
	return &GormAuditSink{db: db}
}

// Record writes one entry
func (s *GormAuditSink) Record(ctx context.Context, entry audit.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindByMarket returns the latest entries of a market, newest first
func (s *GormAuditSink) FindByMarket(ctx context.Context, marketID uuid.UUID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.AuditLogModel
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]audit.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToDomain())
	}
	return entries, nil
}

var _ audit.Sink = (*GormAuditSink)(nil)
