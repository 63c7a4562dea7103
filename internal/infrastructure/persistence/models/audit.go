package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/audit"
)

// AuditLogModel maps the audit_logs table
type AuditLogModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Activity   string    `gorm:"type:varchar(200);not null"`
	Details    string    `gorm:"type:text"`
	ActorID    uuid.UUID `gorm:"type:uuid;index"`
	Module     string    `gorm:"type:varchar(64);not null;index"`
	MarketID   uuid.UUID `gorm:"type:uuid;index"`
	RecordedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// AuditLogModelFromDomain creates a persistence model from an audit entry
func AuditLogModelFromDomain(e audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ID:         e.ID,
		Activity:   e.Activity,
		Details:    e.Details,
		ActorID:    e.ActorID,
		Module:     e.Module,
		MarketID:   e.MarketID,
		RecordedAt: e.RecordedAt,
	}
}

// ToDomain converts the persistence model to an audit entry
func (m *AuditLogModel) ToDomain() audit.Entry {
	return audit.Entry{
		ID:         m.ID,
		Activity:   m.Activity,
		Details:    m.Details,
		ActorID:    m.ActorID,
		Module:     m.Module,
		MarketID:   m.MarketID,
		RecordedAt: m.RecordedAt,
	}
}
