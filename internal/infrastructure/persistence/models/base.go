package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// BaseModel holds the id and timestamp columns shared by every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the optimistic-lock version of levy setups and
// transactions
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// ToAggregateRoot rebuilds the aggregate header. It starts with no pending
// events since events are never stored.
func (m *AggregateModel) ToAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.entity(), Version: m.Version}
}

// FromDomainAggregateRoot copies the aggregate header into the row
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.Version = a.Version
}

// MatchPriorVersion scopes an update to the row version the aggregate was
// loaded at. Domain mutations bump Version once, so the stored row must
// still be at Version-1; zero rows affected means a concurrent writer won.
func (m *AggregateModel) MatchPriorVersion() func(*gorm.DB) *gorm.DB {
	id, prior := m.ID, m.Version-1
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ? AND version = ?", id, prior)
	}
}
