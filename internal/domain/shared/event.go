package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact about a levy aggregate, scoped to one market and
// attributed to the chairman or officer who caused it.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	MarketID() uuid.UUID
	ActorID() uuid.UUID
}

// AggregateRef identifies the aggregate an event was raised on.
type AggregateRef struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
}

// BaseDomainEvent carries the envelope every levy event shares. Concrete
// events embed it and add their payload.
type BaseDomainEvent struct {
	ID        uuid.UUID    `json:"event_id"`
	Type      string       `json:"event_type"`
	At        time.Time    `json:"occurred_at"`
	Aggregate AggregateRef `json:"aggregate"`
	Market    uuid.UUID    `json:"market_id"`
	Actor     uuid.UUID    `json:"actor_id"`
}

func (e BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseDomainEvent) EventType() string      { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate.ID }
func (e BaseDomainEvent) AggregateType() string  { return e.Aggregate.Type }
func (e BaseDomainEvent) MarketID() uuid.UUID    { return e.Market }
func (e BaseDomainEvent) ActorID() uuid.UUID     { return e.Actor }

// NewBaseDomainEvent stamps a fresh envelope in UTC.
func NewBaseDomainEvent(eventType, aggType string, aggID, marketID, actorID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		At:        time.Now().UTC(),
		Aggregate: AggregateRef{ID: aggID, Type: aggType},
		Market:    marketID,
		Actor:     actorID,
	}
}
