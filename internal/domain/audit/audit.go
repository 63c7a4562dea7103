// Package audit defines the append-only activity log the levy engine writes to.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Module names used in audit entries
const (
	ModuleLevySetup   = "levy_setup"
	ModuleLevyPayment = "levy_payment"
)

// Entry is one audit record
type Entry struct {
	ID         uuid.UUID
	Activity   string
	Details    string
	ActorID    uuid.UUID
	Module     string
	MarketID   uuid.UUID
	RecordedAt time.Time
}

// Sink appends audit entries. Writes are best-effort: callers log failures
// and carry on.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}
