package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks client request keys so that a retried request
// resolves to the result of the first attempt instead of being applied twice.
//
// A key moves through two states: reserved (work in flight, empty result)
// and completed (result recorded). Keys expire after their TTL.
type IdempotencyStore interface {
	// Reserve claims the key with a TTL.
	// Returns true if the key was newly reserved, false if it already exists.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete records the result for a reserved key, replacing the TTL.
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Result returns the recorded result. found is false when the key is unknown
	// or expired; result is empty while the key is reserved but not completed.
	Result(ctx context.Context, key string) (result string, found bool, err error)

	// Release drops a reservation so the client may retry after a failure.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL bounds how long a reservation or recorded result is kept in the
	// IdempotencyStore. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether client request keys are honoured at all.
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
