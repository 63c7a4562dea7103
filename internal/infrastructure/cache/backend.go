package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Backend is the process-wide Redis connection shared by payment
// idempotency, token revocation and the readiness probe. A Backend without
// a client is a valid degraded mode: callers get in-memory stores instead.
type Backend struct {
	client   *redis.Client
	logger   *zap.Logger
	required bool
}

type Option func(*Backend)

func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// WithRequired makes Open fail when Redis is configured but unreachable,
// instead of degrading to per-process stores.
func WithRequired() Option {
	return func(b *Backend) { b.required = true }
}

// Open connects to Redis when cfg names a host and verifies the connection.
func Open(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Backend, error) {
	b := &Backend{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	addr := cfg.Addr()
	if addr == "" {
		b.logger.Info("Redis not configured, idempotency and revocations are per-process")
		return b, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if b.required {
			return nil, fmt.Errorf("redis at %s is required but unavailable: %w", addr, err)
		}
		b.logger.Warn("Redis unavailable, falling back to per-process stores. "+
			"Payment retries that reach another instance will not be deduplicated.",
			zap.String("addr", addr), zap.Error(err))
		return b, nil
	}

	b.logger.Info("Redis connected", zap.String("addr", addr))
	b.client = client
	return b, nil
}

// Client returns the shared client, or nil in degraded mode.
func (b *Backend) Client() *redis.Client {
	return b.client
}

// IdempotencyStore returns the Redis store when connected, otherwise a store
// local to this process.
func (b *Backend) IdempotencyStore() shared.IdempotencyStore {
	if b.client == nil {
		return NewInMemoryIdempotencyStore()
	}
	return NewRedisIdempotencyStoreWithClient(b.client, DefaultKeyPrefix)
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
