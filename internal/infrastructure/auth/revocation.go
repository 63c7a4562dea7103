package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRevocationPrefix is the key namespace shared with the identity
// service, which writes revocations on logout and account suspension
const DefaultRevocationPrefix = "token:blacklist:"

// Revocations answers whether a still-valid token was withdrawn. A token is
// revoked when its id was revoked, or when its subject was revoked at or
// after the moment it was issued.
type Revocations interface {
	Revoked(ctx context.Context, claims *Claims) (bool, error)
}

// RedisRevocations reads the revocation keys the identity service writes:
// <prefix>jti:<id> for single tokens and <prefix>user:<id> holding a Unix
// timestamp for whole subjects.
type RedisRevocations struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRevocations(client redis.UniversalClient, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = DefaultRevocationPrefix
	}
	return &RedisRevocations{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRevocations) tokenKey(jti string) string     { return r.prefix + "jti:" + jti }
func (r *RedisRevocations) subjectKey(userID string) string { return r.prefix + "user:" + userID }

// Revoked checks both keys in a single round trip.
func (r *RedisRevocations) Revoked(ctx context.Context, claims *Claims) (bool, error) {
	vals, err := r.client.MGet(ctx, r.tokenKey(claims.ID), r.subjectKey(claims.UserID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read token revocations: %w", err)
	}
	if claims.ID != "" && vals[0] != nil {
		return true, nil
	}
	raw, ok := vals[1].(string)
	if !ok {
		return false, nil
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("malformed revocation timestamp for user %s: %w", claims.UserID, err)
	}
	return claims.GetIssuedAtTime().Unix() <= cutoff, nil
}

// RevokeToken withdraws a single token until ttl elapses, normally the
// token's remaining lifetime.
func (r *RedisRevocations) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.tokenKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeSubject withdraws every token issued to userID so far.
func (r *RedisRevocations) RevokeSubject(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.subjectKey(userID), r.now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// MemoryRevocations serves single-node deployments without Redis.
// Revocations are lost on restart.
type MemoryRevocations struct {
	mu       sync.Mutex
	tokens   map[string]time.Time // jti -> expiry
	subjects map[string]revokedSubject
	now      func() time.Time
}

type revokedSubject struct {
	at      time.Time
	expires time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		tokens:   make(map[string]time.Time),
		subjects: make(map[string]revokedSubject),
		now:      time.Now,
	}
}

func (m *MemoryRevocations) Revoked(_ context.Context, claims *Claims) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if expires, ok := m.tokens[claims.ID]; ok && claims.ID != "" {
		if now.Before(expires) {
			return true, nil
		}
		delete(m.tokens, claims.ID)
	}

	s, ok := m.subjects[claims.UserID]
	if !ok {
		return false, nil
	}
	if !now.Before(s.expires) {
		delete(m.subjects, claims.UserID)
		return false, nil
	}
	return !claims.GetIssuedAtTime().After(s.at), nil
}

func (m *MemoryRevocations) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("token id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[jti] = m.now().Add(ttl)
	return nil
}

func (m *MemoryRevocations) RevokeSubject(_ context.Context, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.subjects[userID] = revokedSubject{at: now, expires: now.Add(ttl)}
	return nil
}

var (
	_ Revocations = (*RedisRevocations)(nil)
	_ Revocations = (*MemoryRevocations)(nil)
)
