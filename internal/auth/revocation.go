package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers revoked session token ids until they would
// have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationStore keeps the revocation list in Redis with per-entry TTL.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore wraps a connected Redis client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	if client == nil {
		return nil
	}
	return &RedisRevocationStore{client: client}
}

func revocationKey(tokenID string) string {
	return "session:revoked:" + tokenID
}

// Revoke marks the token id revoked until its natural expiry.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revocationKey(tokenID), "1", ttl).Err()
}

// IsRevoked reports whether the token id is on the revocation list.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoopRevocationStore is used when Redis is not configured; logout then
// only clears the cookie.
type NoopRevocationStore struct{}

func (NoopRevocationStore) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevocationStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }
