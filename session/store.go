package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

const minRevocationTTL = time.Second

// RevocationStore marks token digests as revoked until their natural expiry.
// Keys are SHA-256 digests, never raw tokens, so the table leaks nothing if
// dumped.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRevocationStore returns a store writing under the given key prefix.
func NewRevocationStore(client *redis.Client, prefix string) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: prefix,
	}
}

// Revoke marks a digest revoked for ttl. A ttl at or below zero means the
// token is already expired and there is nothing to revoke.
func (s *RevocationStore) Revoke(ctx context.Context, digest string, ttl time.Duration) error {
	if digest == "" || ttl <= 0 {
		return nil
	}
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	if err := s.client.Set(ctx, s.key(digest), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether a digest is in the table.
func (s *RevocationStore) IsRevoked(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.key(digest)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

func (s *RevocationStore) key(digest string) string {
	return s.prefix + digest
}
