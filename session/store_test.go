package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRevocationStore(client, "test:revoked:"), mr
}

func TestRevokeThenLookup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "digest-a")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatalf("fresh digest reported revoked")
	}

	if err := store.Revoke(ctx, "digest-a", time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err = store.IsRevoked(ctx, "digest-a")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatalf("revoked digest not found")
	}
}

func TestRevocationExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "digest-b", 30*time.Second); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	mr.FastForward(31 * time.Second)

	revoked, err := store.IsRevoked(ctx, "digest-b")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatalf("digest still revoked after ttl")
	}
}

func TestRevokeExpiredTokenIsNoOp(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "digest-c", 0); err != nil {
		t.Fatalf("Revoke with zero ttl: %v", err)
	}
	if err := store.Revoke(ctx, "digest-c", -time.Minute); err != nil {
		t.Fatalf("Revoke with negative ttl: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys written, got %v", mr.Keys())
	}
}

func TestRevokeEmptyDigestIsNoOp(t *testing.T) {
	store, mr := newTestStore(t)

	if err := store.Revoke(context.Background(), "", time.Minute); err != nil {
		t.Fatalf("Revoke with empty digest: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys written, got %v", mr.Keys())
	}
}

func TestLookupAfterRedisDown(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Close()

	if _, err := store.IsRevoked(ctx, "digest-d"); err == nil {
		t.Fatalf("expected error with redis down")
	}
	if err := store.Revoke(ctx, "digest-d", time.Minute); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
