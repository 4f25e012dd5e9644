package limiters

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memAttempt struct {
	ip      string
	success bool
	at      time.Time
}

type memStore struct {
	attempts []memAttempt
	err      error
}

func (s *memStore) RecordLoginAttempt(_ context.Context, ip, _, _ string, success bool, at, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.attempts = append(s.attempts, memAttempt{ip: ip, success: success, at: at})
	return nil
}

func (s *memStore) CountFailedAttempts(_ context.Context, ip string, since time.Time) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	count := 0
	for _, a := range s.attempts {
		if a.ip == ip && !a.success && !a.at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) OldestFailedAttempt(_ context.Context, ip string, since time.Time) (time.Time, bool, error) {
	if s.err != nil {
		return time.Time{}, false, s.err
	}
	var (
		oldest time.Time
		found  bool
	)
	for _, a := range s.attempts {
		if a.ip != ip || a.success || a.at.Before(since) {
			continue
		}
		if !found || a.at.Before(oldest) {
			oldest = a.at
			found = true
		}
	}
	return oldest, found, nil
}

func (s *memStore) LastAttemptTime(_ context.Context, ip string) (time.Time, bool, error) {
	if s.err != nil {
		return time.Time{}, false, s.err
	}
	var (
		last  time.Time
		found bool
	)
	for _, a := range s.attempts {
		if a.ip != ip {
			continue
		}
		if !found || a.at.After(last) {
			last = a.at
			found = true
		}
	}
	return last, found, nil
}

func (s *memStore) PurgeAttemptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	kept := s.attempts[:0]
	var purged int64
	for _, a := range s.attempts {
		if a.at.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, a)
	}
	s.attempts = kept
	return purged, nil
}

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLimiter(store *memStore) (*LoginLimiter, *time.Time) {
	l := NewLoginLimiter(store, LoginConfig{
		MaxAttempts:   5,
		Window:        15 * time.Minute,
		BlockDuration: 30 * time.Minute,
	})
	now := testBase
	l.now = func() time.Time { return now }
	return l, &now
}

func TestBlockedExactlyOnMaxAttempts(t *testing.T) {
	store := &memStore{}
	l, _ := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "a@example.com", false); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	if blocked, _ := l.IsBlocked(ctx, "1.2.3.4"); blocked {
		t.Fatal("blocked one attempt early")
	}

	if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "a@example.com", false); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if blocked, _ := l.IsBlocked(ctx, "1.2.3.4"); !blocked {
		t.Fatal("not blocked on the fifth failure")
	}
}

func TestWindowSlides(t *testing.T) {
	store := &memStore{}
	l, now := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "", false); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
		*now = now.Add(time.Minute)
	}

	if blocked, _ := l.IsBlocked(ctx, "1.2.3.4"); !blocked {
		t.Fatal("expected blocked inside window")
	}

	// Advance until the oldest failure leaves the 15 minute window. The
	// oldest was at base, failures run base..base+4m, so at base+16m only
	// four remain in the window.
	*now = testBase.Add(16 * time.Minute)
	if blocked, _ := l.IsBlocked(ctx, "1.2.3.4"); blocked {
		t.Fatal("expected unblocked once oldest failure aged out")
	}
}

func TestTimeUntilUnblockFromOldestFailure(t *testing.T) {
	store := &memStore{}
	l, now := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "", false); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
		*now = now.Add(time.Minute)
	}
	// now = base+5m, oldest failure at base. Wait = 15m - 5m = 10m.
	remaining, ok, err := l.TimeUntilUnblock(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("TimeUntilUnblock: %v", err)
	}
	if !ok {
		t.Fatal("expected active block")
	}
	if remaining != 10*time.Minute {
		t.Fatalf("remaining = %v, want 10m", remaining)
	}
}

func TestTimeUntilUnblockNotBlocked(t *testing.T) {
	store := &memStore{}
	l, _ := newTestLimiter(store)

	_, ok, err := l.TimeUntilUnblock(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("TimeUntilUnblock: %v", err)
	}
	if ok {
		t.Fatal("no failures recorded, must not report a block")
	}
}

func TestRecordAttemptWritesBlockDurationExpiry(t *testing.T) {
	store := &memStore{}
	var captured struct {
		at, expires time.Time
	}
	probe := &probeStore{memStore: store, onRecord: func(at, expiresAt time.Time) {
		captured.at = at
		captured.expires = expiresAt
	}}
	l := NewLoginLimiter(probe, LoginConfig{
		MaxAttempts:   5,
		Window:        15 * time.Minute,
		BlockDuration: 30 * time.Minute,
	})
	l.now = func() time.Time { return testBase }

	if err := l.RecordAttempt(context.Background(), "1.2.3.4", "ua", "", false); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if got := captured.expires.Sub(captured.at); got != 30*time.Minute {
		t.Fatalf("row expiry offset = %v, want BlockDuration 30m", got)
	}
}

type probeStore struct {
	*memStore
	onRecord func(at, expiresAt time.Time)
}

func (p *probeStore) RecordLoginAttempt(ctx context.Context, ip, ua, email string, success bool, at, expiresAt time.Time) error {
	p.onRecord(at, expiresAt)
	return p.memStore.RecordLoginAttempt(ctx, ip, ua, email, success, at, expiresAt)
}

func TestStatsAggregation(t *testing.T) {
	store := &memStore{}
	l, now := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "", false); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
		*now = now.Add(time.Minute)
	}
	if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "", true); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	stats, err := l.Stats(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.RecentFailures != 3 {
		t.Fatalf("RecentFailures = %d, want 3", stats.RecentFailures)
	}
	if stats.AttemptsRemaining != 2 {
		t.Fatalf("AttemptsRemaining = %d, want 2", stats.AttemptsRemaining)
	}
	if stats.Blocked {
		t.Fatal("three failures must not block")
	}
	if !stats.LastAttempt.Equal(testBase.Add(3 * time.Minute)) {
		t.Fatalf("LastAttempt = %v, want %v", stats.LastAttempt, testBase.Add(3*time.Minute))
	}
}

func TestEveryErrorWrapsStoreUnavailable(t *testing.T) {
	store := &memStore{err: errors.New("boom")}
	l, _ := newTestLimiter(store)
	ctx := context.Background()

	if _, err := l.IsBlocked(ctx, "ip"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("IsBlocked: %v", err)
	}
	if err := l.RecordAttempt(ctx, "ip", "", "", false); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if _, _, err := l.TimeUntilUnblock(ctx, "ip"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("TimeUntilUnblock: %v", err)
	}
	if _, err := l.Stats(ctx, "ip"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Stats: %v", err)
	}
	if _, err := l.Cleanup(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestCleanupPurgesOnlyAgedRows(t *testing.T) {
	store := &memStore{}
	l, now := newTestLimiter(store)
	ctx := context.Background()

	if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "", false); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	*now = now.Add(20 * time.Minute)
	if err := l.RecordAttempt(ctx, "1.2.3.4", "ua", "", false); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	purged, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if len(store.attempts) != 1 {
		t.Fatalf("kept = %d, want 1", len(store.attempts))
	}
}
