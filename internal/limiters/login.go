package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable indicates the attempt store is unreachable. Callers
// must treat this as a rejection (fail closed), never as "not blocked".
var ErrStoreUnavailable = errors.New("attempt store unavailable")

// AttemptStore is the narrow slice of the credential store the login limiter
// needs. The root CredentialStore satisfies it structurally.
type AttemptStore interface {
	RecordLoginAttempt(ctx context.Context, ip, userAgent, email string, success bool, at, expiresAt time.Time) error
	CountFailedAttempts(ctx context.Context, ip string, since time.Time) (int, error)
	OldestFailedAttempt(ctx context.Context, ip string, since time.Time) (at time.Time, ok bool, err error)
	LastAttemptTime(ctx context.Context, ip string) (at time.Time, ok bool, err error)
	PurgeAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginConfig tunes the sliding window. Window bounds the blocking decision;
// BlockDuration is written verbatim as each row's expiry and is otherwise
// unused by the decision logic. Both knobs are kept because the stored
// expiry outlives the window on purpose (retention vs. decision horizon).
type LoginConfig struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Stats is the read-only aggregate for one source IP.
type Stats struct {
	RecentFailures    int
	AttemptsRemaining int
	LastAttempt       time.Time
	Blocked           bool
	TimeRemaining     time.Duration
}

// LoginLimiter counts failed attempts per source IP over a sliding window.
type LoginLimiter struct {
	store  AttemptStore
	config LoginConfig
	now    func() time.Time
}

// NewLoginLimiter creates a limiter over the given attempt store.
func NewLoginLimiter(store AttemptStore, cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

// IsBlocked reports whether ip has accumulated MaxAttempts failures inside
// the window ending now.
func (l *LoginLimiter) IsBlocked(ctx context.Context, ip string) (bool, error) {
	count, err := l.recentFailures(ctx, ip)
	if err != nil {
		return false, err
	}
	return count >= l.config.MaxAttempts, nil
}

// RecordAttempt appends one immutable attempt row, success or failure.
// The row's expiry is now+BlockDuration regardless of outcome.
func (l *LoginLimiter) RecordAttempt(ctx context.Context, ip, userAgent, email string, success bool) error {
	now := l.now()
	if err := l.store.RecordLoginAttempt(ctx, ip, userAgent, email, success, now, now.Add(l.config.BlockDuration)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TimeUntilUnblock returns how long until the oldest in-window failure ages
// out: Window - (now - oldest). ok is false when ip is not blocked or no
// qualifying failure exists.
func (l *LoginLimiter) TimeUntilUnblock(ctx context.Context, ip string) (time.Duration, bool, error) {
	blocked, err := l.IsBlocked(ctx, ip)
	if err != nil {
		return 0, false, err
	}
	if !blocked {
		return 0, false, nil
	}

	now := l.now()
	oldest, ok, err := l.store.OldestFailedAttempt(ctx, ip, now.Add(-l.config.Window))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return 0, false, nil
	}

	remaining := l.config.Window - now.Sub(oldest)
	if remaining <= 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}

// Stats aggregates the window state for ip in one read-only pass.
func (l *LoginLimiter) Stats(ctx context.Context, ip string) (Stats, error) {
	count, err := l.recentFailures(ctx, ip)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		RecentFailures: count,
		Blocked:        count >= l.config.MaxAttempts,
	}
	if remaining := l.config.MaxAttempts - count; remaining > 0 {
		stats.AttemptsRemaining = remaining
	}

	if last, ok, err := l.store.LastAttemptTime(ctx, ip); err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	} else if ok {
		stats.LastAttempt = last
	}

	if stats.Blocked {
		if remaining, ok, err := l.TimeUntilUnblock(ctx, ip); err != nil {
			return Stats{}, err
		} else if ok {
			stats.TimeRemaining = remaining
		}
	}

	return stats, nil
}

// Cleanup purges attempts older than the window. Storage hygiene only; the
// blocking decision is already windowed and never depends on it.
func (l *LoginLimiter) Cleanup(ctx context.Context) (int64, error) {
	purged, err := l.store.PurgeAttemptsBefore(ctx, l.now().Add(-l.config.Window))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return purged, nil
}

func (l *LoginLimiter) recentFailures(ctx context.Context, ip string) (int, error) {
	count, err := l.store.CountFailedAttempts(ctx, ip, l.now().Add(-l.config.Window))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}
