package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dawmanager/authgate/internal/limiters"
)

// IsIPBlocked reports whether the source IP is inside an active block
// window and must be pre-empted before the password is even looked at. An
// unreachable attempt store fails closed: the caller gets
// [ErrStoreUnavailable] and must reject the request.
func (e *Engine) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	if e == nil || e.limiter == nil {
		return false, ErrEngineNotReady
	}
	blocked, err := e.limiter.IsBlocked(ctx, ip)
	if err != nil {
		return false, mapLimiterError(err)
	}
	if blocked {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventRateLimitHit, false, "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"ip": ip}
		})
	}
	return blocked, nil
}

// RecordLoginAttempt appends one attempt row for the caller's IP, success or
// failure. IP and user agent are taken from the context (see [WithClientIP]
// and [WithUserAgent]).
func (e *Engine) RecordLoginAttempt(ctx context.Context, email string, success bool) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)
	userAgent := userAgentFromContext(ctx)
	if err := e.limiter.RecordAttempt(ctx, ip, userAgent, email, success); err != nil {
		return mapLimiterError(err)
	}
	return nil
}

// LoginAttemptStats aggregates the recent attempt history for one IP:
// failures inside the window, attempts remaining before the block trips,
// and the time left on an active block.
func (e *Engine) LoginAttemptStats(ctx context.Context, ip string) (AttemptStats, error) {
	if e == nil || e.limiter == nil {
		return AttemptStats{}, ErrEngineNotReady
	}
	stats, err := e.limiter.Stats(ctx, ip)
	if err != nil {
		return AttemptStats{}, mapLimiterError(err)
	}
	return AttemptStats{
		RecentFailures:    stats.RecentFailures,
		AttemptsRemaining: stats.AttemptsRemaining,
		LastAttempt:       stats.LastAttempt,
		Blocked:           stats.Blocked,
		TimeRemaining:     stats.TimeRemaining,
	}, nil
}

// TimeUntilUnblock reports how long an actively blocked IP stays blocked.
// ok is false when the IP is not currently blocked.
func (e *Engine) TimeUntilUnblock(ctx context.Context, ip string) (time.Duration, bool, error) {
	if e == nil || e.limiter == nil {
		return 0, false, ErrEngineNotReady
	}
	remaining, ok, err := e.limiter.TimeUntilUnblock(ctx, ip)
	if err != nil {
		return 0, false, mapLimiterError(err)
	}
	return remaining, ok, nil
}

// CleanupLoginAttempts purges attempt rows that have aged out of the
// decision window. Retention housekeeping only; run it from a periodic job.
func (e *Engine) CleanupLoginAttempts(ctx context.Context) (int64, error) {
	if e == nil || e.limiter == nil {
		return 0, ErrEngineNotReady
	}
	purged, err := e.limiter.Cleanup(ctx)
	if err != nil {
		return 0, mapLimiterError(err)
	}
	return purged, nil
}

func mapLimiterError(err error) error {
	if errors.Is(err, limiters.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
