package authgate

import (
	"context"
	"errors"

	"github.com/dawmanager/authgate/internal"
	"github.com/dawmanager/authgate/internal/limiters"
	"github.com/dawmanager/authgate/password"
	"github.com/dawmanager/authgate/session"
	"github.com/dawmanager/authgate/token"
)

// Engine is the authentication core. It is assembled by [Builder.Build],
// configured once, and safe for concurrent use afterwards. The engine owns
// every security decision; HTTP boundaries translate its errors into status
// codes and set cookies, nothing more.
type Engine struct {
	config  Config
	store   CredentialStore
	hasher  *password.Argon2
	totp    *totpManager
	tokens  *token.Manager
	limiter *limiters.LoginLimiter
	revoker *session.RevocationStore
	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies every counter at a point in time.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authenticate validates a presented access token end to end: signature and
// expiry, the revocation side table, then a live account lookup so a user
// blocked after issuance is rejected immediately. Only ACCESS-class tokens
// authenticate a request.
func (e *Engine) Authenticate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.tokens == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		mapped := mapTokenError(err)
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", mapped, nil)
		return nil, mapped
	}
	if claims.Class != token.ClassAccess {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, false, claims.SubjectID(), "", ErrTokenMalformed, nil)
		return nil, ErrTokenMalformed
	}

	// The revocation table is best-effort: an unreachable redis must not
	// take authentication down, so lookup errors read as "not revoked".
	if e.revoker != nil {
		revoked, err := e.revoker.IsRevoked(ctx, internal.TokenDigest(tokenStr))
		if err == nil && revoked {
			e.metricInc(MetricTokenRejected)
			e.emitAudit(ctx, auditEventTokenRejected, false, claims.SubjectID(), "", ErrTokenRevoked, nil)
			return nil, ErrTokenRevoked
		}
	}

	user, err := e.store.GetUserByID(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricTokenRejected)
			e.emitAudit(ctx, auditEventTokenRejected, false, claims.SubjectID(), "", err, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Status == AccountBlocked {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, false, user.ID, user.Email, ErrAccountBlocked, nil)
		return nil, ErrAccountBlocked
	}

	return &AuthResult{User: user.View()}, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrBadSignature):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}
