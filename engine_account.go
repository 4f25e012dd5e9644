package authgate

import (
	"context"
	"errors"

	"github.com/dawmanager/authgate/internal"
	"github.com/dawmanager/authgate/token"
)

// Register creates an account and issues its first access token. The request
// is assumed schema-valid; the engine only enforces security invariants. A
// taken email returns [ErrAccountExists] whether it is caught by lookup or by
// the store's uniqueness constraint.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := e.store.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		Profile: Profile{
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", req.Email, err, nil)
			return nil, ErrAccountExists
		}
		return nil, err
	}

	accessToken, err := e.tokens.Issue(user.ID, token.ClassAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, user.Email, nil, nil)

	return &RegisterResult{User: user.View(), AccessToken: accessToken}, nil
}

// Login verifies a password credential and issues an access token. The
// returned sentinels stay distinct ([ErrUserNotFound] vs
// [ErrInvalidCredentials]) so audit trails can tell the cases apart; the
// boundary collapses both into one generic 401 message. A BLOCKED user never
// receives a token, correct password or not.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, err, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.Status == AccountBlocked {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginBlocked, false, user.ID, user.Email, ErrAccountBlocked, nil)
		return nil, ErrAccountBlocked
	}

	if !e.hasher.Verify(pass, user.PasswordHash) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	accessToken, err := e.tokens.Issue(user.ID, token.ClassAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Email, nil, nil)

	return &LoginResult{User: user.View(), AccessToken: accessToken}, nil
}

// Logout revokes the presented token, best effort. The token's digest is
// written to the revocation side table for exactly its remaining lifetime.
// Logout never fails: a missing revocation store, an unreachable redis, or a
// token that is already expired or garbage all still count as a successful
// logout, so the call is idempotent.
func (e *Engine) Logout(ctx context.Context, tokenStr string) {
	if e == nil {
		return
	}

	if e.revoker != nil && e.tokens != nil {
		if remaining, ok := e.tokens.Remaining(tokenStr); ok {
			_ = e.revoker.Revoke(ctx, internal.TokenDigest(tokenStr), remaining)
		}
	}

	var userID string
	if e.tokens != nil {
		if claims, err := e.tokens.Parse(tokenStr); err == nil {
			userID = claims.SubjectID()
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
}

// FetchUser loads the response-safe projection of one account. Callers that
// need the blocked check enforced should go through [Engine.Authenticate];
// FetchUser reports the record as stored.
func (e *Engine) FetchUser(ctx context.Context, userID string) (*UserView, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := user.View()
	return &view, nil
}
