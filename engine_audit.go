package authgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess   = "register_success"
	auditEventRegisterDuplicate = "register_duplicate"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginBlocked      = "login_blocked"
	auditEventLogout            = "logout"
	auditEventRateLimitHit      = "rate_limit_triggered"
	auditEventTOTPSetup         = "totp_setup_requested"
	auditEventTOTPEnabled       = "totp_enabled"
	auditEventTOTPFailure       = "totp_failure"
	auditEventRecoveryCodes     = "recovery_codes_regenerated"
	auditEventTokenRejected     = "token_rejected"
)

func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrAccountExists):
		return "duplicate"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountBlocked):
		return "account_blocked"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, ErrTokenSignature):
		return "token_signature"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrTwoFactorInvalid):
		return "totp_invalid"
	case errors.Is(err, ErrTwoFactorNotConfigured):
		return "totp_not_configured"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	e.audit.Emit(ctx, event)
}
