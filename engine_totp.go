package authgate

import (
	"context"
	"time"

	"github.com/dawmanager/authgate/internal"
	"github.com/dawmanager/authgate/internal/flows"
)

// SetupTwoFactor starts (or restarts) two-factor enrollment for a user: it
// generates a fresh secret, stores it with status PENDING, and returns the
// secret plus the otpauth:// provisioning URI. Calling it again before
// verification overwrites the previous secret; codes from an earlier
// enrollment attempt stop validating.
func (e *Engine) SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	if e == nil || e.store == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunSetupTwoFactor(ctx, userID, e.twoFactorFlowDeps())
	if err != nil {
		return nil, err
	}
	return &TwoFactorSetup{
		Secret:          result.Secret,
		ProvisioningURI: result.ProvisioningURI,
	}, nil
}

// VerifyTwoFactor checks a submitted TOTP code against the stored secret.
// The first success after enrollment activates two-factor and atomically
// replaces the user's recovery-code set; later successes change nothing. A
// wrong code returns [ErrTwoFactorInvalid] and leaves all state untouched.
func (e *Engine) VerifyTwoFactor(ctx context.Context, userID, code string) error {
	if e == nil || e.store == nil || e.totp == nil {
		return ErrEngineNotReady
	}

	ok, err := flows.RunVerifyTwoFactor(ctx, userID, code, e.twoFactorFlowDeps())
	if err != nil {
		return err
	}
	if !ok {
		return ErrTwoFactorInvalid
	}
	return nil
}

// RecoveryCodes lists the user's unused recovery codes. The set only exists
// once two-factor is ACTIVE.
func (e *Engine) RecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	records, err := e.store.RecoveryCodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(records))
	for _, r := range records {
		codes = append(codes, r.Code)
	}
	return codes, nil
}

func (e *Engine) twoFactorFlowDeps() flows.TwoFactorDeps {
	return flows.TwoFactorDeps{
		RecoveryCount:  e.config.Recovery.Count,
		RecoveryLength: e.config.Recovery.Length,

		GetUserByID: func(ctx context.Context, userID string) (flows.TwoFactorUser, error) {
			user, err := e.store.GetUserByID(ctx, userID)
			if err != nil {
				return flows.TwoFactorUser{}, err
			}
			return flows.TwoFactorUser{
				ID:        user.ID,
				Email:     user.Email,
				Status:    flowAccountStatus(user.Status),
				TwoFactor: flowTwoFactorStatus(user.TwoFactorStatus),
				Secret:    user.TwoFactorSecret,
			}, nil
		},
		SaveSecret:           e.store.SetTwoFactorSecret,
		Activate:             e.store.ActivateTwoFactor,
		ReplaceRecoveryCodes: e.store.ReplaceRecoveryCodes,

		GenerateSecret: func() (string, error) {
			_, secretBase32, err := e.totp.GenerateSecret()
			return secretBase32, err
		},
		ProvisionURI: e.totp.ProvisionURI,
		VerifyCode: func(secret, code string, now time.Time) (bool, error) {
			raw, err := decodeTOTPSecret(secret)
			if err != nil {
				// A stored secret that no longer decodes is treated the
				// same as no secret at all.
				return false, ErrTwoFactorNotConfigured
			}
			return e.totp.VerifyCode(raw, code, now)
		},
		NewRecoveryCodes: internal.NewRecoveryCodes,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,

		Metrics: flows.TwoFactorMetrics{
			Setup:               int(MetricTOTPSetup),
			VerifySuccess:       int(MetricTOTPSuccess),
			VerifyFailure:       int(MetricTOTPFailure),
			RecoveryRegenerated: int(MetricRecoveryCodesRegenerated),
		},
		Events: flows.TwoFactorEvents{
			Setup:             auditEventTOTPSetup,
			Enabled:           auditEventTOTPEnabled,
			Failure:           auditEventTOTPFailure,
			RecoveryGenerated: auditEventRecoveryCodes,
		},
		Errors: flows.TwoFactorErrors{
			EngineNotReady: ErrEngineNotReady,
			UserNotFound:   ErrUserNotFound,
			AccountBlocked: ErrAccountBlocked,
			NotConfigured:  ErrTwoFactorNotConfigured,
		},
	}
}

func flowAccountStatus(s AccountStatus) uint8 {
	if s == AccountBlocked {
		return flows.AccountBlocked
	}
	return flows.AccountActive
}

func flowTwoFactorStatus(s TwoFactorStatus) uint8 {
	switch s {
	case TwoFactorPending:
		return flows.TwoFactorPending
	case TwoFactorActive:
		return flows.TwoFactorActive
	default:
		return flows.TwoFactorDisabled
	}
}
