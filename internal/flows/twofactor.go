package flows

import (
	"context"
	"strconv"
	"time"
)

// Flow-local encodings of the host's status enums. Kept as plain uint8 so
// this package never imports the root package.
const (
	AccountActive  uint8 = 0
	AccountBlocked uint8 = 1

	TwoFactorDisabled uint8 = 0
	TwoFactorPending  uint8 = 1
	TwoFactorActive   uint8 = 2
)

// TwoFactorUser is the flow-local user model for enrollment and verification.
type TwoFactorUser struct {
	ID        string
	Email     string
	Status    uint8
	TwoFactor uint8
	// Secret is the stored base32 TOTP secret, empty while DISABLED.
	Secret string
}

// TwoFactorSetupResult carries the enrollment artifacts back to the engine.
type TwoFactorSetupResult struct {
	Secret          string
	ProvisioningURI string
}

// TwoFactorMetrics carries metric IDs used by the two-factor flows.
type TwoFactorMetrics struct {
	Setup               int
	VerifySuccess       int
	VerifyFailure       int
	RecoveryRegenerated int
}

// TwoFactorEvents carries audit event names used by the two-factor flows.
type TwoFactorEvents struct {
	Setup             string
	Enabled           string
	Failure           string
	RecoveryGenerated string
}

// TwoFactorErrors carries host-level sentinel errors.
type TwoFactorErrors struct {
	EngineNotReady error
	UserNotFound   error
	AccountBlocked error
	NotConfigured  error
}

// TwoFactorDeps captures setup/verify dependencies.
type TwoFactorDeps struct {
	RecoveryCount  int
	RecoveryLength int

	Now func() time.Time

	GetUserByID          func(ctx context.Context, userID string) (TwoFactorUser, error)
	SaveSecret           func(ctx context.Context, userID, secret string) error
	Activate             func(ctx context.Context, userID string) error
	ReplaceRecoveryCodes func(ctx context.Context, userID string, codes []string) error

	GenerateSecret   func() (string, error)
	ProvisionURI     func(secret, account string) string
	VerifyCode       func(secret, code string, now time.Time) (bool, error)
	NewRecoveryCodes func(count, length int) ([]string, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, email string, err error, metadata func() map[string]string)

	Metrics TwoFactorMetrics
	Events  TwoFactorEvents
	Errors  TwoFactorErrors
}

func (d *TwoFactorDeps) fillDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}

// RunSetupTwoFactor starts (or restarts) enrollment: generate a fresh secret,
// persist it with status PENDING, and return the provisioning artifacts.
// Calling it again before verification simply discards the previous secret;
// it was never activated, so nothing depends on it.
func RunSetupTwoFactor(ctx context.Context, userID string, deps TwoFactorDeps) (*TwoFactorSetupResult, error) {
	deps.fillDefaults()
	if deps.GetUserByID == nil || deps.SaveSecret == nil || deps.GenerateSecret == nil || deps.ProvisionURI == nil {
		return nil, deps.Errors.EngineNotReady
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == AccountBlocked {
		return nil, deps.Errors.AccountBlocked
	}

	secret, err := deps.GenerateSecret()
	if err != nil {
		return nil, err
	}

	if err := deps.SaveSecret(ctx, user.ID, secret); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Setup)
	deps.EmitAudit(ctx, deps.Events.Setup, true, user.ID, user.Email, nil, nil)

	return &TwoFactorSetupResult{
		Secret:          secret,
		ProvisioningURI: deps.ProvisionURI(secret, user.Email),
	}, nil
}

// RunVerifyTwoFactor validates a submitted code against the stored secret.
// The first success after enrollment transitions the user to ACTIVE and
// replaces the entire recovery-code set. A failed code changes nothing.
// Verification with no stored secret fails closed as not-configured.
func RunVerifyTwoFactor(ctx context.Context, userID, code string, deps TwoFactorDeps) (bool, error) {
	deps.fillDefaults()
	if deps.GetUserByID == nil || deps.VerifyCode == nil || deps.Activate == nil ||
		deps.ReplaceRecoveryCodes == nil || deps.NewRecoveryCodes == nil {
		return false, deps.Errors.EngineNotReady
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.Status == AccountBlocked {
		return false, deps.Errors.AccountBlocked
	}
	if user.TwoFactor == TwoFactorDisabled || user.Secret == "" {
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, user.Email, deps.Errors.NotConfigured, nil)
		return false, deps.Errors.NotConfigured
	}

	ok, err := deps.VerifyCode(user.Secret, code, deps.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, user.Email, nil, nil)
		return false, nil
	}

	if user.TwoFactor != TwoFactorActive {
		if err := deps.Activate(ctx, user.ID); err != nil {
			return false, err
		}

		codes, err := deps.NewRecoveryCodes(deps.RecoveryCount, deps.RecoveryLength)
		if err != nil {
			return false, err
		}
		if err := deps.ReplaceRecoveryCodes(ctx, user.ID, codes); err != nil {
			return false, err
		}

		deps.MetricInc(deps.Metrics.RecoveryRegenerated)
		deps.EmitAudit(ctx, deps.Events.RecoveryGenerated, true, user.ID, user.Email, nil, func() map[string]string {
			return map[string]string{"count": strconv.Itoa(len(codes))}
		})
		deps.EmitAudit(ctx, deps.Events.Enabled, true, user.ID, user.Email, nil, nil)
	}

	deps.MetricInc(deps.Metrics.VerifySuccess)
	return true, nil
}
