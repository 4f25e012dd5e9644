package authgate

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive marks a user that may authenticate.
	AccountActive AccountStatus = iota
	// AccountBlocked marks a user that must never receive a session token.
	AccountBlocked
)

// String returns the storage form of the status ("ACTIVE", "BLOCKED").
func (s AccountStatus) String() string {
	if s == AccountBlocked {
		return "BLOCKED"
	}
	return "ACTIVE"
}

// ParseAccountStatus maps a storage string back to an [AccountStatus].
// Unknown values parse as BLOCKED so a corrupt row fails closed.
func ParseAccountStatus(v string) AccountStatus {
	if v == "ACTIVE" {
		return AccountActive
	}
	return AccountBlocked
}

// TwoFactorStatus represents the two-factor enrollment state machine:
// DISABLED --setup--> PENDING --first successful verify--> ACTIVE.
type TwoFactorStatus uint8

const (
	// TwoFactorDisabled means no secret is stored.
	TwoFactorDisabled TwoFactorStatus = iota
	// TwoFactorPending means a secret is stored but never verified.
	TwoFactorPending
	// TwoFactorActive means at least one TOTP code validated the stored secret.
	TwoFactorActive
)

// String returns the storage form of the status.
func (s TwoFactorStatus) String() string {
	switch s {
	case TwoFactorPending:
		return "PENDING"
	case TwoFactorActive:
		return "ACTIVE"
	default:
		return "DISABLED"
	}
}

// ParseTwoFactorStatus maps a storage string back to a [TwoFactorStatus].
func ParseTwoFactorStatus(v string) TwoFactorStatus {
	switch v {
	case "PENDING":
		return TwoFactorPending
	case "ACTIVE":
		return TwoFactorActive
	default:
		return TwoFactorDisabled
	}
}

// Role is the coarse authorization role carried on the user record.
type Role string

const (
	// RoleUser is the default role assigned on registration.
	RoleUser Role = "USER"
	// RoleAdmin is assigned out of band (seeding, admin tooling).
	RoleAdmin Role = "ADMIN"
)

// Profile holds the optional profile fields captured at registration.
type Profile struct {
	FirstName string
	LastName  string
	Company   string
	Phone     string
}

// UserRecord is the full account record exchanged with a [CredentialStore].
// It carries the credential hash and two-factor secret and must never cross
// the HTTP boundary; use [UserView] for responses.
type UserRecord struct {
	ID              string
	Email           string
	PasswordHash    string
	Status          AccountStatus
	Role            Role
	TwoFactorStatus TwoFactorStatus
	// TwoFactorSecret is the base32-encoded TOTP secret, empty while DISABLED.
	TwoFactorSecret string
	Profile         Profile
	CreatedAt       time.Time
}

// UserView is the read-only projection of a user returned by Engine methods.
type UserView struct {
	ID              string
	Email           string
	Status          AccountStatus
	Role            Role
	TwoFactorStatus TwoFactorStatus
	Profile         Profile
}

// View projects a record into its response-safe form.
func (u UserRecord) View() UserView {
	return UserView{
		ID:              u.ID,
		Email:           u.Email,
		Status:          u.Status,
		Role:            u.Role,
		TwoFactorStatus: u.TwoFactorStatus,
		Profile:         u.Profile,
	}
}

// CreateUserInput is the input for [CredentialStore.CreateUser].
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Role         Role
	Profile      Profile
}

// RegisterRequest is the pre-validated registration input. The boundary is
// responsible for schema validation; the engine assumes well-formed fields.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	User        UserView
	AccessToken string
}

// LoginResult is returned by [Engine.Login]. AccessToken doubles as the
// session cookie value; the boundary sets the cookie.
type LoginResult struct {
	User        UserView
	AccessToken string
}

// TwoFactorSetup holds the enrollment artifacts returned by
// [Engine.SetupTwoFactor]. ProvisioningURI is the otpauth:// payload handed
// to a QR renderer; rendering itself is the boundary's job.
type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
}

// AttemptStats is the read-only aggregate over recent login attempts for one
// source IP, used to pre-empt login calls and annotate failed responses.
type AttemptStats struct {
	RecentFailures    int
	AttemptsRemaining int
	LastAttempt       time.Time
	Blocked           bool
	TimeRemaining     time.Duration
}

// RecoveryCodeRecord is one unused one-time backup code.
type RecoveryCodeRecord struct {
	ID        string
	UserID    string
	Code      string
	CreatedAt time.Time
}

// AuthResult is returned by [Engine.Authenticate] after a token passed
// signature, expiry, revocation, and live account-status checks.
type AuthResult struct {
	User UserView
}

// CredentialStore is the durable-state contract the engine depends on.
// Implementations must make ReplaceRecoveryCodes atomic (delete-all plus
// insert-all in one transaction) and RecordLoginAttempt an append of a single
// immutable row. Lookup misses return [ErrUserNotFound]; duplicate emails on
// CreateUser return [ErrAccountExists]; infrastructure failures wrap
// [ErrStoreUnavailable].
type CredentialStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, id string) (UserRecord, error)

	// SetTwoFactorSecret stores a fresh secret and moves the user to PENDING,
	// discarding any previous secret.
	SetTwoFactorSecret(ctx context.Context, userID, secret string) error
	// ActivateTwoFactor moves the user to ACTIVE, keeping the stored secret.
	ActivateTwoFactor(ctx context.Context, userID string) error

	// ReplaceRecoveryCodes atomically replaces the user's entire code set.
	ReplaceRecoveryCodes(ctx context.Context, userID string, codes []string) error
	RecoveryCodes(ctx context.Context, userID string) ([]RecoveryCodeRecord, error)

	// RecordLoginAttempt appends one immutable attempt row, success or failure.
	RecordLoginAttempt(ctx context.Context, ip, userAgent, email string, success bool, at, expiresAt time.Time) error
	// CountFailedAttempts counts failures for ip with timestamp >= since.
	CountFailedAttempts(ctx context.Context, ip string, since time.Time) (int, error)
	// OldestFailedAttempt returns the earliest failure for ip with timestamp
	// >= since; ok is false when none qualifies.
	OldestFailedAttempt(ctx context.Context, ip string, since time.Time) (at time.Time, ok bool, err error)
	// LastAttemptTime returns the most recent attempt (any outcome) for ip.
	LastAttemptTime(ctx context.Context, ip string) (at time.Time, ok bool, err error)
	// PurgeAttemptsBefore deletes attempts older than cutoff and reports how
	// many rows went away. Retention only; the blocking decision never needs it.
	PurgeAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
