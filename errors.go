package authgate

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the given id or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by Register when the email is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is returned when password verification fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBlocked is returned for any credential operation on a BLOCKED user.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrTokenExpired is returned when a structurally valid token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when a token cannot be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is returned when a token's MAC does not verify.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenRevoked is returned when a token was revoked by an earlier logout.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTwoFactorInvalid is returned when a submitted TOTP code does not validate.
	ErrTwoFactorInvalid = errors.New("invalid two-factor code")
	// ErrTwoFactorNotConfigured is returned when verification is attempted
	// without a stored secret (two-factor status DISABLED).
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrRateLimited is returned when the source IP is inside an active block window.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrStoreUnavailable wraps credential store failures. Rate-limit and
	// block-status checks fail closed with this error rather than allowing
	// the request through.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
