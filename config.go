package authgate

import (
	"errors"
	"net/http"
	"time"
)

// Config is the process-wide engine configuration. It is constructed once,
// validated by [Builder.Build], and treated as immutable afterwards. There is
// no runtime rotation of the signing secret in this design.
type Config struct {
	JWT       JWTConfig
	TOTP      TOTPConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Recovery  RecoveryConfig
	Cookie    CookieConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the token issuer. Secret must be at least 32 bytes.
type JWTConfig struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
	Leeway    time.Duration
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig configures secret generation and code verification.
// Skew is the number of time steps tolerated on each side of "now";
// the default of 1 absorbs ordinary clock drift.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	Skew      int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the per-IP brute-force guard. Window drives the
// blocking decision; BlockDuration is only the retention expiry written on
// each attempt row. The two are deliberately independent knobs; do not
// unify them.
type RateLimitConfig struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// RecoveryConfig tunes recovery-code regeneration. Count codes of Length
// characters from a 36-character alphabet are issued on activation.
type RecoveryConfig struct {
	Count  int
	Length int
}

// CookieConfig describes the session cookie the boundary sets. The engine
// only builds cookie values (see [Engine.SessionCookie]); it never writes
// headers.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 7 * 24 * time.Hour,
			Issuer:    "authgate",
		},
		TOTP: TOTPConfig{
			Issuer:    "Daw Manager",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:   5,
			Window:        15 * time.Minute,
			BlockDuration: 30 * time.Minute,
		},
		Recovery: RecoveryConfig{
			Count:  10,
			Length: 6,
		},
		Cookie: CookieConfig{
			Name:     "access_token",
			Path:     "/",
			MaxAge:   24 * time.Hour,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = make([]byte, len(cfg.JWT.Secret))
		copy(out.JWT.Secret, cfg.JWT.Secret)
	}
	return out
}

// Validate checks the configuration invariants that Build depends on.
func (c Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("jwt access ttl must be positive")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("jwt leeway out of range")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("totp digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be between 0 and 2")
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("rate limit max attempts must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.RateLimit.BlockDuration <= 0 {
		return errors.New("rate limit block duration must be positive")
	}
	if c.Recovery.Count <= 0 {
		return errors.New("recovery code count must be positive")
	}
	if c.Recovery.Length < 6 {
		return errors.New("recovery code length must be at least 6")
	}
	if c.Cookie.Name == "" {
		return errors.New("cookie name required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
