// Package token issues and verifies the self-contained signed credentials
// that back session cookies. Tokens are HS256 JWTs carrying the subject id
// and a token class; validity is entirely signature plus expiry. Callers must
// re-check live account status after a token parses: a token issued before
// a block stays cryptographically valid until it expires.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Class distinguishes the credential kinds a token can carry.
type Class string

const (
	// ClassAccess marks a session-bearing access token.
	ClassAccess Class = "ACCESS"
	// ClassRefresh marks a refresh token. Reserved on the wire; this design
	// issues only access tokens.
	ClassRefresh Class = "REFRESH"
)

var (
	// ErrExpired is returned when the token is structurally valid but past expiry.
	ErrExpired = errors.New("token expired")
	// ErrBadSignature is returned when the MAC does not verify.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrMalformed is returned for anything that does not parse as a token,
	// including an unexpected signing algorithm or token class.
	ErrMalformed = errors.New("token malformed")
)

const minSecretBytes = 32

// Config holds the signing parameters. Secret is process-wide and never
// rotated at runtime.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// Claims is the signed token payload.
type Claims struct {
	Class Class `json:"cls"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject user id.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Manager signs and verifies tokens with a single HS256 secret.
type Manager struct {
	config Config
}

// NewManager validates the config and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token for subjectID with the given class and ttl. A ttl of
// zero produces a token that is already expired, which Parse reports as
// [ErrExpired].
func (m *Manager) Issue(subjectID string, class Class, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("empty subject id")
	}
	if class != ClassAccess && class != ClassRefresh {
		return "", errors.New("unknown token class")
	}

	now := time.Now()
	claims := Claims{
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.Secret)
}

// Parse verifies signature and expiry and returns the claims. Failures are
// typed: [ErrExpired], [ErrBadSignature], or [ErrMalformed]. Parse is pure:
// it performs no I/O and never consults account state.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" {
		return nil, ErrMalformed
	}
	if claims.Class != ClassAccess && claims.Class != ClassRefresh {
		return nil, ErrMalformed
	}

	return claims, nil
}

// Remaining reports how long the token stays valid from now. ok is false
// when the token does not parse or is already expired.
func (m *Manager) Remaining(tokenStr string) (time.Duration, bool) {
	claims, err := m.Parse(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return 0, false
	}
	left := time.Until(claims.ExpiresAt.Time)
	if left <= 0 {
		return 0, false
	}
	return left, true
}
