// Package internal holds shared crypto helpers that must stay out of the
// public API.
package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

// recovery codes are drawn from a 36-character alphabet; at the default
// length of 6 the space is 36^6, large enough that collisions within one
// user's set of 10 are negligible.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewRecoveryCode returns one random printable-safe one-time code.
func NewRecoveryCode(length int) (string, error) {
	if length < 6 || length > 32 {
		return "", errors.New("invalid recovery code length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NewRecoveryCodes returns count distinct codes. Regeneration retries on the
// (vanishingly rare) in-set duplicate so the returned set is always unique.
func NewRecoveryCodes(count, length int) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("invalid recovery code count")
	}

	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for len(out) < count {
		code, err := NewRecoveryCode(length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out, nil
}

// TokenDigest returns the hex SHA-256 of a bearer token. The revocation side
// table stores digests, never raw tokens.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
