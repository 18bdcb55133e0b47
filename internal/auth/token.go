// Package auth verifies the admin token that protects the manual
// trigger endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/clubops/memberbill/internal/errors"
)

// Verifier checks presented admin tokens against a stored bcrypt hash.
// An empty hash disables admin access entirely.
type Verifier struct {
	hash []byte
}

// NewVerifier creates a verifier from the configured bcrypt hash.
func NewVerifier(tokenHash string) *Verifier {
	return &Verifier{hash: []byte(tokenHash)}
}

// Enabled reports whether admin access is configured at all.
func (v *Verifier) Enabled() bool {
	return len(v.hash) > 0
}

// Verify checks the presented token. It returns ErrUnauthorized both
// when the token is wrong and when admin access is disabled.
func (v *Verifier) Verify(token string) error {
	if !v.Enabled() || token == "" {
		return errors.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(token)); err != nil {
		return errors.ErrUnauthorized
	}
	return nil
}

// GenerateToken mints a new admin token and its bcrypt hash. The raw
// token is shown once; only the hash is stored.
func GenerateToken() (rawToken string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	rawToken = "mb_" + base64.RawURLEncoding.EncodeToString(b)
	h, err := bcrypt.GenerateFromPassword([]byte(rawToken), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return rawToken, string(h), nil
}
