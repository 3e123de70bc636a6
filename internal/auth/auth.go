// Package auth is the shared-secret authentication check the admin HTTP
// surface (internal/adminapi) gates on — a single operator secret
// compared in constant time, rather than the teacher's full
// JWT/API-key/OAuth service, since resolvr has no multi-user admin
// identity model to support.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrAuthDisabled is returned when no secret is configured — the admin
// surface is unreachable rather than open.
var ErrAuthDisabled = errors.New("admin auth disabled: no secret configured")

// ErrInvalidSecret is returned when the caller's secret doesn't match.
var ErrInvalidSecret = errors.New("invalid admin secret")

// SharedSecret validates a single operator-configured secret using
// constant-time comparison, grounded on the teacher's
// Service.ValidateAPIKey pattern.
type SharedSecret struct {
	secret string
}

// NewSharedSecret builds a checker for the given secret. An empty secret
// disables the checker — Check always returns ErrAuthDisabled.
func NewSharedSecret(secret string) *SharedSecret {
	return &SharedSecret{secret: strings.TrimSpace(secret)}
}

// Enabled reports whether a secret is configured.
func (s *SharedSecret) Enabled() bool {
	return s != nil && s.secret != ""
}

// Check compares candidate against the configured secret in constant
// time, preventing a timing side-channel from leaking the secret.
func (s *SharedSecret) Check(candidate string) error {
	if !s.Enabled() {
		return ErrAuthDisabled
	}
	candidate = strings.TrimSpace(candidate)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(s.secret)) != 1 {
		return ErrInvalidSecret
	}
	return nil
}
