// Package piivault tokenizes sensitive values to opaque handles backed by
// AES-256-GCM, so conversation records, cache entries, and tool logs can
// carry a `pii_tok_<uuid>` reference instead of the plaintext. Tokens expire
// by severity and can be purged in bulk per conversation.
package piivault

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity controls how long a token remains resolvable.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ttlFor maps severity to retention, per spec §3's PII Vault Entry table.
func ttlFor(s Severity) time.Duration {
	switch s {
	case SeverityCritical:
		return 300 * time.Second
	case SeverityHigh:
		return 7 * 24 * time.Hour
	case SeverityMedium:
		return 30 * 24 * time.Hour
	case SeverityLow:
		return 90 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Entry is what's persisted under a token: enough to decrypt plus the
// metadata needed for conversation-scoped purge.
type Entry struct {
	Nonce          []byte    `json:"nonce"`
	Ciphertext     []byte    `json:"ciphertext"` // GCM output, tag included
	ConversationID string    `json:"conversation_id"`
	PIIType        string    `json:"pii_type"`
	Severity       Severity  `json:"severity"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// backend is the storage contract a Vault delegates to. Both the in-memory
// and Redis implementations satisfy it; Vault itself only does crypto and
// token bookkeeping.
type backend interface {
	put(ctx context.Context, token string, e Entry) error
	get(ctx context.Context, token string) (Entry, bool, error)
	del(ctx context.Context, token string) error
	indexAdd(ctx context.Context, conversationID, token string) error
	indexTokens(ctx context.Context, conversationID string) ([]string, error)
	indexClear(ctx context.Context, conversationID string)
	sweepExpired(now time.Time)
}

// Vault tokenizes and resolves PII values.
type Vault struct {
	backend backend
	cipher  *aeadCipher
}

// New builds a Vault over the given backend using a key derived from
// secret (see DeriveKey). Pass a nil backend to get an in-memory vault.
func New(b backend, key [32]byte) (*Vault, error) {
	if b == nil {
		b = newMemoryBackend(time.Minute)
	}
	c, err := newAEADCipher(key)
	if err != nil {
		return nil, err
	}
	return &Vault{backend: b, cipher: c}, nil
}

// Tokenize encrypts plaintext and returns an opaque token referencing it.
func (v *Vault) Tokenize(ctx context.Context, conversationID, piiType string, severity Severity, plaintext string) (string, error) {
	nonce, ciphertext, err := v.cipher.seal([]byte(plaintext))
	if err != nil {
		return "", err
	}

	token := "pii_tok_" + uuid.NewString()
	ttl := ttlFor(severity)
	entry := Entry{
		Nonce:          nonce,
		Ciphertext:     ciphertext,
		ConversationID: conversationID,
		PIIType:        piiType,
		Severity:       severity,
		ExpiresAt:      time.Now().Add(ttl),
	}

	if err := v.backend.put(ctx, token, entry); err != nil {
		return "", err
	}
	_ = v.backend.indexAdd(ctx, conversationID, token)
	return token, nil
}

// Detokenize resolves token back to its plaintext. An unknown, expired, or
// tamper-failed token returns ok=false rather than an error — callers treat
// a dead token the same as "no value available".
func (v *Vault) Detokenize(ctx context.Context, token string) (string, bool) {
	entry, found, err := v.backend.get(ctx, token)
	if err != nil || !found {
		return "", false
	}
	if entry.expired(time.Now()) {
		return "", false
	}
	plaintext, err := v.cipher.open(entry.Nonce, entry.Ciphertext)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// Purge removes every token indexed under conversationID. Best-effort: it
// clears what it can and never returns a partial-failure error, since a
// vault outage must not block conversation deletion.
func (v *Vault) Purge(ctx context.Context, conversationID string) error {
	tokens, err := v.backend.indexTokens(ctx, conversationID)
	if err != nil {
		return nil
	}
	for _, tok := range tokens {
		_ = v.backend.del(ctx, tok)
	}
	v.backend.indexClear(ctx, conversationID)
	return nil
}

// PurgeExpired sweeps the in-memory backend for expired entries. On a
// durable backend TTL does this natively and the call is a no-op.
func (v *Vault) PurgeExpired() {
	v.backend.sweepExpired(time.Now())
}
