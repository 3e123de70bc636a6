package piivault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/crypto/hkdf"
)

// aeadCipher wraps an AES-256-GCM instance built from a derived key.
type aeadCipher struct {
	gcm cipher.AEAD
}

func newAEADCipher(key [32]byte) (*aeadCipher, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{gcm: gcm}, nil
}

func (c *aeadCipher) seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = c.gcm.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

func (c *aeadCipher) open(nonce, ciphertext []byte) ([]byte, error) {
	return c.gcm.Open(nil, nonce, ciphertext, nil)
}

// DeriveKey derives a 32-byte AES-256 key from an operator-supplied secret
// via HKDF-SHA256, salted with a fixed, public info string so the same
// secret always derives the same key across process restarts.
func DeriveKey(secret string) ([32]byte, error) {
	var key [32]byte
	if secret == "" {
		return key, errors.New("piivault: empty secret")
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("resolvr-pii-vault-v1"))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// EphemeralKey generates a random key for use when no secret is configured.
// Tokens issued under it are only resolvable for the life of this process —
// callers must log this loudly, exactly once, at startup.
func EphemeralKey(logger *slog.Logger) [32]byte {
	var key [32]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		// crypto/rand failing is unrecoverable; a zero key at least fails
		// closed rather than panicking mid-tokenize.
		logger.Error("piivault: failed to generate ephemeral key", "error", err)
		return key
	}
	logger.Warn("piivault: no PII_VAULT_SECRET configured, using an ephemeral key; tokens will not resolve after restart")
	return key
}
