// Package security implements the Crypto port: PBKDF2-HMAC-SHA256
// password hashing with explicit per-user salts, and opaque
// high-entropy bearer tokens hashed with SHA-256 before they ever reach
// Storage.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

const (
	SaltLength        = 16
	DerivedKeyLength  = 32
	DefaultIterations = 210_000
	tokenEntropyBytes = 32
)

// PBKDF2Crypto implements auth.Crypto with PBKDF2-HMAC-SHA256 password
// derivation and crypto/rand-backed token/salt generation.
type PBKDF2Crypto struct {
	iterations int
}

// NewPBKDF2Crypto builds a PBKDF2Crypto with the given iteration count.
// A non-positive count falls back to DefaultIterations.
func NewPBKDF2Crypto(iterations int) *PBKDF2Crypto {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PBKDF2Crypto{iterations: iterations}
}

func (c *PBKDF2Crypto) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func (c *PBKDF2Crypto) GetEncryptedPassword(plain []byte, salt []byte) ([]byte, error) {
	if len(salt) < 2 {
		return nil, domain.ErrHashFailed(fmt.Errorf("salt too short: %d bytes", len(salt)))
	}
	return pbkdf2.Key(plain, salt, c.iterations, DerivedKeyLength, sha256.New), nil
}

// Authenticate re-derives the hash for plain under salt and compares it
// to expectedHash in constant time.
func (c *PBKDF2Crypto) Authenticate(plain []byte, expectedHash []byte, salt []byte) bool {
	got, err := c.GetEncryptedPassword(plain, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, expectedHash) == 1
}

// GetTemporaryPassword returns a URL-safe random string of at least
// length runes, suitable for out-of-band delivery as a one-time
// password.
func (c *PBKDF2Crypto) GetTemporaryPassword(length int) (string, error) {
	if length <= 0 {
		length = 10
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	if len(encoded) < length {
		return encoded, nil
	}
	return encoded[:length], nil
}

// GetToken returns a fresh opaque high-entropy bearer token. Its
// plaintext is returned to the caller exactly once; only HashToken's
// output is ever persisted.
func (c *PBKDF2Crypto) GetToken() (string, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken deterministically hashes a plaintext token for Storage-side
// lookup. Unlike password hashing, token lookup must be O(1) by exact
// value, so no per-token salt is used — the token's own 256 bits of
// entropy make a deterministic hash safe against precomputation.
func (c *PBKDF2Crypto) HashToken(plain string) []byte {
	sum := sha256.Sum256([]byte(plain))
	return sum[:]
}

var _ interface {
	GenerateSalt() ([]byte, error)
	GetEncryptedPassword(plain []byte, salt []byte) ([]byte, error)
	Authenticate(plain []byte, expectedHash []byte, salt []byte) bool
	GetTemporaryPassword(length int) (string, error)
	GetToken() (string, error)
	HashToken(plain string) []byte
} = (*PBKDF2Crypto)(nil)
