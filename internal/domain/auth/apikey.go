// Package auth authenticates the operator API keys that guard the admin
// surface (coupon management, delivery policy, order status changes). Keys
// are stored as HMAC-SHA256 hashes under a server-side pepper; the plaintext
// key exists only in the operator's hands.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no active key matches the given hash.
	ErrNotFound = errors.New("api key not found")
	// ErrUnauthorized is returned for any failed key verification. The
	// cause is deliberately not distinguished to the caller.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key carries the named scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey computes the hex HMAC-SHA256 of a plaintext key under the pepper.
// The same function produces the stored hash at provisioning time and the
// lookup hash at request time.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier authenticates plaintext API keys against the repository.
type Verifier struct {
	apikeys Repository
	pepper  []byte
}

// NewVerifier creates a Verifier with the given repository and HMAC pepper.
func NewVerifier(apikeys Repository, pepper []byte) *Verifier {
	return &Verifier{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Verify authenticates a plaintext API key by computing its HMAC-SHA256,
// looking it up, and re-comparing in constant time. Every failure mode maps
// to ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, key string) (*APIKeyInfo, error) {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := v.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, ErrUnauthorized
	}

	// The stored hash is re-compared in constant time in case the lookup
	// returned a stale or wrong row.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}

	return info, nil
}
