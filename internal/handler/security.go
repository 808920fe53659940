package handler

import (
	"net/http"

	"github.com/craftkart/checkout/internal/domain/auth"
)

// apiKeyHeader carries the operator API key on admin routes.
const apiKeyHeader = "X-API-Key"

// adminScope is the scope every admin route requires.
const adminScope = "admin"

// Security authenticates admin requests via HMAC-SHA256 hashed API keys.
type Security struct {
	verifier *auth.Verifier
}

// NewSecurity creates a Security guard backed by the given verifier.
func NewSecurity(verifier *auth.Verifier) *Security {
	return &Security{verifier: verifier}
}

// Require wraps a handler so it only runs for requests carrying a valid
// admin-scoped API key. Missing, unknown and under-scoped keys are not
// distinguished on the wire.
func (s *Security) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		info, err := s.verifier.Verify(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !info.HasScope(adminScope) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}
