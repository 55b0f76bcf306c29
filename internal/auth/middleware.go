package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/pos-gateway/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers. Valid tokens
// put the user id and the raw token on the context; the token is replayed on
// outbound inventory calls.
type Middleware struct {
	Verifier *Verifier
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate attaches auth context when a valid token is present but never
// blocks the request.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Verifier == nil {
		return r.Context(), errors.New("auth: verifier not configured")
	}
	token := extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	subject, err := m.Verifier.ParseSubject(token)
	if err != nil {
		return r.Context(), err
	}
	ctx := common.WithUserID(r.Context(), subject)
	return common.WithAccessToken(ctx, token), nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
