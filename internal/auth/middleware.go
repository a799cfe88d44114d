package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is private so no other package can read or shadow the
// identity stored on a context.
type contextKey string

const identityKey contextKey = "identity"

// TokenCookie is the cookie consulted when no Authorization header is sent.
const TokenCookie = "token"

// RequireAuth rejects requests without a valid token with 401 and stores
// the caller's Identity on the context of the rest.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := tokens.Validate(extractToken(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="duotrak"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity RequireAuth stored, if any.
//
//	id, ok := auth.IdentityFromContext(r.Context())
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.Subject != ""
}

// extractToken prefers "Authorization: Bearer <jwt>" and falls back to the
// token cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
