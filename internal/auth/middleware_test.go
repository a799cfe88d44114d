package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth(t *testing.T) {
	ts, _ := newTestTokenService(t, "")
	token, err := ts.Generate(alice, time.Hour)
	require.NoError(t, err)

	var seen Identity
	h := RequireAuth(ts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "bearer header",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "lowercase scheme",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) },
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "cookie fallback",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) },
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "no credentials",
			prepare:    func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth is not a bearer token",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "bad header wins over good cookie",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer garbage")
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Identity{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, alice, seen)
			} else {
				assert.JSONEq(t, `{"error":"unauthorized","message":"valid authentication required"}`, rec.Body.String())
			}
		})
	}
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)
}
