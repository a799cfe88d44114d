package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/duotrak/internal/auth"
)

// =========================================================================
// LOGGER TESTS
// =========================================================================

func newLoggedRouter(buf *bytes.Buffer) http.Handler {
	logger := slog.New(slog.NewTextHandler(buf, nil))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Logger(logger))
	r.Get("/api/v1/goals/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	})
	r.Route("/api/v1/partnerships", func(r chi.Router) {
		r.Post("/accept-invite/{token}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	})
	return r
}

func TestLogger_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedRouter(&buf)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/goals/x", nil))

	line := buf.String()
	assert.Contains(t, line, "level=WARN")
	assert.Contains(t, line, "route=/api/v1/goals/{id}")
	assert.Contains(t, line, "status=404")
	assert.Contains(t, line, "bytes=7")
	assert.Contains(t, line, "requestID=")
}

func TestLogger_KeepsPathSecretsOutOfLog(t *testing.T) {
	const secret = "SECRET-TOKEN-VALUE"

	tests := []struct {
		name      string
		method    string
		path      string
		wantRoute string
	}{
		{"matched invite route", http.MethodPost, "/api/v1/partnerships/accept-invite/" + secret, "route=/api/v1/partnerships/accept-invite/{token}"},
		{"wrong method", http.MethodGet, "/api/v1/partnerships/accept-invite/" + secret, "status=405"},
		{"unknown route", http.MethodGet, "/nowhere/" + secret, "status=404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newLoggedRouter(&buf)

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			line := buf.String()
			require.NotEmpty(t, line)
			assert.Contains(t, line, tt.wantRoute)
			assert.NotContains(t, line, secret)
		})
	}
}

// =========================================================================
// RATE LIMIT TESTS
// =========================================================================

func TestRateLimiter_PerCaller(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(2, clk)

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(subject string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/partnerships/invite", nil)
		if subject != "" {
			req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: subject}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("alice").Code)
	assert.Equal(t, http.StatusNoContent, send("alice").Code)

	rec := send("alice")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited","message":"too many requests, slow down"}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, send("bob").Code, "each caller has its own bucket")
	assert.Equal(t, http.StatusNoContent, send("").Code, "anonymous callers are keyed by IP")

	clk.Advance(30 * time.Second)
	assert.Equal(t, http.StatusNoContent, send("alice").Code, "the bucket refills over time")
}

func TestRateLimiter_SweepsIdleCallers(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(1, clk)

	rl.Allow("alice")
	clk.Advance(idleLimiterTTL + time.Second)
	rl.Allow("bob")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "bob")
}
