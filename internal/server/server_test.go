package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/duotrak/internal/auth"
	"github.com/sakif/duotrak/internal/config"
	"github.com/sakif/duotrak/internal/mailer"
)

const testSecret = "server-test-secret-0123456789"

type captureMailer struct {
	mu      sync.Mutex
	invites []mailer.Invite
}

func (m *captureMailer) SendPartnershipInvite(_ context.Context, inv mailer.Invite) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, inv)
	return "capture", nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.invites, "no invite was sent")
	u, err := url.Parse(m.invites[len(m.invites)-1].AcceptURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type testApp struct {
	handler http.Handler
	tokens  *auth.TokenService
	mail    *captureMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	clk := testclock.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	cfg := &config.Config{
		Port:                8080,
		DBPath:              ":memory:",
		JWTSecret:           testSecret,
		FrontendURL:         "http://app.test",
		InviteTTL:           72 * time.Hour,
		InviteRatePerMinute: 3,
		LogLevel:            "info",
		LogFormat:           "text",
	}
	mail := &captureMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(cfg, logger, mail, clk)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	tokens, err := auth.NewTokenService(testSecret, "", clk)
	require.NoError(t, err)

	return &testApp{handler: srv.Handler(), tokens: tokens, mail: mail}
}

func (a *testApp) bearer(t *testing.T, username string) string {
	t.Helper()
	tok, err := a.tokens.Generate(auth.Identity{
		Subject: "sub-" + username,
		Email:   username + "@example.com",
	}, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request as username (anonymous when empty) and decodes the
// JSON response into out when out is non-nil.
func (a *testApp) do(t *testing.T, username, method, path string, body any, out any) int {
	t.Helper()
	token := ""
	if username != "" {
		token = a.bearer(t, username)
	}
	return a.doToken(t, token, method, path, body, out)
}

// doToken is do with an explicit bearer token.
func (a *testApp) doToken(t *testing.T, token, method, path string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (a *testApp) signUp(t *testing.T, username string) string {
	t.Helper()
	var user struct {
		ID string `json:"id"`
	}
	code := a.do(t, username, http.MethodPost, "/api/v1/users/sync", map[string]string{"username": username}, &user)
	require.Equal(t, http.StatusCreated, code)
	return user.ID
}

type idBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ===== HEALTH & AUTH TESTS =====

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	var body map[string]string
	code := app.do(t, "", http.MethodGet, "/healthz", nil, &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_RequiresToken(t *testing.T) {
	app := newTestApp(t)

	var body idBody
	code := app.do(t, "", http.MethodGet, "/api/v1/users/me", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body.Error)
}

func TestAPI_ProfileRequiredBeforeSync(t *testing.T) {
	app := newTestApp(t)

	var body idBody
	code := app.do(t, "alice", http.MethodGet, "/api/v1/users/me", nil, &body)
	assert.Equal(t, http.StatusNotFound, code)

	app.signUp(t, "alice")
	code = app.do(t, "alice", http.MethodGet, "/api/v1/users/me", nil, &body)
	assert.Equal(t, http.StatusOK, code)

	// A second sync returns the existing profile.
	code = app.do(t, "alice", http.MethodPost, "/api/v1/users/sync", nil, &body)
	assert.Equal(t, http.StatusOK, code)
}

func TestSync_RequiresEmailClaim(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")

	var invite idBody
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/partnerships/invite",
		map[string]string{"email": "bob@example.com"}, &invite))

	noEmail, err := app.tokens.Generate(auth.Identity{Subject: "sub-mallory"}, time.Hour)
	require.NoError(t, err)

	var body idBody
	code := app.doToken(t, noEmail, http.MethodPost, "/api/v1/users/sync",
		map[string]string{"username": "mallory"}, &body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body.Error)

	// No profile was created, so the invite cannot be answered.
	code = app.doToken(t, noEmail, http.MethodPut, "/api/v1/partnerships/requests/"+invite.ID+"/respond",
		map[string]string{"decision": "accept"}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = app.do(t, "alice", http.MethodGet, "/api/v1/partnerships/current", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSync_BodyCannotChangeEmail(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "mallory")

	var body idBody
	code := app.do(t, "mallory", http.MethodPost, "/api/v1/users/sync",
		map[string]string{"email": "bob@example.com"}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", body.Error)

	var me struct {
		Email string `json:"email"`
	}
	require.Equal(t, http.StatusOK, app.do(t, "mallory", http.MethodGet, "/api/v1/users/me", nil, &me))
	assert.Equal(t, "mallory@example.com", me.Email)
}

// ===== PARTNERSHIP FLOW TESTS =====

func TestPartnershipFlow(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")
	app.signUp(t, "bob")

	var invite idBody
	code := app.do(t, "alice", http.MethodPost, "/api/v1/partnerships/invite",
		map[string]string{"email": "bob@example.com"}, &invite)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "pending_invite", invite.Status)

	var pending struct {
		Items []idBody `json:"items"`
	}
	code = app.do(t, "bob", http.MethodGet, "/api/v1/partnerships/requests/pending", nil, &pending)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, invite.ID, pending.Items[0].ID)

	var accepted idBody
	code = app.do(t, "bob", http.MethodPost, "/api/v1/partnerships/accept-invite/"+app.mail.lastToken(t), nil, &accepted)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", accepted.Status)

	var current idBody
	code = app.do(t, "alice", http.MethodGet, "/api/v1/partnerships/current", nil, &current)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, invite.ID, current.ID)

	// Alice's goal is readable by Bob but not writable.
	var goal idBody
	code = app.do(t, "alice", http.MethodPost, "/api/v1/goals", map[string]string{"title": "Run a marathon"}, &goal)
	require.Equal(t, http.StatusCreated, code)

	code = app.do(t, "bob", http.MethodGet, "/api/v1/goals/"+goal.ID, nil, nil)
	assert.Equal(t, http.StatusOK, code)

	var denied idBody
	code = app.do(t, "bob", http.MethodPatch, "/api/v1/goals/"+goal.ID, map[string]string{"title": "Walk"}, &denied)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", denied.Error)

	// A stranger sees nothing.
	app.signUp(t, "carol")
	code = app.do(t, "carol", http.MethodGet, "/api/v1/goals/"+goal.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// Once terminated, Bob loses access.
	code = app.do(t, "bob", http.MethodDelete, "/api/v1/partnerships/"+invite.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, code)
	code = app.do(t, "bob", http.MethodGet, "/api/v1/goals/"+goal.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestPartnership_SelfInviteIsBadRequest(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")

	var body idBody
	code := app.do(t, "alice", http.MethodPost, "/api/v1/partnerships/invite",
		map[string]string{"email": "alice@example.com"}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "self_partnership", body.Error)
}

func TestPartnership_UnknownTokenIsNotFound(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "bob")

	var body idBody
	code := app.do(t, "bob", http.MethodPost, "/api/v1/partnerships/accept-invite/nope", nil, &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "invalid_token", body.Error)
}

func TestPartnership_InviteIsRateLimited(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")

	// The first invite succeeds and the following ones conflict, but all of
	// them count against the limit.
	codes := make([]int, 0, 4)
	for range 4 {
		codes = append(codes, app.do(t, "alice", http.MethodPost, "/api/v1/partnerships/invite",
			map[string]string{"email": "bob@example.com"}, nil))
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusConflict, http.StatusConflict, http.StatusTooManyRequests}, codes)
}

// ===== TRACKING FLOW TESTS =====

func TestCheckinVerificationFlow(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")
	app.signUp(t, "bob")

	var invite idBody
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/partnerships/invite",
		map[string]string{"email": "bob@example.com"}, &invite))
	require.Equal(t, http.StatusOK, app.do(t, "bob", http.MethodPut,
		"/api/v1/partnerships/requests/"+invite.ID+"/respond", map[string]string{"decision": "accept"}, nil))

	var goal, system, checkin idBody
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/goals",
		map[string]string{"title": "Read more"}, &goal))
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/goals/"+goal.ID+"/systems",
		map[string]any{"title": "Read 20 pages", "frequency": "daily", "metricType": "pages", "verificationRequired": true}, &system))
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/systems/"+system.ID+"/checkins",
		map[string]any{"metricValue": 20}, &checkin))
	assert.Equal(t, "pending_verification", checkin.Status)

	// The owner cannot verify their own checkin.
	code := app.do(t, "alice", http.MethodPost, "/api/v1/checkins/"+checkin.ID+"/verify",
		map[string]string{"action": "approve"}, nil)
	assert.Equal(t, http.StatusForbidden, code)

	var verified idBody
	code = app.do(t, "bob", http.MethodPost, "/api/v1/checkins/"+checkin.ID+"/verify",
		map[string]string{"action": "approve"}, &verified)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "verified_completed", verified.Status)

	// Bob reacts and comments; both show up for Alice.
	require.Equal(t, http.StatusCreated, app.do(t, "bob", http.MethodPost, "/api/v1/reactions",
		map[string]string{"targetKind": "checkin", "targetId": checkin.ID, "emoji": "🔥"}, nil))
	require.Equal(t, http.StatusCreated, app.do(t, "bob", http.MethodPost, "/api/v1/comments",
		map[string]string{"checkinId": checkin.ID, "content": "Nice work"}, nil))

	var reactions, comments struct {
		Items []json.RawMessage `json:"items"`
	}
	require.Equal(t, http.StatusOK, app.do(t, "alice", http.MethodGet,
		"/api/v1/reactions?target_kind=checkin&target_id="+checkin.ID, nil, &reactions))
	assert.Len(t, reactions.Items, 1)
	require.Equal(t, http.StatusOK, app.do(t, "alice", http.MethodGet,
		"/api/v1/checkins/"+checkin.ID+"/comments", nil, &comments))
	assert.Len(t, comments.Items, 1)
}

func TestMessagesFlow(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice")
	app.signUp(t, "bob")

	var invite idBody
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/partnerships/invite",
		map[string]string{"email": "bob@example.com"}, &invite))
	require.Equal(t, http.StatusOK, app.do(t, "bob", http.MethodPost,
		"/api/v1/partnerships/accept-invite/"+app.mail.lastToken(t), nil, nil))

	var msg idBody
	require.Equal(t, http.StatusCreated, app.do(t, "alice", http.MethodPost, "/api/v1/messages",
		map[string]string{"partnershipId": invite.ID, "text": "Morning run?"}, &msg))

	var convo struct {
		Items []idBody `json:"items"`
	}
	require.Equal(t, http.StatusOK, app.do(t, "bob", http.MethodGet,
		"/api/v1/partnerships/"+invite.ID+"/messages", nil, &convo))
	require.Len(t, convo.Items, 1)
	assert.Equal(t, msg.ID, convo.Items[0].ID)

	assert.Equal(t, http.StatusOK, app.do(t, "bob", http.MethodPost, "/api/v1/messages/"+msg.ID+"/read", nil, nil))
	assert.Equal(t, http.StatusForbidden, app.do(t, "alice", http.MethodPost, "/api/v1/messages/"+msg.ID+"/read", nil, nil))

	app.signUp(t, "carol")
	assert.Equal(t, http.StatusForbidden, app.do(t, "carol", http.MethodGet,
		"/api/v1/partnerships/"+invite.ID+"/messages", nil, nil))
}
