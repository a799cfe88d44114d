package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/sakif/duotrak/internal/mailer"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository/sqlite"
)

// =========================================================================
// TEST DOUBLES
// =========================================================================
//
// The store is a real in-memory sqlite database, so service tests exercise
// the same SQL, constraints and transactions as production. Only the edges
// that leave the process (email, randomness) are faked.

// fakeMailer records every invite it is asked to send.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Invite
	err  error
}

func (m *fakeMailer) SendPartnershipInvite(_ context.Context, inv mailer.Invite) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, inv)
	return fmt.Sprintf("delivery-%d", len(m.sent)), nil
}

func (m *fakeMailer) invites() []mailer.Invite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Invite(nil), m.sent...)
}

// seqTokens hands out predictable tokens: token-1, token-2, ...
type seqTokens struct {
	n int
}

func (g *seqTokens) NewToken() (string, error) {
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

// =========================================================================
// FIXTURE
// =========================================================================

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const testInviteTTL = 72 * time.Hour

type testEnv struct {
	store  *sqlite.DB
	clock  *testclock.Clock
	mail   *fakeMailer
	tokens *seqTokens

	users        *UserService
	partnerships *PartnershipService
	goals        *GoalService
	systems      *SystemService
	checkins     *CheckinService
	reflections  *ReflectionService
	comments     *CommentService
	reactions    *ReactionService
	messages     *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := testclock.NewClock(testNow)
	store, err := sqlite.New(":memory:", clk)
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mail := &fakeMailer{}
	tokens := &seqTokens{}

	return &testEnv{
		store:  store,
		clock:  clk,
		mail:   mail,
		tokens: tokens,

		users: NewUserService(store, logger),
		partnerships: NewPartnershipService(store, tokens, mail, clk, logger, PartnershipConfig{
			InviteTTL:   testInviteTTL,
			FrontendURL: "http://app.test/",
		}),
		goals:       NewGoalService(store, logger),
		systems:     NewSystemService(store, logger),
		checkins:    NewCheckinService(store, clk, logger),
		reflections: NewReflectionService(store, logger),
		comments:    NewCommentService(store, logger),
		reactions:   NewReactionService(store, logger),
		messages:    NewMessageService(store, clk, logger),
	}
}

// signUp creates a user the way the HTTP layer does on first sign-in.
func (e *testEnv) signUp(t *testing.T, username string) *model.User {
	t.Helper()
	u, created, err := e.users.SyncProfile(context.Background(), SyncProfileInput{
		Subject:  "sub-" + username,
		Email:    username + "@example.com",
		Username: username,
		Name:     username,
	})
	require.NoError(t, err)
	require.True(t, created)
	return u
}

// reload reads a user back from the store.
func (e *testEnv) reload(t *testing.T, u *model.User) *model.User {
	t.Helper()
	fresh, err := e.store.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

// partnerUp makes a and b active partners through the normal invite flow.
func (e *testEnv) partnerUp(t *testing.T, a, b *model.User) *model.Partnership {
	t.Helper()
	ctx := context.Background()
	p, err := e.partnerships.SendInvite(ctx, a, b.Email)
	require.NoError(t, err)
	p, err = e.partnerships.RespondToInvite(ctx, p.ID, b, model.DecisionAccept)
	require.NoError(t, err)
	require.Equal(t, model.PartnershipActive, p.Status)
	return p
}

// goalWithSystem creates a goal owned by u with one system under it.
func (e *testEnv) goalWithSystem(t *testing.T, u *model.User, verify bool) (*model.Goal, *model.System) {
	t.Helper()
	ctx := context.Background()
	g, err := e.goals.Create(ctx, u, CreateGoalInput{Title: "Read more books"})
	require.NoError(t, err)
	s, err := e.systems.Create(ctx, u, g.ID, CreateSystemInput{
		Title:                "Read 10 pages",
		VerificationRequired: verify,
	})
	require.NoError(t, err)
	return g, s
}
