package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
)

func TestSyncProfile_CreatesOnceThenReturnsExisting(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	in := SyncProfileInput{Subject: "auth0|123", Email: "Dana.Smith@Example.com"}
	first, created, err := env.users.SyncProfile(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "dana.smith@example.com", first.Email)
	assert.Equal(t, "danasmith", first.Username, "username derives from the email local part")
	assert.Equal(t, "UTC", first.Timezone)

	second, created, err := env.users.SyncProfile(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestSyncProfile_UpdatesChangedEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	dana := env.signUp(t, "dana")

	u, created, err := env.users.SyncProfile(ctx, SyncProfileInput{Subject: "sub-dana", Email: "dana@new.example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dana.ID, u.ID)
	assert.Equal(t, "dana@new.example.com", env.reload(t, dana).Email)
}

func TestSyncProfile_DerivedUsernameCollisionGetsSuffix(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, _, err := env.users.SyncProfile(ctx, SyncProfileInput{Subject: "sub-1", Email: "bob@a.com"})
	require.NoError(t, err)
	second, _, err := env.users.SyncProfile(ctx, SyncProfileInput{Subject: "sub-2", Email: "bob@b.com"})
	require.NoError(t, err)
	third, _, err := env.users.SyncProfile(ctx, SyncProfileInput{Subject: "sub-3", Email: "bob@c.com"})
	require.NoError(t, err)

	assert.Equal(t, "bob", first.Username)
	assert.Equal(t, "bob2", second.Username)
	assert.Equal(t, "bob3", third.Username)
}

func TestSyncProfile_LongDerivedUsernameStaysWithinLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	local := strings.Repeat("a", 60)

	_, _, err := env.users.SyncProfile(ctx, SyncProfileInput{Subject: "sub-1", Email: local + "@a.com"})
	require.NoError(t, err)
	second, _, err := env.users.SyncProfile(ctx, SyncProfileInput{Subject: "sub-2", Email: local + "@b.com"})
	require.NoError(t, err)

	assert.Len(t, second.Username, 50)
	assert.True(t, strings.HasSuffix(second.Username, "2"))
}

func TestSyncProfile_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		in      SyncProfileInput
		wantErr error
	}{
		{
			name:    "missing email",
			in:      SyncProfileInput{Subject: "sub-x"},
			wantErr: apperror.ErrValidation,
		},
		{
			name:    "bad username",
			in:      SyncProfileInput{Subject: "sub-x", Email: "x@example.com", Username: "no spaces!"},
			wantErr: apperror.ErrValidation,
		},
		{
			name:    "username taken",
			in:      SyncProfileInput{Subject: "sub-x", Email: "x@example.com", Username: "erin"},
			wantErr: apperror.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.signUp(t, "erin")

			_, _, err := env.users.SyncProfile(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCurrent_WithoutProfileIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.Current(context.Background(), "sub-ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	env.signUp(t, "bob")

	bio := "morning runner"
	u, err := env.users.UpdateProfile(ctx, alice, model.UserPatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, u.Bio)
	assert.Equal(t, "alice", u.Username, "nil fields are left alone")

	taken := "bob"
	_, err = env.users.UpdateProfile(ctx, alice, model.UserPatch{Username: &taken})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	badTZ := "Mars/Olympus"
	_, err = env.users.UpdateProfile(ctx, alice, model.UserPatch{Timezone: &badTZ})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGetPublic(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")

	pub, err := env.users.GetPublic(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, pub.ID)
	assert.Equal(t, "alice", pub.Username)
}
