package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
)

// ===== REFLECTION TESTS =====

func TestReflectionCreate_DuplicateDateIsConflict(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	g := createTestGoal(t, db, alice.ID, "Read more")

	require.NoError(t, db.Reflections().Create(ctx, &model.Reflection{GoalID: g.ID, ReflectionDate: "2026-03-01", Content: "a"}))
	err := db.Reflections().Create(ctx, &model.Reflection{GoalID: g.ID, ReflectionDate: "2026-03-01", Content: "b"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	require.NoError(t, db.Reflections().Create(ctx, &model.Reflection{GoalID: g.ID, ReflectionDate: "2026-03-02", Content: "c"}))
	list, err := db.Reflections().ListByGoal(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-03-02", list[0].ReflectionDate)
}

// ===== COMMENT TESTS =====

func TestCommentCreate_BothTargetsRejectedByCheck(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	g := createTestGoal(t, db, alice.ID, "Read more")
	s := createTestSystem(t, db, g.ID)
	c := createTestCheckin(t, db, s.ID, alice.ID)

	err := db.Comments().Create(ctx, &model.Comment{AuthorID: alice.ID, GoalID: &g.ID, CheckinID: &c.ID, Content: "x"})
	assert.Error(t, err)

	list, err := db.Comments().ListByGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCommentDelete_CascadesToReplies(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	g := createTestGoal(t, db, alice.ID, "Read more")

	parent := &model.Comment{AuthorID: alice.ID, GoalID: &g.ID, Content: "first"}
	require.NoError(t, db.Comments().Create(ctx, parent))
	reply := &model.Comment{AuthorID: alice.ID, GoalID: &g.ID, ParentCommentID: &parent.ID, Content: "reply"}
	require.NoError(t, db.Comments().Create(ctx, reply))

	list, err := db.Comments().ListByGoal(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, parent.ID, list[0].ID)

	require.NoError(t, db.Comments().Delete(ctx, parent.ID))
	_, err = db.Comments().GetByID(ctx, reply.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// ===== REACTION TESTS =====

func TestReactionCreate_DuplicateIsConflict(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	r := &model.Reaction{UserID: alice.ID, Emoji: "🔥", TargetKind: model.ReactionOnCheckin, TargetID: "c1"}
	require.NoError(t, db.Reactions().Create(ctx, r))

	dup := &model.Reaction{UserID: alice.ID, Emoji: "🔥", TargetKind: model.ReactionOnCheckin, TargetID: "c1"}
	assert.ErrorIs(t, db.Reactions().Create(ctx, dup), apperror.ErrConflict)

	other := &model.Reaction{UserID: alice.ID, Emoji: "👏", TargetKind: model.ReactionOnCheckin, TargetID: "c1"}
	require.NoError(t, db.Reactions().Create(ctx, other))

	list, err := db.Reactions().ListByTarget(ctx, model.ReactionOnCheckin, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, db.Reactions().DeleteByTarget(ctx, model.ReactionOnCheckin, "c1"))
	list, err = db.Reactions().ListByTarget(ctx, model.ReactionOnCheckin, "c1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ===== DIRECT MESSAGE TESTS =====

func TestMessage_RoundTripAndMarkRead(t *testing.T) {
	db, clk := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	p := insertPartnership(t, db, alice.ID, model.PartnershipActive)

	m := &model.DirectMessage{PartnershipID: p.ID, SenderID: alice.ID, Text: "hi"}
	require.NoError(t, db.Messages().Create(ctx, m))
	assert.True(t, m.SentAt.Equal(testNow))

	readAt := clk.Now()
	m.ReadAt = &readAt
	require.NoError(t, db.Messages().Update(ctx, m))

	list, err := db.Messages().ListByPartnership(ctx, p.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ReadAt)
	assert.True(t, list[0].ReadAt.Equal(readAt))

	require.NoError(t, db.Messages().Delete(ctx, m.ID))
	assert.ErrorIs(t, db.Messages().Delete(ctx, m.ID), apperror.ErrNotFound)
}
