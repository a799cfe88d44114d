package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
)

// =========================================================================
// COMMENT TESTS
// =========================================================================

func TestCommentCreate_NeedsExactlyOneTarget(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	goal, system := env.goalWithSystem(t, alice, false)
	checkin, err := env.checkins.Create(ctx, alice, system.ID, CreateCheckinInput{})
	require.NoError(t, err)

	_, err = env.comments.Create(ctx, alice, CreateCommentInput{
		GoalID:    goal.ID,
		CheckinID: checkin.ID,
		Content:   "both",
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.comments.Create(ctx, alice, CreateCommentInput{Content: "neither"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	onGoal, err := env.comments.ListForGoal(ctx, alice, goal.ID)
	require.NoError(t, err)
	onCheckin, err := env.comments.ListForCheckin(ctx, alice, checkin.ID)
	require.NoError(t, err)
	assert.Empty(t, onGoal, "no row persisted")
	assert.Empty(t, onCheckin, "no row persisted")
}

func TestComment_PartnerThreadOnCheckin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	bob := env.signUp(t, "bob")
	env.partnerUp(t, alice, bob)
	goal, system := env.goalWithSystem(t, alice, false)
	checkin, err := env.checkins.Create(ctx, alice, system.ID, CreateCheckinInput{})
	require.NoError(t, err)

	root, err := env.comments.Create(ctx, bob, CreateCommentInput{CheckinID: checkin.ID, Content: "Nice streak!"})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, root.AuthorID)

	env.clock.Advance(time.Minute)
	reply, err := env.comments.Create(ctx, alice, CreateCommentInput{
		CheckinID:       checkin.ID,
		ParentCommentID: root.ID,
		Content:         "Thanks",
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)
	assert.Equal(t, root.ID, *reply.ParentCommentID)

	_, err = env.comments.Create(ctx, alice, CreateCommentInput{
		GoalID:          goal.ID,
		ParentCommentID: root.ID,
		Content:         "wrong thread",
	})
	assert.ErrorIs(t, err, apperror.ErrValidation, "a reply must share its parent's target")

	thread, err := env.comments.ListForCheckin(ctx, alice, checkin.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, root.ID, thread[0].ID)

	_, err = env.comments.Update(ctx, alice, root.ID, UpdateCommentInput{Content: "edited"})
	assert.ErrorIs(t, err, apperror.ErrForbidden, "only the author may edit")

	edited, err := env.comments.Update(ctx, bob, root.ID, UpdateCommentInput{Content: "Great streak!"})
	require.NoError(t, err)
	assert.Equal(t, "Great streak!", edited.Content)

	require.NoError(t, env.comments.Delete(ctx, bob, root.ID))
	thread, err = env.comments.ListForCheckin(ctx, alice, checkin.ID)
	require.NoError(t, err)
	assert.Empty(t, thread, "replies are deleted with their parent")
}

func TestComment_NonPartnerCannotRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	carol := env.signUp(t, "carol")
	goal, _ := env.goalWithSystem(t, alice, false)

	_, err := env.comments.Create(ctx, alice, CreateCommentInput{GoalID: goal.ID, Content: "note to self"})
	require.NoError(t, err)

	comments, err := env.comments.ListForGoal(ctx, carol, goal.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Nil(t, comments)

	_, err = env.comments.Create(ctx, carol, CreateCommentInput{GoalID: goal.ID, Content: "hi"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

// =========================================================================
// REACTION TESTS
// =========================================================================

func TestReaction_AddListRemove(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	bob := env.signUp(t, "bob")
	carol := env.signUp(t, "carol")
	env.partnerUp(t, alice, bob)
	goal, _ := env.goalWithSystem(t, alice, false)
	reflection, err := env.reflections.Create(ctx, alice, goal.ID,
		CreateReflectionInput{ReflectionDate: "2026-03-01", Content: "Good week."})
	require.NoError(t, err)

	in := AddReactionInput{TargetKind: model.ReactionOnReflection, TargetID: reflection.ID, Emoji: "👏"}
	r, err := env.reactions.Add(ctx, bob, in)
	require.NoError(t, err)

	_, err = env.reactions.Add(ctx, bob, in)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = env.reactions.Add(ctx, carol, in)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	list, err := env.reactions.ListForTarget(ctx, alice, model.ReactionOnReflection, reflection.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].UserID)

	assert.ErrorIs(t, env.reactions.Remove(ctx, alice, r.ID), apperror.ErrForbidden)
	require.NoError(t, env.reactions.Remove(ctx, bob, r.ID))
	assert.ErrorIs(t, env.reactions.Remove(ctx, bob, r.ID), apperror.ErrNotFound)
}

func TestReaction_BadTarget(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")

	_, err := env.reactions.Add(ctx, alice, AddReactionInput{TargetKind: "goal", TargetID: "x", Emoji: "👍"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.reactions.Add(ctx, alice, AddReactionInput{TargetKind: model.ReactionOnCheckin, TargetID: "missing", Emoji: "👍"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// DIRECT MESSAGE TESTS
// =========================================================================

func TestMessages_Conversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	bob := env.signUp(t, "bob")
	carol := env.signUp(t, "carol")
	p := env.partnerUp(t, alice, bob)

	first, err := env.messages.Send(ctx, alice, SendMessageInput{PartnershipID: p.ID, Text: "Morning!"})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.messages.Send(ctx, bob, SendMessageInput{PartnershipID: p.ID, Emoji: "☀️"})
	require.NoError(t, err)

	_, err = env.messages.Send(ctx, alice, SendMessageInput{PartnershipID: p.ID})
	assert.ErrorIs(t, err, apperror.ErrValidation, "text or emoji is required")

	_, err = env.messages.Send(ctx, carol, SendMessageInput{PartnershipID: p.ID, Text: "let me in"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	convo, err := env.messages.ListConversation(ctx, bob, p.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, convo, 2)
	assert.Equal(t, first.ID, convo[0].ID)

	_, err = env.messages.ListConversation(ctx, carol, p.ID, repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestMessages_MarkReadIsRecipientOnlyAndIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	bob := env.signUp(t, "bob")
	p := env.partnerUp(t, alice, bob)

	msg, err := env.messages.Send(ctx, alice, SendMessageInput{PartnershipID: p.ID, Text: "Did you run?"})
	require.NoError(t, err)

	_, err = env.messages.MarkRead(ctx, alice, msg.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	env.clock.Advance(time.Minute)
	read, err := env.messages.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	firstRead := *read.ReadAt

	env.clock.Advance(time.Minute)
	again, err := env.messages.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, again.ReadAt.Equal(firstRead))
}

func TestMessages_DeleteBySenderOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	bob := env.signUp(t, "bob")
	p := env.partnerUp(t, alice, bob)

	msg, err := env.messages.Send(ctx, alice, SendMessageInput{PartnershipID: p.ID, Text: "oops"})
	require.NoError(t, err)
	_, err = env.reactions.Add(ctx, bob, AddReactionInput{TargetKind: model.ReactionOnMessage, TargetID: msg.ID, Emoji: "😂"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.messages.Delete(ctx, bob, msg.ID), apperror.ErrForbidden)
	require.NoError(t, env.messages.Delete(ctx, alice, msg.ID))

	left, err := env.store.Reactions().ListByTarget(ctx, model.ReactionOnMessage, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestMessages_ReadOnlyAfterTerminate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.signUp(t, "alice")
	bob := env.signUp(t, "bob")
	carol := env.signUp(t, "carol")
	p := env.partnerUp(t, alice, bob)

	_, err := env.messages.Send(ctx, alice, SendMessageInput{PartnershipID: p.ID, Text: "bye"})
	require.NoError(t, err)
	require.NoError(t, env.partnerships.Terminate(ctx, p.ID, alice))

	_, err = env.messages.Send(ctx, alice, SendMessageInput{PartnershipID: p.ID, Text: "still there?"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	history, err := env.messages.ListConversation(ctx, bob, p.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bye", history[0].Text)

	_, err = env.messages.ListConversation(ctx, carol, p.ID, repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
