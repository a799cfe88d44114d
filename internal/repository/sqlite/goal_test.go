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

func TestGoalCreate_Defaults(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	g := createTestGoal(t, db, alice.ID, "Run a marathon")
	got, err := db.Goals().GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, model.GoalNotStarted, got.Status)
	assert.False(t, got.IsArchived)
	assert.Nil(t, got.StartDate)
}

func TestGoalUpdate_PersistsPatch(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	g := createTestGoal(t, db, alice.ID, "Run a marathon")

	date := "2026-10-01"
	archived := true
	model.GoalPatch{TargetDate: &date, IsArchived: &archived}.Apply(g)
	require.NoError(t, db.Goals().Update(ctx, g))

	got, err := db.Goals().GetByID(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TargetDate)
	assert.Equal(t, "2026-10-01", *got.TargetDate)
	assert.True(t, got.IsArchived)
	assert.Equal(t, "Run a marathon", got.Title)
}

func TestGoalListByUser_Pagination(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	for _, title := range []string{"one", "two", "three"} {
		createTestGoal(t, db, alice.ID, title)
	}
	createTestGoal(t, db, bob.ID, "bob's")

	all, err := db.Goals().ListByUser(ctx, alice.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Title, "newest first")

	page, err := db.Goals().ListByUser(ctx, alice.ID, repository.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "one", page[0].Title)
}

func TestGoalDelete_CascadesToDescendants(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	g := createTestGoal(t, db, alice.ID, "Run a marathon")
	s := createTestSystem(t, db, g.ID)
	c := createTestCheckin(t, db, s.ID, alice.ID)
	ref := &model.Reflection{GoalID: g.ID, ReflectionDate: "2026-03-01", Content: "good week"}
	require.NoError(t, db.Reflections().Create(ctx, ref))
	comment := &model.Comment{AuthorID: alice.ID, CheckinID: &c.ID, Content: "nice"}
	require.NoError(t, db.Comments().Create(ctx, comment))

	require.NoError(t, db.Goals().Delete(ctx, g.ID))

	_, err := db.Systems().GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = db.Checkins().GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = db.Reflections().GetByID(ctx, ref.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = db.Comments().GetByID(ctx, comment.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, db.Goals().Delete(ctx, g.ID), apperror.ErrNotFound)
}

func TestSystemAndCheckin_RoundTrip(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	g := createTestGoal(t, db, alice.ID, "Read more")

	target := 10.0
	s := &model.System{GoalID: g.ID, Title: "Pages", MetricType: model.MetricPages, TargetValue: &target, VerificationRequired: true}
	require.NoError(t, db.Systems().Create(ctx, s))

	gotSystem, err := db.Systems().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyDaily, gotSystem.Frequency)
	require.NotNil(t, gotSystem.TargetValue)
	assert.Equal(t, 10.0, *gotSystem.TargetValue)
	assert.True(t, gotSystem.VerificationRequired)

	value := 12.0
	c := &model.Checkin{SystemID: s.ID, UserID: alice.ID, Status: model.CheckinPendingVerification, MetricValue: &value}
	require.NoError(t, db.Checkins().Create(ctx, c))
	assert.True(t, c.CheckinAt.Equal(testNow))

	query := "photo?"
	c.Status = model.CheckinQueriedByPartner
	c.VerifierQuery = &query
	require.NoError(t, db.Checkins().Update(ctx, c))

	list, err := db.Checkins().ListBySystem(ctx, s.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.CheckinQueriedByPartner, list[0].Status)
	require.NotNil(t, list[0].VerifierQuery)
	assert.Equal(t, "photo?", *list[0].VerifierQuery)
}
