package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
)

var _ repository.GoalRepository = (*GoalDB)(nil)

type GoalDB struct {
	db *DB
}

const goalColumns = `id, user_id, title, description, category, priority, status,
	start_date, target_date, is_archived, created_at, updated_at`

func scanGoal(row scanner) (*model.Goal, error) {
	var (
		g                     model.Goal
		startDate, targetDate sql.NullString
	)
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.Title,
		&g.Description,
		&g.Category,
		&g.Priority,
		&g.Status,
		&startDate,
		&targetDate,
		&g.IsArchived,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.StartDate = stringPtr(startDate)
	g.TargetDate = stringPtr(targetDate)
	return &g, nil
}

func (r *GoalDB) Create(ctx context.Context, goal *model.Goal) error {
	now := r.db.clock.Now().UTC()
	goal.ID = uuid.NewString()
	goal.CreatedAt = now
	goal.UpdatedAt = now
	if goal.Priority == "" {
		goal.Priority = model.PriorityMedium
	}
	if goal.Status == "" {
		goal.Status = model.GoalNotStarted
	}

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.Category,
		goal.Priority,
		goal.Status,
		nullString(goal.StartDate),
		nullString(goal.TargetDate),
		goal.IsArchived,
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting goal: %w", err)
	}
	return nil
}

func (r *GoalDB) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	g, err := scanGoal(r.db.q.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("goal", id)
		}
		return nil, fmt.Errorf("sqlite: getting goal %s: %w", id, err)
	}
	return g, nil
}

func (r *GoalDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Goal, error) {
	limit, offset := pageBounds(opts)

	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing goals for %s: %w", userID, err)
	}
	defer rows.Close()

	goals := make([]model.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning goal row: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating goals: %w", err)
	}
	return goals, nil
}

func (r *GoalDB) Update(ctx context.Context, goal *model.Goal) error {
	goal.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE goals
		 SET title = ?, description = ?, category = ?, priority = ?, status = ?,
		     start_date = ?, target_date = ?, is_archived = ?, updated_at = ?
		 WHERE id = ?`,
		goal.Title,
		goal.Description,
		goal.Category,
		goal.Priority,
		goal.Status,
		nullString(goal.StartDate),
		nullString(goal.TargetDate),
		goal.IsArchived,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating goal %s: %w", goal.ID, err)
	}
	return checkAffected(result, "goal", goal.ID)
}

// Delete removes the goal; its systems, checkins, reflections and comments
// go with it through ON DELETE CASCADE.
func (r *GoalDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting goal %s: %w", id, err)
	}
	return checkAffected(result, "goal", id)
}
