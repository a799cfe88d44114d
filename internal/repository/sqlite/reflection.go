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

var _ repository.ReflectionRepository = (*ReflectionDB)(nil)

type ReflectionDB struct {
	db *DB
}

const reflectionColumns = `id, goal_id, reflection_date, content, prompt_text, created_at, updated_at`

func scanReflection(row scanner) (*model.Reflection, error) {
	var r model.Reflection
	err := row.Scan(
		&r.ID,
		&r.GoalID,
		&r.ReflectionDate,
		&r.Content,
		&r.PromptText,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a reflection. A second reflection for the same goal and
// date is a conflict.
func (r *ReflectionDB) Create(ctx context.Context, reflection *model.Reflection) error {
	now := r.db.clock.Now().UTC()
	reflection.ID = uuid.NewString()
	reflection.CreatedAt = now
	reflection.UpdatedAt = now

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO reflections (`+reflectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reflection.ID,
		reflection.GoalID,
		reflection.ReflectionDate,
		reflection.Content,
		reflection.PromptText,
		reflection.CreatedAt,
		reflection.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage(fmt.Sprintf(
				"a reflection for %s already exists on this goal", reflection.ReflectionDate))
		}
		return fmt.Errorf("sqlite: inserting reflection: %w", err)
	}
	return nil
}

func (r *ReflectionDB) GetByID(ctx context.Context, id string) (*model.Reflection, error) {
	ref, err := scanReflection(r.db.q.QueryRowContext(ctx,
		`SELECT `+reflectionColumns+` FROM reflections WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("reflection", id)
		}
		return nil, fmt.Errorf("sqlite: getting reflection %s: %w", id, err)
	}
	return ref, nil
}

// ListByGoal returns reflections newest date first.
func (r *ReflectionDB) ListByGoal(ctx context.Context, goalID string) ([]model.Reflection, error) {
	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+reflectionColumns+` FROM reflections
		 WHERE goal_id = ?
		 ORDER BY reflection_date DESC`,
		goalID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reflections for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	reflections := make([]model.Reflection, 0)
	for rows.Next() {
		ref, err := scanReflection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning reflection row: %w", err)
		}
		reflections = append(reflections, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reflections: %w", err)
	}
	return reflections, nil
}

func (r *ReflectionDB) Update(ctx context.Context, reflection *model.Reflection) error {
	reflection.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE reflections SET content = ?, prompt_text = ?, updated_at = ? WHERE id = ?`,
		reflection.Content,
		reflection.PromptText,
		reflection.UpdatedAt,
		reflection.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating reflection %s: %w", reflection.ID, err)
	}
	return checkAffected(result, "reflection", reflection.ID)
}

func (r *ReflectionDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM reflections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reflection %s: %w", id, err)
	}
	return checkAffected(result, "reflection", id)
}
