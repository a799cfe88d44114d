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

var _ repository.SystemRepository = (*SystemDB)(nil)

type SystemDB struct {
	db *DB
}

const systemColumns = `id, goal_id, title, description, frequency, metric_type,
	target_value, target_unit, status, verification_required, created_at, updated_at`

func scanSystem(row scanner) (*model.System, error) {
	var (
		s           model.System
		targetValue sql.NullFloat64
	)
	err := row.Scan(
		&s.ID,
		&s.GoalID,
		&s.Title,
		&s.Description,
		&s.Frequency,
		&s.MetricType,
		&targetValue,
		&s.TargetUnit,
		&s.Status,
		&s.VerificationRequired,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.TargetValue = floatPtr(targetValue)
	return &s, nil
}

func (r *SystemDB) Create(ctx context.Context, system *model.System) error {
	now := r.db.clock.Now().UTC()
	system.ID = uuid.NewString()
	system.CreatedAt = now
	system.UpdatedAt = now
	if system.Frequency == "" {
		system.Frequency = model.FrequencyDaily
	}
	if system.MetricType == "" {
		system.MetricType = model.MetricBinary
	}
	if system.Status == "" {
		system.Status = model.SystemActive
	}

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO systems (`+systemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		system.ID,
		system.GoalID,
		system.Title,
		system.Description,
		system.Frequency,
		system.MetricType,
		nullFloat(system.TargetValue),
		system.TargetUnit,
		system.Status,
		system.VerificationRequired,
		system.CreatedAt,
		system.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting system: %w", err)
	}
	return nil
}

func (r *SystemDB) GetByID(ctx context.Context, id string) (*model.System, error) {
	s, err := scanSystem(r.db.q.QueryRowContext(ctx,
		`SELECT `+systemColumns+` FROM systems WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("system", id)
		}
		return nil, fmt.Errorf("sqlite: getting system %s: %w", id, err)
	}
	return s, nil
}

func (r *SystemDB) ListByGoal(ctx context.Context, goalID string) ([]model.System, error) {
	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+systemColumns+` FROM systems
		 WHERE goal_id = ?
		 ORDER BY created_at, rowid`,
		goalID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing systems for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	systems := make([]model.System, 0)
	for rows.Next() {
		s, err := scanSystem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning system row: %w", err)
		}
		systems = append(systems, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating systems: %w", err)
	}
	return systems, nil
}

func (r *SystemDB) Update(ctx context.Context, system *model.System) error {
	system.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE systems
		 SET title = ?, description = ?, frequency = ?, metric_type = ?, target_value = ?,
		     target_unit = ?, status = ?, verification_required = ?, updated_at = ?
		 WHERE id = ?`,
		system.Title,
		system.Description,
		system.Frequency,
		system.MetricType,
		nullFloat(system.TargetValue),
		system.TargetUnit,
		system.Status,
		system.VerificationRequired,
		system.UpdatedAt,
		system.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating system %s: %w", system.ID, err)
	}
	return checkAffected(result, "system", system.ID)
}

func (r *SystemDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM systems WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting system %s: %w", id, err)
	}
	return checkAffected(result, "system", id)
}
