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

var _ repository.CheckinRepository = (*CheckinDB)(nil)

type CheckinDB struct {
	db *DB
}

const checkinColumns = `id, system_id, user_id, status, metric_value, notes, checkin_at,
	verified_by_id, verified_at, verifier_query, created_at, updated_at`

func scanCheckin(row scanner) (*model.Checkin, error) {
	var (
		c                 model.Checkin
		metricValue       sql.NullFloat64
		verifiedBy, query sql.NullString
		verifiedAt        sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.SystemID,
		&c.UserID,
		&c.Status,
		&metricValue,
		&c.Notes,
		&c.CheckinAt,
		&verifiedBy,
		&verifiedAt,
		&query,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.MetricValue = floatPtr(metricValue)
	c.VerifiedByID = stringPtr(verifiedBy)
	c.VerifiedAt = timePtr(verifiedAt)
	c.VerifierQuery = stringPtr(query)
	return &c, nil
}

func (r *CheckinDB) Create(ctx context.Context, checkin *model.Checkin) error {
	now := r.db.clock.Now().UTC()
	checkin.ID = uuid.NewString()
	checkin.CreatedAt = now
	checkin.UpdatedAt = now
	if checkin.CheckinAt.IsZero() {
		checkin.CheckinAt = now
	}

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO checkins (`+checkinColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		checkin.ID,
		checkin.SystemID,
		checkin.UserID,
		checkin.Status,
		nullFloat(checkin.MetricValue),
		checkin.Notes,
		checkin.CheckinAt,
		nullString(checkin.VerifiedByID),
		nullTime(checkin.VerifiedAt),
		nullString(checkin.VerifierQuery),
		checkin.CreatedAt,
		checkin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting checkin: %w", err)
	}
	return nil
}

func (r *CheckinDB) GetByID(ctx context.Context, id string) (*model.Checkin, error) {
	c, err := scanCheckin(r.db.q.QueryRowContext(ctx,
		`SELECT `+checkinColumns+` FROM checkins WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("checkin", id)
		}
		return nil, fmt.Errorf("sqlite: getting checkin %s: %w", id, err)
	}
	return c, nil
}

// ListBySystem returns checkins newest first.
func (r *CheckinDB) ListBySystem(ctx context.Context, systemID string, opts repository.ListOptions) ([]model.Checkin, error) {
	limit, offset := pageBounds(opts)

	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+checkinColumns+` FROM checkins
		 WHERE system_id = ?
		 ORDER BY checkin_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		systemID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing checkins for system %s: %w", systemID, err)
	}
	defer rows.Close()

	checkins := make([]model.Checkin, 0)
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning checkin row: %w", err)
		}
		checkins = append(checkins, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating checkins: %w", err)
	}
	return checkins, nil
}

func (r *CheckinDB) Update(ctx context.Context, checkin *model.Checkin) error {
	checkin.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE checkins
		 SET status = ?, metric_value = ?, notes = ?, verified_by_id = ?,
		     verified_at = ?, verifier_query = ?, updated_at = ?
		 WHERE id = ?`,
		checkin.Status,
		nullFloat(checkin.MetricValue),
		checkin.Notes,
		nullString(checkin.VerifiedByID),
		nullTime(checkin.VerifiedAt),
		nullString(checkin.VerifierQuery),
		checkin.UpdatedAt,
		checkin.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating checkin %s: %w", checkin.ID, err)
	}
	return checkAffected(result, "checkin", checkin.ID)
}

func (r *CheckinDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM checkins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting checkin %s: %w", id, err)
	}
	return checkAffected(result, "checkin", id)
}
