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

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

type UserDB struct {
	db *DB
}

const userColumns = `id, subject, email, username, name, bio, timezone,
	current_partnership_id, created_at, updated_at`

func scanUser(row scanner) (*model.User, error) {
	var (
		u             model.User
		partnershipID sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Subject,
		&u.Email,
		&u.Username,
		&u.Name,
		&u.Bio,
		&u.Timezone,
		&partnershipID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CurrentPartnershipID = stringPtr(partnershipID)
	return &u, nil
}

// Create inserts a new user. Email is normalized before storage; a taken
// subject, email or username is reported as a conflict.
func (r *UserDB) Create(ctx context.Context, user *model.User) error {
	now := r.db.clock.Now().UTC()
	user.ID = uuid.NewString()
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Subject,
		user.Email,
		user.Username,
		user.Name,
		user.Bio,
		user.Timezone,
		nullString(user.CurrentPartnershipID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("a user with this email or username already exists")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

func (r *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserDB) GetBySubject(ctx context.Context, subject string) (*model.User, error) {
	return r.getBy(ctx, "subject", subject)
}

func (r *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", model.NormalizeEmail(email))
}

func (r *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getBy(ctx, "username", username)
}

// getBy looks a user up by one unique column. column is always a constant
// from this file, never user input.
func (r *UserDB) getBy(ctx context.Context, column, value string) (*model.User, error) {
	row := r.db.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return u, nil
}

// Update writes the profile fields. The partnership pointer is only changed
// through SetPartnershipIfUnset and ClearPartnership.
func (r *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = r.db.clock.Now().UTC()
	user.Email = model.NormalizeEmail(user.Email)

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, username = ?, name = ?, bio = ?, timezone = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.Username,
		user.Name,
		user.Bio,
		user.Timezone,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("a user with this email or username already exists")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return checkAffected(result, "user", user.ID)
}

// SetPartnershipIfUnset is a compare-and-set on current_partnership_id.
func (r *UserDB) SetPartnershipIfUnset(ctx context.Context, userID, partnershipID string) (bool, error) {
	result, err := r.db.q.ExecContext(ctx,
		`UPDATE users SET current_partnership_id = ?, updated_at = ?
		 WHERE id = ? AND current_partnership_id IS NULL`,
		partnershipID, r.db.clock.Now().UTC(), userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: linking user %s to partnership %s: %w", userID, partnershipID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *UserDB) ClearPartnership(ctx context.Context, userID, partnershipID string) error {
	_, err := r.db.q.ExecContext(ctx,
		`UPDATE users SET current_partnership_id = NULL, updated_at = ?
		 WHERE id = ? AND current_partnership_id = ?`,
		r.db.clock.Now().UTC(), userID, partnershipID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unlinking user %s from partnership %s: %w", userID, partnershipID, err)
	}
	return nil
}
