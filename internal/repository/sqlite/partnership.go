package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
)

// compile-time check that *PartnershipDB implements repository.PartnershipRepository
var _ repository.PartnershipRepository = (*PartnershipDB)(nil)

type PartnershipDB struct {
	db *DB
}

const partnershipColumns = `id, user1_id, user2_id, status, invite_token,
	invite_token_expires_at, invite_email, created_at, updated_at,
	activated_at, dissolved_at`

func scanPartnership(row scanner) (*model.Partnership, error) {
	var (
		p                                   model.Partnership
		user2, token, email                 sql.NullString
		expiresAt, activatedAt, dissolvedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.User1ID,
		&user2,
		&p.Status,
		&token,
		&expiresAt,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
		&activatedAt,
		&dissolvedAt,
	)
	if err != nil {
		return nil, err
	}
	p.User2ID = stringPtr(user2)
	p.InviteToken = stringPtr(token)
	p.InviteTokenExpiresAt = timePtr(expiresAt)
	p.InviteEmail = stringPtr(email)
	p.ActivatedAt = timePtr(activatedAt)
	p.DissolvedAt = timePtr(dissolvedAt)
	return &p, nil
}

// Create inserts a partnership. The partial unique index on pending invites
// turns a second live invite from the same requester into
// apperror.ErrPendingInviteExists.
func (r *PartnershipDB) Create(ctx context.Context, p *model.Partnership) error {
	now := r.db.clock.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO partnerships (`+partnershipColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.User1ID,
		nullString(p.User2ID),
		p.Status,
		nullString(p.InviteToken),
		nullTime(p.InviteTokenExpiresAt),
		nullString(p.InviteEmail),
		p.CreatedAt,
		p.UpdatedAt,
		nullTime(p.ActivatedAt),
		nullTime(p.DissolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "partnerships.user1_id") {
				return apperror.PendingInviteExists()
			}
			return apperror.Conflict("partnership", p.ID)
		}
		return fmt.Errorf("sqlite: inserting partnership: %w", err)
	}
	return nil
}

func (r *PartnershipDB) GetByID(ctx context.Context, id string) (*model.Partnership, error) {
	p, err := scanPartnership(r.db.q.QueryRowContext(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("partnership", id)
		}
		return nil, fmt.Errorf("sqlite: getting partnership %s: %w", id, err)
	}
	return p, nil
}

// GetByToken returns apperror.ErrInvalidToken when no partnership carries
// exactly this token.
func (r *PartnershipDB) GetByToken(ctx context.Context, token string) (*model.Partnership, error) {
	p, err := scanPartnership(r.db.q.QueryRowContext(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships WHERE invite_token = ?`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.InvalidToken()
		}
		return nil, fmt.Errorf("sqlite: getting partnership by token: %w", err)
	}
	return p, nil
}

// GetActiveForUser returns the user's ACTIVE partnership or a NotFound.
func (r *PartnershipDB) GetActiveForUser(ctx context.Context, userID string) (*model.Partnership, error) {
	p, err := scanPartnership(r.db.q.QueryRowContext(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships
		 WHERE status = ? AND (user1_id = ? OR user2_id = ?)
		 ORDER BY activated_at DESC
		 LIMIT 1`,
		model.PartnershipActive, userID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("active partnership for user", userID)
		}
		return nil, fmt.Errorf("sqlite: getting active partnership for %s: %w", userID, err)
	}
	return p, nil
}

// GetPendingFromUser returns the requester's outgoing PENDING_INVITE
// partnership, if any.
func (r *PartnershipDB) GetPendingFromUser(ctx context.Context, userID string) (*model.Partnership, error) {
	p, err := scanPartnership(r.db.q.QueryRowContext(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships
		 WHERE status = ? AND user1_id = ?`,
		model.PartnershipPendingInvite, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("pending invite from user", userID)
		}
		return nil, fmt.Errorf("sqlite: getting pending invite from %s: %w", userID, err)
	}
	return p, nil
}

func (r *PartnershipDB) ListPendingForEmail(ctx context.Context, email string) ([]model.Partnership, error) {
	return r.list(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships
		 WHERE status = ? AND invite_email = ?
		 ORDER BY created_at DESC, rowid DESC`,
		model.PartnershipPendingInvite, model.NormalizeEmail(email))
}

func (r *PartnershipDB) ListPendingFromUser(ctx context.Context, userID string) ([]model.Partnership, error) {
	return r.list(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships
		 WHERE status = ? AND user1_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		model.PartnershipPendingInvite, userID)
}

func (r *PartnershipDB) list(ctx context.Context, query string, args ...any) ([]model.Partnership, error) {
	rows, err := r.db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing partnerships: %w", err)
	}
	defer rows.Close()

	partnerships := []model.Partnership{}
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning partnership row: %w", err)
		}
		partnerships = append(partnerships, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating partnerships: %w", err)
	}
	return partnerships, nil
}

// Update persists every mutable field of the partnership.
func (r *PartnershipDB) Update(ctx context.Context, p *model.Partnership) error {
	p.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE partnerships
		 SET user2_id = ?, status = ?, invite_token = ?, invite_token_expires_at = ?,
		     invite_email = ?, updated_at = ?, activated_at = ?, dissolved_at = ?
		 WHERE id = ?`,
		nullString(p.User2ID),
		p.Status,
		nullString(p.InviteToken),
		nullTime(p.InviteTokenExpiresAt),
		nullString(p.InviteEmail),
		p.UpdatedAt,
		nullTime(p.ActivatedAt),
		nullTime(p.DissolvedAt),
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("partnership", p.ID)
		}
		return fmt.Errorf("sqlite: updating partnership %s: %w", p.ID, err)
	}
	return checkAffected(result, "partnership", p.ID)
}
