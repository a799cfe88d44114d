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

var _ repository.ReactionRepository = (*ReactionDB)(nil)

type ReactionDB struct {
	db *DB
}

const reactionColumns = `id, user_id, emoji, target_kind, target_id, created_at`

func scanReaction(row scanner) (*model.Reaction, error) {
	var r model.Reaction
	if err := row.Scan(&r.ID, &r.UserID, &r.Emoji, &r.TargetKind, &r.TargetID, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a reaction. The unique index on
// (user_id, target_kind, target_id, emoji) makes a repeat a conflict.
func (r *ReactionDB) Create(ctx context.Context, reaction *model.Reaction) error {
	reaction.ID = uuid.NewString()
	reaction.CreatedAt = r.db.clock.Now().UTC()

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO reactions (`+reactionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		reaction.ID,
		reaction.UserID,
		reaction.Emoji,
		reaction.TargetKind,
		reaction.TargetID,
		reaction.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("you have already reacted with this emoji")
		}
		return fmt.Errorf("sqlite: inserting reaction: %w", err)
	}
	return nil
}

func (r *ReactionDB) GetByID(ctx context.Context, id string) (*model.Reaction, error) {
	reaction, err := scanReaction(r.db.q.QueryRowContext(ctx,
		`SELECT `+reactionColumns+` FROM reactions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("reaction", id)
		}
		return nil, fmt.Errorf("sqlite: getting reaction %s: %w", id, err)
	}
	return reaction, nil
}

func (r *ReactionDB) ListByTarget(ctx context.Context, kind model.ReactionTargetKind, targetID string) ([]model.Reaction, error) {
	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+reactionColumns+` FROM reactions
		 WHERE target_kind = ? AND target_id = ?
		 ORDER BY created_at, rowid`,
		kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reactions on %s %s: %w", kind, targetID, err)
	}
	defer rows.Close()

	reactions := make([]model.Reaction, 0)
	for rows.Next() {
		reaction, err := scanReaction(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning reaction row: %w", err)
		}
		reactions = append(reactions, *reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reactions: %w", err)
	}
	return reactions, nil
}

func (r *ReactionDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM reactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reaction %s: %w", id, err)
	}
	return checkAffected(result, "reaction", id)
}

func (r *ReactionDB) DeleteByTarget(ctx context.Context, kind model.ReactionTargetKind, targetID string) error {
	_, err := r.db.q.ExecContext(ctx,
		`DELETE FROM reactions WHERE target_kind = ? AND target_id = ?`, kind, targetID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reactions on %s %s: %w", kind, targetID, err)
	}
	return nil
}
