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

var _ repository.CommentRepository = (*CommentDB)(nil)

type CommentDB struct {
	db *DB
}

const commentColumns = `id, author_id, goal_id, checkin_id, parent_comment_id, content, created_at, updated_at`

func scanComment(row scanner) (*model.Comment, error) {
	var (
		c                         model.Comment
		goalID, checkinID, parent sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.AuthorID,
		&goalID,
		&checkinID,
		&parent,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.GoalID = stringPtr(goalID)
	c.CheckinID = stringPtr(checkinID)
	c.ParentCommentID = stringPtr(parent)
	return &c, nil
}

func (r *CommentDB) Create(ctx context.Context, comment *model.Comment) error {
	now := r.db.clock.Now().UTC()
	comment.ID = uuid.NewString()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.AuthorID,
		nullString(comment.GoalID),
		nullString(comment.CheckinID),
		nullString(comment.ParentCommentID),
		comment.Content,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}
	return nil
}

func (r *CommentDB) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(r.db.q.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return c, nil
}

func (r *CommentDB) ListByGoal(ctx context.Context, goalID string) ([]model.Comment, error) {
	return r.list(ctx, `goal_id`, goalID)
}

func (r *CommentDB) ListByCheckin(ctx context.Context, checkinID string) ([]model.Comment, error) {
	return r.list(ctx, `checkin_id`, checkinID)
}

// list returns a thread in posting order. column is a constant from this file.
func (r *CommentDB) list(ctx context.Context, column, id string) ([]model.Comment, error) {
	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments
		 WHERE `+column+` = ?
		 ORDER BY created_at, rowid`,
		id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments by %s: %w", column, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

func (r *CommentDB) Update(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		comment.Content, comment.UpdatedAt, comment.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", comment.ID, err)
	}
	return checkAffected(result, "comment", comment.ID)
}

// Delete removes the comment and, through the self-referencing cascade,
// its replies.
func (r *CommentDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return checkAffected(result, "comment", id)
}
