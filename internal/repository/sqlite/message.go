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

var _ repository.MessageRepository = (*MessageDB)(nil)

type MessageDB struct {
	db *DB
}

const messageColumns = `id, partnership_id, sender_id, text, emoji, sent_at, read_at, created_at, updated_at`

func scanMessage(row scanner) (*model.DirectMessage, error) {
	var (
		m      model.DirectMessage
		readAt sql.NullTime
	)
	err := row.Scan(
		&m.ID,
		&m.PartnershipID,
		&m.SenderID,
		&m.Text,
		&m.Emoji,
		&m.SentAt,
		&readAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ReadAt = timePtr(readAt)
	return &m, nil
}

func (r *MessageDB) Create(ctx context.Context, msg *model.DirectMessage) error {
	now := r.db.clock.Now().UTC()
	msg.ID = uuid.NewString()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.SentAt.IsZero() {
		msg.SentAt = now
	}

	_, err := r.db.q.ExecContext(ctx,
		`INSERT INTO direct_messages (`+messageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.PartnershipID,
		msg.SenderID,
		msg.Text,
		msg.Emoji,
		msg.SentAt,
		nullTime(msg.ReadAt),
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting direct message: %w", err)
	}
	return nil
}

func (r *MessageDB) GetByID(ctx context.Context, id string) (*model.DirectMessage, error) {
	m, err := scanMessage(r.db.q.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM direct_messages WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("message", id)
		}
		return nil, fmt.Errorf("sqlite: getting message %s: %w", id, err)
	}
	return m, nil
}

// ListByPartnership returns a page of the conversation in sending order.
func (r *MessageDB) ListByPartnership(ctx context.Context, partnershipID string, opts repository.ListOptions) ([]model.DirectMessage, error) {
	limit, offset := pageBounds(opts)

	rows, err := r.db.q.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM direct_messages
		 WHERE partnership_id = ?
		 ORDER BY sent_at, rowid
		 LIMIT ? OFFSET ?`,
		partnershipID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages for partnership %s: %w", partnershipID, err)
	}
	defer rows.Close()

	messages := make([]model.DirectMessage, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating messages: %w", err)
	}
	return messages, nil
}

func (r *MessageDB) Update(ctx context.Context, msg *model.DirectMessage) error {
	msg.UpdatedAt = r.db.clock.Now().UTC()

	result, err := r.db.q.ExecContext(ctx,
		`UPDATE direct_messages SET text = ?, emoji = ?, read_at = ?, updated_at = ? WHERE id = ?`,
		msg.Text, msg.Emoji, nullTime(msg.ReadAt), msg.UpdatedAt, msg.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating message %s: %w", msg.ID, err)
	}
	return checkAffected(result, "message", msg.ID)
}

func (r *MessageDB) Delete(ctx context.Context, id string) error {
	result, err := r.db.q.ExecContext(ctx, `DELETE FROM direct_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting message %s: %w", id, err)
	}
	return checkAffected(result, "message", id)
}
