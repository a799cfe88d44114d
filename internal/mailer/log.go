package mailer

import (
	"context"
	"log/slog"

	"github.com/rs/xid"
)

// Log is the development Mailer: it renders the message and writes it to
// the logger instead of sending it.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (m *Log) SendPartnershipInvite(ctx context.Context, inv Invite) (string, error) {
	subject, _, err := renderInvite(inv)
	if err != nil {
		return "", err
	}

	id := xid.New().String()
	m.logger.InfoContext(ctx, "email not sent (no provider configured)",
		slog.String("deliveryID", id),
		slog.String("to", inv.To),
		slog.String("subject", subject),
		slog.String("acceptURL", inv.AcceptURL),
	)
	return id, nil
}
