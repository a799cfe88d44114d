package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/juju/clock"

	"github.com/sakif/duotrak/internal/access"
	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// MessageService carries direct messages between the two members of an
// active partnership.
type MessageService struct {
	store  repository.Store
	clock  clock.Clock
	logger *slog.Logger
}

func NewMessageService(store repository.Store, clk clock.Clock, logger *slog.Logger) *MessageService {
	return &MessageService{store: store, clock: clk, logger: logger}
}

type SendMessageInput struct {
	PartnershipID string `json:"partnershipId" validate:"required"`
	Text          string `json:"text"          validate:"required_without=Emoji,max=5000"`
	Emoji         string `json:"emoji"         validate:"max=32"`
}

// Send posts a message into the sender's current partnership. A message
// aimed at any other partnership is forbidden.
func (s *MessageService) Send(ctx context.Context, actor *model.User, in SendMessageInput) (*model.DirectMessage, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.Emoji = strings.TrimSpace(in.Emoji)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	msg := &model.DirectMessage{
		PartnershipID: in.PartnershipID,
		SenderID:      actor.ID,
		Text:          in.Text,
		Emoji:         in.Emoji,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.Partnerships().GetActiveForUser(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.Forbidden("you need an active partnership to send messages")
			}
			return err
		}
		if p.ID != in.PartnershipID {
			return apperror.Forbidden("you can only message within your active partnership")
		}
		return tx.Messages().Create(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	s.logger.Info("message sent", slog.String("messageID", msg.ID), slog.String("partnershipID", msg.PartnershipID))
	return msg, nil
}

// ListConversation returns the messages of a partnership, oldest first.
// Former members can still read a dissolved partnership's conversation.
func (s *MessageService) ListConversation(ctx context.Context, actor *model.User, partnershipID string, opts repository.ListOptions) ([]model.DirectMessage, error) {
	var msgs []model.DirectMessage
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := access.AuthorizeHistory(ctx, tx, actor, partnershipID); err != nil {
			return err
		}
		var err error
		msgs, err = tx.Messages().ListByPartnership(ctx, partnershipID, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead stamps a message as read by its recipient. Marking an already
// read message keeps the first timestamp.
func (s *MessageService) MarkRead(ctx context.Context, actor *model.User, id string) (*model.DirectMessage, error) {
	var msg *model.DirectMessage
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Message(id)); err != nil {
			return err
		}
		var err error
		msg, err = tx.Messages().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if msg.SenderID == actor.ID {
			return apperror.Forbidden("only the recipient can mark a message as read")
		}
		if msg.ReadAt != nil {
			return nil
		}
		now := s.clock.Now().UTC()
		msg.ReadAt = &now
		return tx.Messages().Update(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("marking message %s read: %w", id, err)
	}
	return msg, nil
}

// Delete removes one of the actor's own messages along with its reactions.
func (s *MessageService) Delete(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Message(id)); err != nil {
			return err
		}
		msg, err := tx.Messages().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if msg.SenderID != actor.ID {
			return apperror.Forbidden("only the sender can delete this message")
		}
		if err := tx.Reactions().DeleteByTarget(ctx, model.ReactionOnMessage, id); err != nil {
			return err
		}
		return tx.Messages().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	return nil
}
