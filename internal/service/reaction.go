package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// ReactionService manages emoji reactions on checkins, reflections and
// direct messages.
type ReactionService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewReactionService(store repository.Store, logger *slog.Logger) *ReactionService {
	return &ReactionService{store: store, logger: logger}
}

type AddReactionInput struct {
	TargetKind model.ReactionTargetKind `json:"targetKind" validate:"required,oneof=checkin reflection message"`
	TargetID   string                   `json:"targetId"   validate:"required"`
	Emoji      string                   `json:"emoji"      validate:"required,max=32"`
}

func (s *ReactionService) Add(ctx context.Context, actor *model.User, in AddReactionInput) (*model.Reaction, error) {
	in.Emoji = strings.TrimSpace(in.Emoji)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	target, err := ownership.ReactionTarget(in.TargetKind, in.TargetID)
	if err != nil {
		return nil, err
	}

	reaction := &model.Reaction{
		UserID:     actor.ID,
		Emoji:      in.Emoji,
		TargetKind: in.TargetKind,
		TargetID:   in.TargetID,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, target); err != nil {
			return err
		}
		return tx.Reactions().Create(ctx, reaction)
	})
	if err != nil {
		return nil, fmt.Errorf("adding reaction: %w", err)
	}
	return reaction, nil
}

func (s *ReactionService) ListForTarget(ctx context.Context, actor *model.User, kind model.ReactionTargetKind, targetID string) ([]model.Reaction, error) {
	target, err := ownership.ReactionTarget(kind, targetID)
	if err != nil {
		return nil, err
	}

	var reactions []model.Reaction
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, target); err != nil {
			return err
		}
		var err error
		reactions, err = tx.Reactions().ListByTarget(ctx, kind, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

// Remove deletes one of the actor's own reactions.
func (s *ReactionService) Remove(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		reaction, err := tx.Reactions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if reaction.UserID != actor.ID {
			return apperror.Forbidden("only the author can remove this reaction")
		}
		return tx.Reactions().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("removing reaction %s: %w", id, err)
	}
	return nil
}
