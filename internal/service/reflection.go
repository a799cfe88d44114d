package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// ReflectionService manages dated journal entries on a goal.
type ReflectionService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewReflectionService(store repository.Store, logger *slog.Logger) *ReflectionService {
	return &ReflectionService{store: store, logger: logger}
}

type CreateReflectionInput struct {
	ReflectionDate string `json:"reflectionDate" validate:"required,datetime=2006-01-02"`
	Content        string `json:"content"        validate:"required,max=5000"`
	PromptText     string `json:"promptText"     validate:"max=1000"`
}

func (s *ReflectionService) Create(ctx context.Context, actor *model.User, goalID string, in CreateReflectionInput) (*model.Reflection, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	reflection := &model.Reflection{
		GoalID:         goalID,
		ReflectionDate: in.ReflectionDate,
		Content:        in.Content,
		PromptText:     in.PromptText,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Goal(goalID)); err != nil {
			return err
		}
		return tx.Reflections().Create(ctx, reflection)
	})
	if err != nil {
		return nil, fmt.Errorf("creating reflection on goal %s: %w", goalID, err)
	}

	s.logger.Info("reflection created", slog.String("reflectionID", reflection.ID), slog.String("goalID", goalID))
	return reflection, nil
}

func (s *ReflectionService) Get(ctx context.Context, actor *model.User, id string) (*model.Reflection, error) {
	var reflection *model.Reflection
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Reflection(id)); err != nil {
			return err
		}
		var err error
		reflection, err = tx.Reflections().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reflection, nil
}

func (s *ReflectionService) ListForGoal(ctx context.Context, actor *model.User, goalID string) ([]model.Reflection, error) {
	var reflections []model.Reflection
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Goal(goalID)); err != nil {
			return err
		}
		var err error
		reflections, err = tx.Reflections().ListByGoal(ctx, goalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reflections, nil
}

func (s *ReflectionService) Update(ctx context.Context, actor *model.User, id string, patch model.ReflectionPatch) (*model.Reflection, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var reflection *model.Reflection
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Reflection(id)); err != nil {
			return err
		}
		var err error
		reflection, err = tx.Reflections().GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(reflection)
		return tx.Reflections().Update(ctx, reflection)
	})
	if err != nil {
		return nil, fmt.Errorf("updating reflection %s: %w", id, err)
	}
	return reflection, nil
}

func (s *ReflectionService) Delete(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Reflection(id)); err != nil {
			return err
		}
		if err := tx.Reactions().DeleteByTarget(ctx, model.ReactionOnReflection, id); err != nil {
			return err
		}
		return tx.Reflections().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting reflection %s: %w", id, err)
	}
	return nil
}
