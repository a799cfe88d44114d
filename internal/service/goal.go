package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/duotrak/internal/access"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// GoalService manages goals. The owner and the owner's active partner may
// read a goal; only the owner may change it.
type GoalService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewGoalService(store repository.Store, logger *slog.Logger) *GoalService {
	return &GoalService{store: store, logger: logger}
}

type CreateGoalInput struct {
	Title       string             `json:"title"       validate:"required,min=3,max=100"`
	Description string             `json:"description" validate:"max=2000"`
	Category    string             `json:"category"    validate:"max=50"`
	Priority    model.GoalPriority `json:"priority"    validate:"omitempty,oneof=high medium low"`
	StartDate   *string            `json:"startDate"   validate:"omitempty,datetime=2006-01-02"`
	TargetDate  *string            `json:"targetDate"  validate:"omitempty,datetime=2006-01-02"`
}

func (s *GoalService) Create(ctx context.Context, actor *model.User, in CreateGoalInput) (*model.Goal, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	goal := &model.Goal{
		UserID:      actor.ID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		TargetDate:  in.TargetDate,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Goals().Create(ctx, goal)
	})
	if err != nil {
		s.logger.Error("failed to create goal", slog.String("userID", actor.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating goal: %w", err)
	}

	s.logger.Info("goal created", slog.String("goalID", goal.ID), slog.String("userID", actor.ID))
	return goal, nil
}

func (s *GoalService) Get(ctx context.Context, actor *model.User, id string) (*model.Goal, error) {
	var goal *model.Goal
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Goal(id)); err != nil {
			return err
		}
		var err error
		goal, err = tx.Goals().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// ListForUser lists userID's goals. actor must be that user or their partner.
func (s *GoalService) ListForUser(ctx context.Context, actor *model.User, userID string, opts repository.ListOptions) ([]model.Goal, error) {
	var goals []model.Goal
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return err
		}
		if err := access.Authorize(ctx, tx, actor, userID); err != nil {
			return err
		}
		var err error
		goals, err = tx.Goals().ListByUser(ctx, userID, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *GoalService) Update(ctx context.Context, actor *model.User, id string, patch model.GoalPatch) (*model.Goal, error) {
	patch.Title = trimPtr(patch.Title)
	patch.Description = trimPtr(patch.Description)
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var goal *model.Goal
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Goal(id)); err != nil {
			return err
		}
		var err error
		goal, err = tx.Goals().GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(goal)
		return tx.Goals().Update(ctx, goal)
	})
	if err != nil {
		return nil, fmt.Errorf("updating goal %s: %w", id, err)
	}
	return goal, nil
}

// Delete removes a goal and, by cascade, everything under it.
func (s *GoalService) Delete(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Goal(id)); err != nil {
			return err
		}
		return tx.Goals().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting goal %s: %w", id, err)
	}

	s.logger.Info("goal deleted", slog.String("goalID", id))
	return nil
}
