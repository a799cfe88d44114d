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

// SystemService manages the recurring habits under a goal.
type SystemService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewSystemService(store repository.Store, logger *slog.Logger) *SystemService {
	return &SystemService{store: store, logger: logger}
}

type CreateSystemInput struct {
	Title                string           `json:"title"                validate:"required,min=3,max=100"`
	Description          string           `json:"description"          validate:"max=2000"`
	Frequency            model.Frequency  `json:"frequency"            validate:"omitempty,oneof=daily weekly"`
	MetricType           model.MetricType `json:"metricType"           validate:"omitempty,oneof=binary counter duration pages"`
	TargetValue          *float64         `json:"targetValue"          validate:"omitempty,gte=0"`
	TargetUnit           string           `json:"targetUnit"           validate:"max=50"`
	VerificationRequired bool             `json:"verificationRequired"`
}

func (s *SystemService) Create(ctx context.Context, actor *model.User, goalID string, in CreateSystemInput) (*model.System, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	system := &model.System{
		GoalID:               goalID,
		Title:                in.Title,
		Description:          strings.TrimSpace(in.Description),
		Frequency:            in.Frequency,
		MetricType:           in.MetricType,
		TargetValue:          in.TargetValue,
		TargetUnit:           in.TargetUnit,
		VerificationRequired: in.VerificationRequired,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Goal(goalID)); err != nil {
			return err
		}
		return tx.Systems().Create(ctx, system)
	})
	if err != nil {
		return nil, fmt.Errorf("creating system under goal %s: %w", goalID, err)
	}

	s.logger.Info("system created", slog.String("systemID", system.ID), slog.String("goalID", goalID))
	return system, nil
}

func (s *SystemService) Get(ctx context.Context, actor *model.User, id string) (*model.System, error) {
	var system *model.System
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.System(id)); err != nil {
			return err
		}
		var err error
		system, err = tx.Systems().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return system, nil
}

func (s *SystemService) ListForGoal(ctx context.Context, actor *model.User, goalID string) ([]model.System, error) {
	var systems []model.System
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Goal(goalID)); err != nil {
			return err
		}
		var err error
		systems, err = tx.Systems().ListByGoal(ctx, goalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return systems, nil
}

func (s *SystemService) Update(ctx context.Context, actor *model.User, id string, patch model.SystemPatch) (*model.System, error) {
	patch.Title = trimPtr(patch.Title)
	patch.Description = trimPtr(patch.Description)
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var system *model.System
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.System(id)); err != nil {
			return err
		}
		var err error
		system, err = tx.Systems().GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(system)
		return tx.Systems().Update(ctx, system)
	})
	if err != nil {
		return nil, fmt.Errorf("updating system %s: %w", id, err)
	}
	return system, nil
}

func (s *SystemService) Delete(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.System(id)); err != nil {
			return err
		}
		return tx.Systems().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting system %s: %w", id, err)
	}

	s.logger.Info("system deleted", slog.String("systemID", id))
	return nil
}
