package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/sakif/duotrak/internal/access"
	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// CheckinService records executions of a system and runs partner
// verification.
type CheckinService struct {
	store  repository.Store
	clock  clock.Clock
	logger *slog.Logger
}

func NewCheckinService(store repository.Store, clk clock.Clock, logger *slog.Logger) *CheckinService {
	return &CheckinService{store: store, clock: clk, logger: logger}
}

type CreateCheckinInput struct {
	Status      model.CheckinStatus `json:"status"      validate:"omitempty,oneof=completed skipped"`
	MetricValue *float64            `json:"metricValue" validate:"omitempty,gte=0"`
	Notes       string              `json:"notes"       validate:"max=2000"`
	CheckinAt   *time.Time          `json:"checkinAt"`
}

// Create logs a checkin on a system the actor owns. A completed checkin on
// a system that requires verification waits for the partner.
func (s *CheckinService) Create(ctx context.Context, actor *model.User, systemID string, in CreateCheckinInput) (*model.Checkin, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var checkin *model.Checkin
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.System(systemID)); err != nil {
			return err
		}
		system, err := tx.Systems().GetByID(ctx, systemID)
		if err != nil {
			return err
		}

		status := in.Status
		if status == "" {
			status = model.CheckinCompleted
		}
		if status == model.CheckinCompleted && system.VerificationRequired {
			status = model.CheckinPendingVerification
		}

		checkin = &model.Checkin{
			SystemID:    systemID,
			UserID:      actor.ID,
			Status:      status,
			MetricValue: in.MetricValue,
			Notes:       strings.TrimSpace(in.Notes),
		}
		if in.CheckinAt != nil {
			checkin.CheckinAt = in.CheckinAt.UTC()
		}
		return tx.Checkins().Create(ctx, checkin)
	})
	if err != nil {
		return nil, fmt.Errorf("creating checkin on system %s: %w", systemID, err)
	}

	s.logger.Info("checkin created",
		slog.String("checkinID", checkin.ID),
		slog.String("status", string(checkin.Status)),
	)
	return checkin, nil
}

func (s *CheckinService) Get(ctx context.Context, actor *model.User, id string) (*model.Checkin, error) {
	var checkin *model.Checkin
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Checkin(id)); err != nil {
			return err
		}
		var err error
		checkin, err = tx.Checkins().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return checkin, nil
}

func (s *CheckinService) ListForSystem(ctx context.Context, actor *model.User, systemID string, opts repository.ListOptions) ([]model.Checkin, error) {
	var checkins []model.Checkin
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.System(systemID)); err != nil {
			return err
		}
		var err error
		checkins, err = tx.Checkins().ListBySystem(ctx, systemID, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return checkins, nil
}

func (s *CheckinService) Update(ctx context.Context, actor *model.User, id string, patch model.CheckinPatch) (*model.Checkin, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var checkin *model.Checkin
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Checkin(id)); err != nil {
			return err
		}
		var err error
		checkin, err = tx.Checkins().GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(checkin)
		return tx.Checkins().Update(ctx, checkin)
	})
	if err != nil {
		return nil, fmt.Errorf("updating checkin %s: %w", id, err)
	}
	return checkin, nil
}

func (s *CheckinService) Delete(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeWrite(ctx, tx, actor, ownership.Checkin(id)); err != nil {
			return err
		}
		if err := tx.Reactions().DeleteByTarget(ctx, model.ReactionOnCheckin, id); err != nil {
			return err
		}
		return tx.Checkins().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting checkin %s: %w", id, err)
	}
	return nil
}

type VerifyCheckinInput struct {
	Action model.VerifyAction `json:"action" validate:"required,oneof=approve query"`
	Query  string             `json:"query"  validate:"required_if=Action query,max=1000"`
}

// Verify lets the owner's active partner approve a checkin or question it.
// The owner can never verify their own checkin.
func (s *CheckinService) Verify(ctx context.Context, actor *model.User, id string, in VerifyCheckinInput) (*model.Checkin, error) {
	in.Query = strings.TrimSpace(in.Query)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var checkin *model.Checkin
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		owner, err := ownership.Resolve(ctx, tx, ownership.Checkin(id))
		if err != nil {
			return err
		}
		if owner.UserID == actor.ID {
			return apperror.Forbidden("you cannot verify your own check-in")
		}
		if err := access.Authorize(ctx, tx, actor, owner.UserID); err != nil {
			return err
		}

		checkin, err = tx.Checkins().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !checkin.Status.Verifiable() {
			return apperror.InvalidState(fmt.Sprintf("check-in is %s and cannot be verified", checkin.Status))
		}

		now := s.clock.Now().UTC()
		checkin.VerifiedByID = &actor.ID
		switch in.Action {
		case model.VerifyApprove:
			checkin.Status = model.CheckinVerifiedCompleted
			checkin.VerifiedAt = &now
			checkin.VerifierQuery = nil
		case model.VerifyQuery:
			checkin.Status = model.CheckinQueriedByPartner
			checkin.VerifierQuery = &in.Query
		}
		return tx.Checkins().Update(ctx, checkin)
	})
	if err != nil {
		return nil, fmt.Errorf("verifying checkin %s: %w", id, err)
	}

	s.logger.Info("checkin verified",
		slog.String("checkinID", id),
		slog.String("action", string(in.Action)),
		slog.String("verifierID", actor.ID),
	)
	return checkin, nil
}
