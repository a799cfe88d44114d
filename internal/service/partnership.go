package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/mailer"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
	"github.com/sakif/duotrak/internal/security"
)

// DefaultInviteTTL is how long an invite token stays valid.
const DefaultInviteTTL = 7 * 24 * time.Hour

// PartnershipConfig holds the tunables of the partnership lifecycle.
type PartnershipConfig struct {
	InviteTTL   time.Duration
	FrontendURL string // base of the accept link in invite emails
}

// PartnershipService runs the partnership state machine:
//
//	PENDING_INVITE ──accept──▶ ACTIVE ──terminate──▶ DISSOLVED
//	      ├──decline / cancel─────────────────────────▲
//	      └──token expired──▶ EXPIRED_INVITE
//
// INVARIANT: a user is in at most one ACTIVE partnership. It is checked
// before acting and enforced again by the store's compare-and-set on
// users.current_partnership_id, inside the same transaction.
type PartnershipService struct {
	store  repository.Store
	tokens security.TokenGenerator
	mail   mailer.Mailer
	clock  clock.Clock
	logger *slog.Logger
	cfg    PartnershipConfig
}

func NewPartnershipService(
	store repository.Store,
	tokens security.TokenGenerator,
	mail mailer.Mailer,
	clk clock.Clock,
	logger *slog.Logger,
	cfg PartnershipConfig,
) *PartnershipService {
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = DefaultInviteTTL
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &PartnershipService{
		store:  store,
		tokens: tokens,
		mail:   mail,
		clock:  clk,
		logger: logger,
		cfg:    cfg,
	}
}

func (s *PartnershipService) now() time.Time {
	return s.clock.Now().UTC()
}

// =========================================================================
// INVITES
// =========================================================================

// SendInvite creates a PENDING_INVITE partnership from actor to inviteEmail
// and emails the invitee an accept link. The invitee does not need an
// account yet. Email delivery happens after commit and never fails the call.
func (s *PartnershipService) SendInvite(ctx context.Context, actor *model.User, inviteEmail string) (*model.Partnership, error) {
	email := model.NormalizeEmail(inviteEmail)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}

	var (
		p         *model.Partnership
		requester *model.User
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		requester, err = tx.Users().GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if requester.Email == email {
			return apperror.SelfPartnership()
		}
		if err := ensureUnpartnered(ctx, tx, requester.ID, apperror.AlreadyPartnered); err != nil {
			return err
		}

		invitee, err := tx.Users().GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := ensureUnpartnered(ctx, tx, invitee.ID, apperror.PartnerAlreadyPartnered); err != nil {
				return err
			}
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}

		if err := s.expireStaleInvite(ctx, tx, requester.ID); err != nil {
			return err
		}

		token, err := s.tokens.NewToken()
		if err != nil {
			return fmt.Errorf("generating invite token: %w", err)
		}
		expiresAt := s.now().Add(s.cfg.InviteTTL)
		p = &model.Partnership{
			User1ID:              requester.ID,
			Status:               model.PartnershipPendingInvite,
			InviteToken:          &token,
			InviteTokenExpiresAt: &expiresAt,
			InviteEmail:          &email,
		}
		return tx.Partnerships().Create(ctx, p)
	})
	if err != nil {
		return nil, s.fail("sending invite", err)
	}

	s.logger.Info("partnership invite created",
		slog.String("partnershipID", p.ID),
		slog.String("requesterID", p.User1ID),
	)
	s.sendInviteEmail(ctx, p, requester)
	return p, nil
}

// expireStaleInvite moves the requester's outgoing invite to EXPIRED_INVITE
// if its token has lapsed. A still-valid outgoing invite is a conflict.
func (s *PartnershipService) expireStaleInvite(ctx context.Context, tx repository.Store, requesterID string) error {
	pending, err := tx.Partnerships().GetPendingFromUser(ctx, requesterID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}
	if pending.InviteTokenExpiresAt != nil && s.now().Before(*pending.InviteTokenExpiresAt) {
		return apperror.PendingInviteExists()
	}

	if err := transition(pending, model.PartnershipExpiredInvite); err != nil {
		return err
	}
	clearInvite(pending)
	if err := tx.Partnerships().Update(ctx, pending); err != nil {
		return err
	}
	s.logger.Info("partnership invite expired", slog.String("partnershipID", pending.ID))
	return nil
}

func (s *PartnershipService) sendInviteEmail(ctx context.Context, p *model.Partnership, requester *model.User) {
	requesterName := requester.Name
	if requesterName == "" {
		requesterName = requester.Username
	}
	inv := mailer.Invite{
		To:            *p.InviteEmail,
		RequesterName: requesterName,
		AcceptURL:     s.cfg.FrontendURL + "/partner-invite/accept?token=" + url.QueryEscape(*p.InviteToken),
		ExpiresAt:     *p.InviteTokenExpiresAt,
	}

	// The partnership is committed; a client disconnect must not abort the send.
	deliveryID, err := s.mail.SendPartnershipInvite(context.WithoutCancel(ctx), inv)
	if err != nil {
		s.logger.Warn("failed to send partnership invite email",
			slog.String("partnershipID", p.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("partnership invite email sent",
		slog.String("partnershipID", p.ID),
		slog.String("deliveryID", deliveryID),
	)
}

// RespondToInvite lets the invitee accept or decline a pending invite
// addressed to their email.
func (s *PartnershipService) RespondToInvite(ctx context.Context, partnershipID string, actor *model.User, decision model.InviteDecision) (*model.Partnership, error) {
	if !decision.Valid() {
		return nil, apperror.ValidationFailed("decision", "decision must be accept or decline")
	}

	var p *model.Partnership
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		p, err = tx.Partnerships().GetByID(ctx, partnershipID)
		if err != nil {
			return err
		}
		responder, err := tx.Users().GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if !p.IsInvitee(responder.Email) {
			return apperror.Forbidden("this invite was not sent to you")
		}
		if p.Status != model.PartnershipPendingInvite {
			return apperror.InvalidState(fmt.Sprintf("invite is %s, not pending", p.Status))
		}

		if decision == model.DecisionDecline {
			return s.dissolve(ctx, tx, p)
		}
		return s.activate(ctx, tx, p, responder.ID)
	})
	if err != nil {
		return nil, s.fail("responding to invite", err)
	}

	s.logger.Info("partnership invite answered",
		slog.String("partnershipID", p.ID),
		slog.String("decision", string(decision)),
	)
	return p, nil
}

// AcceptByToken activates the partnership carrying token. Anyone holding an
// unexpired token may accept, except the requester.
func (s *PartnershipService) AcceptByToken(ctx context.Context, token string, actor *model.User) (*model.Partnership, error) {
	if token == "" {
		return nil, apperror.InvalidToken()
	}

	var p *model.Partnership
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		p, err = tx.Partnerships().GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if p.Status != model.PartnershipPendingInvite {
			return apperror.InvalidState(fmt.Sprintf("invite is %s, not pending", p.Status))
		}
		if p.InviteTokenExpiresAt == nil || !s.now().Before(*p.InviteTokenExpiresAt) {
			return apperror.ExpiredToken()
		}
		if p.User1ID == actor.ID {
			return apperror.SelfPartnership()
		}
		return s.activate(ctx, tx, p, actor.ID)
	})
	if err != nil {
		return nil, s.fail("accepting invite", err)
	}

	s.logger.Info("partnership invite accepted by token", slog.String("partnershipID", p.ID))
	return p, nil
}

// CancelInvite lets the requester withdraw a pending invite.
func (s *PartnershipService) CancelInvite(ctx context.Context, partnershipID string, actor *model.User) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.Partnerships().GetByID(ctx, partnershipID)
		if err != nil {
			return err
		}
		if p.User1ID != actor.ID {
			return apperror.Forbidden("only the requester can cancel an invite")
		}
		if p.Status != model.PartnershipPendingInvite {
			return apperror.InvalidState(fmt.Sprintf("invite is %s, not pending", p.Status))
		}
		return s.dissolve(ctx, tx, p)
	})
	if err != nil {
		return s.fail("cancelling invite", err)
	}

	s.logger.Info("partnership invite cancelled", slog.String("partnershipID", partnershipID))
	return nil
}

// =========================================================================
// ACTIVE PARTNERSHIPS
// =========================================================================

// Terminate dissolves an ACTIVE partnership. Either member may do it. The
// record is kept so both members can still read their message history;
// both users are free to partner again.
func (s *PartnershipService) Terminate(ctx context.Context, partnershipID string, actor *model.User) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.Partnerships().GetByID(ctx, partnershipID)
		if err != nil {
			return err
		}
		if !p.HasMember(actor.ID) {
			return apperror.Forbidden("you are not a member of this partnership")
		}
		if p.Status != model.PartnershipActive {
			return apperror.InvalidState(fmt.Sprintf("partnership is %s, not active", p.Status))
		}
		if err := s.dissolve(ctx, tx, p); err != nil {
			return err
		}
		for _, member := range p.Members() {
			if err := tx.Users().ClearPartnership(ctx, member, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.fail("terminating partnership", err)
	}

	s.logger.Info("partnership dissolved",
		slog.String("partnershipID", partnershipID),
		slog.String("byUserID", actor.ID),
	)
	return nil
}

// activate moves p to ACTIVE with responderID as the second member and
// links both users to it.
func (s *PartnershipService) activate(ctx context.Context, tx repository.Store, p *model.Partnership, responderID string) error {
	if err := transition(p, model.PartnershipActive); err != nil {
		return err
	}
	if err := ensureUnpartnered(ctx, tx, responderID, apperror.AlreadyPartnered); err != nil {
		return err
	}
	if err := ensureUnpartnered(ctx, tx, p.User1ID, apperror.PartnerAlreadyPartnered); err != nil {
		return err
	}

	now := s.now()
	p.User2ID = &responderID
	p.ActivatedAt = &now
	clearInvite(p)
	if err := tx.Partnerships().Update(ctx, p); err != nil {
		return err
	}

	// Compare-and-set both pointers. Losing either race aborts the whole
	// transaction, so the partnership row above is rolled back too.
	if ok, err := tx.Users().SetPartnershipIfUnset(ctx, responderID, p.ID); err != nil {
		return err
	} else if !ok {
		return apperror.AlreadyPartnered()
	}
	if ok, err := tx.Users().SetPartnershipIfUnset(ctx, p.User1ID, p.ID); err != nil {
		return err
	} else if !ok {
		return apperror.PartnerAlreadyPartnered()
	}

	// The responder may have an outgoing invite of their own; it can no
	// longer be honoured.
	return s.closeOutgoingInvite(ctx, tx, responderID)
}

func (s *PartnershipService) closeOutgoingInvite(ctx context.Context, tx repository.Store, userID string) error {
	pending, err := tx.Partnerships().GetPendingFromUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.dissolve(ctx, tx, pending)
}

// dissolve moves p to DISSOLVED. It does not touch the users' pointers.
func (s *PartnershipService) dissolve(ctx context.Context, tx repository.Store, p *model.Partnership) error {
	if err := transition(p, model.PartnershipDissolved); err != nil {
		return err
	}
	now := s.now()
	p.DissolvedAt = &now
	clearInvite(p)
	return tx.Partnerships().Update(ctx, p)
}

// =========================================================================
// QUERIES
// =========================================================================

// GetActivePartnership returns actor's ACTIVE partnership, or an error
// matching apperror.ErrNotFound when there is none.
func (s *PartnershipService) GetActivePartnership(ctx context.Context, actor *model.User) (*model.Partnership, error) {
	var p *model.Partnership
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		p, err = tx.Partnerships().GetActiveForUser(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPendingInvitesFor lists invites addressed to actor's email, newest first.
func (s *PartnershipService) GetPendingInvitesFor(ctx context.Context, actor *model.User) ([]model.Partnership, error) {
	var invites []model.Partnership
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		invites, err = tx.Partnerships().ListPendingForEmail(ctx, actor.Email)
		return err
	})
	if err != nil {
		return nil, s.fail("listing pending invites", err)
	}
	return invites, nil
}

// GetSentInvites lists the pending invites actor has sent.
func (s *PartnershipService) GetSentInvites(ctx context.Context, actor *model.User) ([]model.Partnership, error) {
	var invites []model.Partnership
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		invites, err = tx.Partnerships().ListPendingFromUser(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, s.fail("listing sent invites", err)
	}
	return invites, nil
}

// GetPartnership returns a partnership to one of its members or its invitee.
func (s *PartnershipService) GetPartnership(ctx context.Context, partnershipID string, actor *model.User) (*model.Partnership, error) {
	var p *model.Partnership
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		p, err = tx.Partnerships().GetByID(ctx, partnershipID)
		if err != nil {
			return err
		}
		if !p.HasMember(actor.ID) && !p.IsInvitee(actor.Email) {
			return apperror.Forbidden("you are not part of this partnership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// fail logs unexpected errors and adds operation context.
func (s *PartnershipService) fail(op string, err error) error {
	if !isExpected(err) {
		s.logger.Error("partnership operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// =========================================================================
// HELPERS
// =========================================================================

// ensureUnpartnered fails with kind() if userID has an ACTIVE partnership.
func ensureUnpartnered(ctx context.Context, tx repository.Store, userID string, kind func() *apperror.AppError) error {
	_, err := tx.Partnerships().GetActiveForUser(ctx, userID)
	switch {
	case err == nil:
		return kind()
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return err
	}
}

// transition applies a lifecycle step, rejecting illegal ones.
func transition(p *model.Partnership, next model.PartnershipStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return apperror.InvalidState(fmt.Sprintf("partnership cannot move from %s to %s", p.Status, next))
	}
	p.Status = next
	return nil
}

// clearInvite drops the token once the partnership has left PENDING_INVITE.
func clearInvite(p *model.Partnership) {
	p.InviteToken = nil
	p.InviteTokenExpiresAt = nil
}
