// Package access decides whether an acting user may touch a resource.
//
// The rules are small:
//   - a user may always access what they own (CanAccess is reflexive)
//   - a user may read what their ACTIVE partner owns
//   - partnership-scoped resources are open to members of that partnership
//     while it is ACTIVE
//   - a dissolved partnership's history stays readable by its former members
//   - mutations of user-owned resources are reserved for the owner
//
// Callers resolve the owner with package ownership first, so a missing
// resource is reported as not found before access is ever evaluated.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// CanAccess reports whether actor may read resources owned by ownerUserID.
func CanAccess(ctx context.Context, s repository.Store, actor *model.User, ownerUserID string) (bool, error) {
	if actor == nil || ownerUserID == "" {
		return false, nil
	}
	if actor.ID == ownerUserID {
		return true, nil
	}

	p, err := s.Partnerships().GetActiveForUser(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("access: loading active partnership of %s: %w", actor.ID, err)
	}
	return p.OtherMember(actor.ID) == ownerUserID, nil
}

// Authorize is CanAccess that fails with apperror.ErrForbidden on deny.
func Authorize(ctx context.Context, s repository.Store, actor *model.User, ownerUserID string) error {
	ok, err := CanAccess(ctx, s, actor, ownerUserID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you do not have access to this resource")
	}
	return nil
}

// AuthorizeOwner applies the read rule to a resolved owner. For a
// partnership-scoped owner the actor must be a member and the partnership
// must still be ACTIVE.
func AuthorizeOwner(ctx context.Context, s repository.Store, actor *model.User, owner ownership.Owner) error {
	if !owner.IsPartnership() {
		return Authorize(ctx, s, actor, owner.UserID)
	}
	if actor == nil {
		return apperror.Forbidden("you do not have access to this resource")
	}

	p, err := s.Partnerships().GetByID(ctx, owner.PartnershipID)
	if err != nil {
		return err
	}
	if !p.HasMember(actor.ID) {
		return apperror.Forbidden("you are not a member of this partnership")
	}
	if p.Status != model.PartnershipActive {
		return apperror.Forbidden("this partnership is no longer active")
	}
	return nil
}

// AuthorizeHistory permits members of partnershipID to read its history
// while it is ACTIVE or after it was DISSOLVED. Writes still go through
// AuthorizeOwner.
func AuthorizeHistory(ctx context.Context, s repository.Store, actor *model.User, partnershipID string) error {
	p, err := s.Partnerships().GetByID(ctx, partnershipID)
	if err != nil {
		return err
	}
	if actor == nil || !p.HasMember(actor.ID) {
		return apperror.Forbidden("you are not a member of this partnership")
	}
	if p.Status != model.PartnershipActive && p.Status != model.PartnershipDissolved {
		return apperror.Forbidden("this partnership has no conversation")
	}
	return nil
}

// RequireOwner permits only the direct owner of a user-owned resource.
func RequireOwner(actor *model.User, owner ownership.Owner) error {
	if actor == nil || owner.IsPartnership() || owner.UserID != actor.ID {
		return apperror.Forbidden("only the owner can modify this resource")
	}
	return nil
}
