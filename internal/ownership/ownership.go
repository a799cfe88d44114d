// Package ownership resolves which user (or partnership) ultimately owns a
// resource by walking its parent chain:
//
//	Goal ──▶ user
//	System ──▶ Goal          Reflection ──▶ Goal
//	Checkin ──▶ System       Comment ──▶ Goal | Checkin
//	DirectMessage ──▶ Partnership (both members)
//	Reaction ──▶ Checkin | Reflection | DirectMessage
//
// Every hop loads the parent from the store, so a missing ancestor surfaces
// as apperror.ErrNotFound before any permission check runs.
package ownership

import (
	"context"
	"fmt"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
)

type Kind string

const (
	KindGoal       Kind = "goal"
	KindSystem     Kind = "system"
	KindCheckin    Kind = "checkin"
	KindReflection Kind = "reflection"
	KindComment    Kind = "comment"
	KindMessage    Kind = "message"
	KindReaction   Kind = "reaction"
)

// Ref identifies one resource of any kind.
type Ref struct {
	Kind Kind
	ID   string
}

func Goal(id string) Ref       { return Ref{Kind: KindGoal, ID: id} }
func System(id string) Ref     { return Ref{Kind: KindSystem, ID: id} }
func Checkin(id string) Ref    { return Ref{Kind: KindCheckin, ID: id} }
func Reflection(id string) Ref { return Ref{Kind: KindReflection, ID: id} }
func Comment(id string) Ref    { return Ref{Kind: KindComment, ID: id} }
func Message(id string) Ref    { return Ref{Kind: KindMessage, ID: id} }
func Reaction(id string) Ref   { return Ref{Kind: KindReaction, ID: id} }

// CommentTarget builds the ref a new comment is attached to. Exactly one of
// goalID and checkinID must be set.
func CommentTarget(goalID, checkinID string) (Ref, error) {
	switch {
	case goalID != "" && checkinID != "":
		return Ref{}, apperror.ValidationFailed("goalId", "a comment must target a goal or a check-in, not both")
	case goalID != "":
		return Goal(goalID), nil
	case checkinID != "":
		return Checkin(checkinID), nil
	default:
		return Ref{}, apperror.ValidationFailed("goalId", "a comment must target a goal or a check-in")
	}
}

// ReactionTarget maps a reaction's target kind onto a Ref.
func ReactionTarget(kind model.ReactionTargetKind, id string) (Ref, error) {
	if id == "" {
		return Ref{}, apperror.ValidationFailed("targetId", "reaction target id is required")
	}
	switch kind {
	case model.ReactionOnCheckin:
		return Checkin(id), nil
	case model.ReactionOnReflection:
		return Reflection(id), nil
	case model.ReactionOnMessage:
		return Message(id), nil
	default:
		return Ref{}, apperror.ValidationFailed("targetKind", fmt.Sprintf("unsupported reaction target %q", kind))
	}
}

// Owner is the result of a resolution. User-owned resources set UserID.
// Partnership-scoped resources (direct messages and reactions on them) set
// PartnershipID and list both members, who co-own them.
type Owner struct {
	UserID        string
	PartnershipID string
	Members       []string
}

func (o Owner) IsPartnership() bool {
	return o.PartnershipID != ""
}

// Resolve returns the ultimate owner of ref, reading through s.
func Resolve(ctx context.Context, s repository.Store, ref Ref) (Owner, error) {
	switch ref.Kind {
	case KindGoal:
		g, err := s.Goals().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		return Owner{UserID: g.UserID}, nil

	case KindSystem:
		sys, err := s.Systems().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		return Resolve(ctx, s, Goal(sys.GoalID))

	case KindCheckin:
		c, err := s.Checkins().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		return Resolve(ctx, s, System(c.SystemID))

	case KindReflection:
		r, err := s.Reflections().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		return Resolve(ctx, s, Goal(r.GoalID))

	case KindComment:
		c, err := s.Comments().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		target, err := CommentTarget(deref(c.GoalID), deref(c.CheckinID))
		if err != nil {
			return Owner{}, err
		}
		return Resolve(ctx, s, target)

	case KindMessage:
		m, err := s.Messages().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		p, err := s.Partnerships().GetByID(ctx, m.PartnershipID)
		if err != nil {
			return Owner{}, err
		}
		return Owner{PartnershipID: p.ID, Members: p.Members()}, nil

	case KindReaction:
		r, err := s.Reactions().GetByID(ctx, ref.ID)
		if err != nil {
			return Owner{}, err
		}
		target, err := ReactionTarget(r.TargetKind, r.TargetID)
		if err != nil {
			return Owner{}, err
		}
		return Resolve(ctx, s, target)

	default:
		return Owner{}, fmt.Errorf("ownership: unknown resource kind %q", ref.Kind)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
