// Package repository defines the storage interfaces the services depend on.
//
// Services never talk to SQL directly. They ask a Store for the repository
// they need and run every operation inside Store.WithTx, so that a business
// rule checked at the start of an operation still holds when it commits.
package repository

import (
	"context"

	"github.com/sakif/duotrak/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Store gives access to every repository and to transactions.
//
// WithTx runs fn with a Store bound to a single transaction. If fn returns
// an error (or panics) the transaction is rolled back. Calling WithTx on a
// Store that is already transactional runs fn in the same transaction.
type Store interface {
	Users() UserRepository
	Partnerships() PartnershipRepository
	Goals() GoalRepository
	Systems() SystemRepository
	Checkins() CheckinRepository
	Reflections() ReflectionRepository
	Comments() CommentRepository
	Reactions() ReactionRepository
	Messages() MessageRepository

	WithTx(ctx context.Context, fn func(Store) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetBySubject(ctx context.Context, subject string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error

	// SetPartnershipIfUnset points the user at partnershipID only when the
	// user has no current partnership. It reports whether the pointer was
	// set; false means another partnership won the race.
	SetPartnershipIfUnset(ctx context.Context, userID, partnershipID string) (bool, error)

	// ClearPartnership removes the pointer if it still names partnershipID.
	ClearPartnership(ctx context.Context, userID, partnershipID string) error
}

type PartnershipRepository interface {
	Create(ctx context.Context, p *model.Partnership) error
	GetByID(ctx context.Context, id string) (*model.Partnership, error)
	GetByToken(ctx context.Context, token string) (*model.Partnership, error)
	GetActiveForUser(ctx context.Context, userID string) (*model.Partnership, error)
	GetPendingFromUser(ctx context.Context, userID string) (*model.Partnership, error)
	ListPendingForEmail(ctx context.Context, email string) ([]model.Partnership, error)
	ListPendingFromUser(ctx context.Context, userID string) ([]model.Partnership, error)
	Update(ctx context.Context, p *model.Partnership) error
}

type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	GetByID(ctx context.Context, id string) (*model.Goal, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Goal, error)
	Update(ctx context.Context, goal *model.Goal) error
	Delete(ctx context.Context, id string) error
}

type SystemRepository interface {
	Create(ctx context.Context, system *model.System) error
	GetByID(ctx context.Context, id string) (*model.System, error)
	ListByGoal(ctx context.Context, goalID string) ([]model.System, error)
	Update(ctx context.Context, system *model.System) error
	Delete(ctx context.Context, id string) error
}

type CheckinRepository interface {
	Create(ctx context.Context, checkin *model.Checkin) error
	GetByID(ctx context.Context, id string) (*model.Checkin, error)
	ListBySystem(ctx context.Context, systemID string, opts ListOptions) ([]model.Checkin, error)
	Update(ctx context.Context, checkin *model.Checkin) error
	Delete(ctx context.Context, id string) error
}

type ReflectionRepository interface {
	Create(ctx context.Context, reflection *model.Reflection) error
	GetByID(ctx context.Context, id string) (*model.Reflection, error)
	ListByGoal(ctx context.Context, goalID string) ([]model.Reflection, error)
	Update(ctx context.Context, reflection *model.Reflection) error
	Delete(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListByGoal(ctx context.Context, goalID string) ([]model.Comment, error)
	ListByCheckin(ctx context.Context, checkinID string) ([]model.Comment, error)
	Update(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, id string) error
}

type ReactionRepository interface {
	Create(ctx context.Context, reaction *model.Reaction) error
	GetByID(ctx context.Context, id string) (*model.Reaction, error)
	ListByTarget(ctx context.Context, kind model.ReactionTargetKind, targetID string) ([]model.Reaction, error)
	Delete(ctx context.Context, id string) error

	// DeleteByTarget removes every reaction on a target. Reactions point at
	// their target by kind and id, so no foreign key cascades for them.
	DeleteByTarget(ctx context.Context, kind model.ReactionTargetKind, targetID string) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.DirectMessage) error
	GetByID(ctx context.Context, id string) (*model.DirectMessage, error)
	ListByPartnership(ctx context.Context, partnershipID string, opts ListOptions) ([]model.DirectMessage, error)
	Update(ctx context.Context, msg *model.DirectMessage) error
	Delete(ctx context.Context, id string) error
}
