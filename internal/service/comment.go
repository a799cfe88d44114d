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

// CommentService manages threaded comments on goals and checkins. Anyone
// who can read the target may comment; only the author may edit or delete.
type CommentService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewCommentService(store repository.Store, logger *slog.Logger) *CommentService {
	return &CommentService{store: store, logger: logger}
}

type CreateCommentInput struct {
	GoalID          string `json:"goalId"`
	CheckinID       string `json:"checkinId"`
	ParentCommentID string `json:"parentCommentId"`
	Content         string `json:"content" validate:"required,max=2000"`
}

type UpdateCommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (s *CommentService) Create(ctx context.Context, actor *model.User, in CreateCommentInput) (*model.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	target, err := ownership.CommentTarget(in.GoalID, in.CheckinID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		AuthorID: actor.ID,
		Content:  in.Content,
	}
	if target.Kind == ownership.KindGoal {
		comment.GoalID = &target.ID
	} else {
		comment.CheckinID = &target.ID
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, target); err != nil {
			return err
		}
		if in.ParentCommentID != "" {
			parent, err := tx.Comments().GetByID(ctx, in.ParentCommentID)
			if err != nil {
				return err
			}
			if !parent.SameTarget(comment) {
				return apperror.ValidationFailed("parentCommentId", "a reply must be on the same target as its parent")
			}
			comment.ParentCommentID = &parent.ID
		}
		return tx.Comments().Create(ctx, comment)
	})
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created", slog.String("commentID", comment.ID), slog.String("authorID", actor.ID))
	return comment, nil
}

func (s *CommentService) ListForGoal(ctx context.Context, actor *model.User, goalID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Goal(goalID)); err != nil {
			return err
		}
		var err error
		comments, err = tx.Comments().ListByGoal(ctx, goalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) ListForCheckin(ctx context.Context, actor *model.User, checkinID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := authorizeRead(ctx, tx, actor, ownership.Checkin(checkinID)); err != nil {
			return err
		}
		var err error
		comments, err = tx.Comments().ListByCheckin(ctx, checkinID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) Update(ctx context.Context, actor *model.User, id string, in UpdateCommentInput) (*model.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var comment *model.Comment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		comment, err = s.authored(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		comment.Content = in.Content
		return tx.Comments().Update(ctx, comment)
	})
	if err != nil {
		return nil, fmt.Errorf("updating comment %s: %w", id, err)
	}
	return comment, nil
}

// Delete removes a comment and its replies.
func (s *CommentService) Delete(ctx context.Context, actor *model.User, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := s.authored(ctx, tx, actor, id); err != nil {
			return err
		}
		return tx.Comments().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	return nil
}

// authored loads a comment the actor wrote and can still see.
func (s *CommentService) authored(ctx context.Context, tx repository.Store, actor *model.User, id string) (*model.Comment, error) {
	if err := authorizeRead(ctx, tx, actor, ownership.Comment(id)); err != nil {
		return nil, err
	}
	comment, err := tx.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.ID {
		return nil, apperror.Forbidden("only the author can change this comment")
	}
	return comment, nil
}
