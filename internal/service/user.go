package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/repository"
)

// UserService is the identity store: it maps authenticated subjects to user
// records and manages profiles.
type UserService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// SyncProfileInput combines the identity from the token with the optional
// profile fields the client sends on first sign-in. Subject and Email must
// come from the verified token, never from the request body.
type SyncProfileInput struct {
	Subject  string `json:"-"        validate:"required"`
	Email    string `json:"-"        validate:"required,email"`
	Username string `json:"username" validate:"omitempty,min=3,max=50,alphanum"`
	Name     string `json:"name"     validate:"max=100"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// SyncProfile returns the user for in.Subject, creating it on first call.
// created reports whether a new record was made. An existing user whose
// provider email changed gets the new address. Without an explicit
// username one is derived from the email, with a numeric suffix when the
// derived name is taken.
func (s *UserService) SyncProfile(ctx context.Context, in SyncProfileInput) (user *model.User, created bool, err error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, false, err
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Users().GetBySubject(ctx, in.Subject)
		if err == nil {
			user = existing
			if existing.Email != in.Email {
				existing.Email = in.Email
				return tx.Users().Update(ctx, existing)
			}
			return nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		username := in.Username
		if username == "" {
			username, err = availableUsername(ctx, tx, usernameFromEmail(in.Email))
			if err != nil {
				return err
			}
		} else if taken, err := usernameTaken(ctx, tx, username); err != nil {
			return err
		} else if taken {
			return apperror.ConflictMessage(fmt.Sprintf("username %q is already taken", username))
		}

		user = &model.User{
			Subject:  in.Subject,
			Email:    in.Email,
			Username: username,
			Name:     strings.TrimSpace(in.Name),
			Timezone: in.Timezone,
		}
		created = true
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		if !isExpected(err) {
			s.logger.Error("failed to sync profile", slog.String("error", err.Error()))
		}
		return nil, false, fmt.Errorf("syncing profile: %w", err)
	}

	if created {
		s.logger.Info("user created",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
	}
	return user, created, nil
}

// Current returns the user behind an authenticated subject.
func (s *UserService) Current(ctx context.Context, subject string) (*model.User, error) {
	var user *model.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().GetBySubject(ctx, subject)
		return err
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: "no profile exists for this account yet; sync it first",
			}
		}
		return nil, fmt.Errorf("loading current user: %w", err)
	}
	return user, nil
}

// GetPublic returns the public profile of any user.
func (s *UserService) GetPublic(ctx context.Context, id string) (model.PublicUser, error) {
	var user *model.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// UpdateProfile applies patch to actor's profile. A username already used
// by someone else is a conflict.
func (s *UserService) UpdateProfile(ctx context.Context, actor *model.User, patch model.UserPatch) (*model.User, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}

		if patch.Username != nil && *patch.Username != user.Username {
			other, err := tx.Users().GetByUsername(ctx, *patch.Username)
			switch {
			case err == nil && other.ID != user.ID:
				return apperror.ConflictMessage(fmt.Sprintf("username %q is already taken", *patch.Username))
			case err != nil && !errors.Is(err, apperror.ErrNotFound):
				return err
			}
		}

		patch.Apply(user)
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("updating profile of %s: %w", actor.ID, err)
	}
	return user, nil
}

// usernameFromEmail derives a default username from the local part of an
// address, keeping only letters and digits.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	for len(name) < 3 {
		name += "0"
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return name
}

// maxUsernameSuffix bounds the search for a free derived username.
const maxUsernameSuffix = 1000

// availableUsername returns base, or base followed by the smallest number
// from 2 up that nobody has taken yet.
func availableUsername(ctx context.Context, tx repository.Store, base string) (string, error) {
	for n := 1; n <= maxUsernameSuffix; n++ {
		candidate := base
		if n > 1 {
			suffix := strconv.Itoa(n)
			if len(candidate)+len(suffix) > 50 {
				candidate = candidate[:50-len(suffix)]
			}
			candidate += suffix
		}
		taken, err := usernameTaken(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperror.ConflictMessage(fmt.Sprintf("no free username derived from %q; choose one explicitly", base))
}

func usernameTaken(ctx context.Context, tx repository.Store, username string) (bool, error) {
	_, err := tx.Users().GetByUsername(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
