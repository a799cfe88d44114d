// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return *AppError values. Each one wraps a sentinel, so callers
// test the category with errors.Is and never compare messages:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// The partnership-specific sentinels wrap a general category, so
// errors.Is(err, ErrConflict) also matches ErrAlreadyPartnered. The HTTP
// layer maps categories to status codes in exactly one place.
package apperror

import (
	"errors"
	"fmt"
)

// General categories.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrExpiredToken = errors.New("expired token")
)

// Partnership-specific kinds, each refining a general category.
var (
	ErrSelfPartnership         = fmt.Errorf("self partnership: %w", ErrValidation)
	ErrAlreadyPartnered        = fmt.Errorf("already partnered: %w", ErrConflict)
	ErrPartnerAlreadyPartnered = fmt.Errorf("partner already partnered: %w", ErrConflict)
	ErrPendingInviteExists     = fmt.Errorf("pending invite exists: %w", ErrConflict)
	ErrInvalidToken            = fmt.Errorf("invalid token: %w", ErrNotFound)
)

type AppError struct {
	Err     error  // sentinel describing the kind
	Message string // human-readable message, safe to show to clients
	Field   string // optional: input field that caused the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMessage is Conflict with a caller-supplied message, for conflicts
// that are not about a single id (a taken username, a repeated reaction).
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidState reports an operation that is illegal for the current
// lifecycle state, e.g. responding to an invite twice.
func InvalidState(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidState,
		Message: message,
	}
}

func ExpiredToken() *AppError {
	return &AppError{
		Err:     ErrExpiredToken,
		Message: "invite token has expired",
	}
}

func InvalidToken() *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: "invite token is invalid",
	}
}

func SelfPartnership() *AppError {
	return &AppError{
		Err:     ErrSelfPartnership,
		Message: "you cannot create a partnership with yourself",
		Field:   "email",
	}
}

func AlreadyPartnered() *AppError {
	return &AppError{
		Err:     ErrAlreadyPartnered,
		Message: "you already have an active partnership",
	}
}

func PartnerAlreadyPartnered() *AppError {
	return &AppError{
		Err:     ErrPartnerAlreadyPartnered,
		Message: "the invited user already has an active partnership",
	}
}

func PendingInviteExists() *AppError {
	return &AppError{
		Err:     ErrPendingInviteExists,
		Message: "you already have a pending partnership invite",
	}
}
