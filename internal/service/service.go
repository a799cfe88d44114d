// Package service holds the business rules of the application.
//
// LAYERING:
//
//	Handler (HTTP) → Service (rules) → repository.Store (SQL)
//
// Every exported operation runs inside one store transaction, so checks made
// at the start of an operation (is this user partnered? does this goal
// exist?) still hold when its writes commit. Resource operations follow one
// order: resolve the owner (ownership), authorize (access), then act.
//
// Services return *apperror.AppError values for every expected failure; the
// HTTP layer maps them to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/duotrak/internal/access"
	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/ownership"
	"github.com/sakif/duotrak/internal/repository"
)

// validate is safe for concurrent use and caches struct metadata. Field
// names in errors come from the json tags, matching what clients send.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks struct tags and turns the first failure into a
// validation AppError.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}
	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// authorizeRead resolves ref and checks that actor may read it.
func authorizeRead(ctx context.Context, tx repository.Store, actor *model.User, ref ownership.Ref) error {
	owner, err := ownership.Resolve(ctx, tx, ref)
	if err != nil {
		return err
	}
	return access.AuthorizeOwner(ctx, tx, actor, owner)
}

// authorizeWrite resolves ref and checks that actor owns it.
func authorizeWrite(ctx context.Context, tx repository.Store, actor *model.User, ref ownership.Ref) error {
	owner, err := ownership.Resolve(ctx, tx, ref)
	if err != nil {
		return err
	}
	return access.RequireOwner(actor, owner)
}

// trimPtr trims a present patch field and leaves an absent one nil.
func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// isExpected reports whether err is a domain outcome (not found, forbidden,
// ...) rather than an infrastructure failure worth an error log.
func isExpected(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
