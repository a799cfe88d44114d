package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError, so every error
// body has the same shape:
//
//	{"error": "not_found", "message": "goal not found with id abc123"}
//	{"error": "validation_error", "message": "title is required", "field": "title"}
//
// writeError is the only place that maps domain errors to HTTP status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/repository"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field, for validation errors
}

// ListResponse wraps collections so that fields can be added later
// without breaking clients.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

func list[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items}
}

// writeJSON sets headers, then the status, then the body; headers set after
// the first write are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKinds is checked in order, so the refined partnership kinds come
// before the general category they wrap.
var errorKinds = []struct {
	target error
	status int
	code   string
}{
	{apperror.ErrSelfPartnership, http.StatusBadRequest, "self_partnership"},
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrInvalidToken, http.StatusNotFound, "invalid_token"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrAlreadyPartnered, http.StatusConflict, "already_partnered"},
	{apperror.ErrPartnerAlreadyPartnered, http.StatusConflict, "partner_already_partnered"},
	{apperror.ErrPendingInviteExists, http.StatusConflict, "pending_invite_exists"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{apperror.ErrExpiredToken, http.StatusGone, "expired_token"},
}

// writeError maps a domain error to its HTTP status and sends it. Anything
// that is not an *apperror.AppError is logged and hidden behind a 500; raw
// messages can contain SQL or file paths.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.target) {
				writeJSON(w, k.status, ErrorResponse{
					Error:   k.code,
					Message: appErr.Message,
					Field:   appErr.Field,
				})
				return
			}
		}
	}

	logger.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads r's body into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// listOptions reads ?limit= and ?offset=.
func listOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &opts.Limit},
		{"offset", &opts.Offset},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed(p.name, p.name+" must be a non-negative integer")
		}
		*p.dst = n
	}
	return opts, nil
}
