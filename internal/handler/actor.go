package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/auth"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type actorKey struct{}

// RequireProfile resolves the authenticated identity to its profile and
// stores it for the handlers behind it. It must run after auth.RequireAuth.
// Callers without a profile get 404 and are expected to sync first.
func RequireProfile(users *service.UserService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "valid authentication required",
				})
				return
			}

			user, err := users.Current(r.Context(), id.Subject)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, user)))
		})
	}
}

// actor returns the user RequireProfile loaded. Routes registered behind
// RequireProfile always have one.
func actor(r *http.Request) *model.User {
	u, _ := r.Context().Value(actorKey{}).(*model.User)
	return u
}
