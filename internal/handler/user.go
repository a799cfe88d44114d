package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/auth"
	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type syncProfileRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// HandleSync creates the caller's profile on first sign-in, or returns it.
// The email always comes from the token's email claim; a token without one
// is rejected, and the body cannot set or change the address.
//
// HTTP: POST /api/v1/users/sync
// RESPONSE: 201 on creation, 200 otherwise
func (h *UserHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if id.Email == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "token has no email claim",
		})
		return
	}

	var req syncProfileRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	user, created, err := h.users.SyncProfile(r.Context(), service.SyncProfileInput{
		Subject:  id.Subject,
		Email:    id.Email,
		Username: req.Username,
		Name:     req.Name,
		Timezone: req.Timezone,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, user)
}

// HTTP: GET /api/v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actor(r))
}

// HTTP: PATCH /api/v1/users/me
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), actor(r), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGet returns another user's public profile.
//
// HTTP: GET /api/v1/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetPublic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
