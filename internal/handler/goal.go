package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type GoalHandler struct {
	goals  *service.GoalService
	logger *slog.Logger
}

func NewGoalHandler(goals *service.GoalService, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goals: goals, logger: logger}
}

// HandleList lists the caller's goals, or their partner's with ?userId=.
//
// HTTP: GET /api/v1/goals[?userId=...&limit=&offset=]
func (h *GoalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	me := actor(r)
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = me.ID
	}

	goals, err := h.goals.ListForUser(r.Context(), me, userID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(goals))
}

// HTTP: POST /api/v1/goals
func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	goal, err := h.goals.Create(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// HTTP: GET /api/v1/goals/{id}
func (h *GoalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goals.Get(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// HTTP: PATCH /api/v1/goals/{id}
func (h *GoalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.GoalPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	goal, err := h.goals.Update(r.Context(), actor(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// HTTP: DELETE /api/v1/goals/{id}
func (h *GoalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.goals.Delete(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
