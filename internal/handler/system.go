package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type SystemHandler struct {
	systems *service.SystemService
	logger  *slog.Logger
}

func NewSystemHandler(systems *service.SystemService, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{systems: systems, logger: logger}
}

// HTTP: GET /api/v1/goals/{id}/systems
func (h *SystemHandler) HandleListForGoal(w http.ResponseWriter, r *http.Request) {
	systems, err := h.systems.ListForGoal(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(systems))
}

// HTTP: POST /api/v1/goals/{id}/systems
func (h *SystemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateSystemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	system, err := h.systems.Create(r.Context(), actor(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, system)
}

// HTTP: GET /api/v1/systems/{id}
func (h *SystemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	system, err := h.systems.Get(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, system)
}

// HTTP: PATCH /api/v1/systems/{id}
func (h *SystemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.SystemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	system, err := h.systems.Update(r.Context(), actor(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, system)
}

// HTTP: DELETE /api/v1/systems/{id}
func (h *SystemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.systems.Delete(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
