package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type ReflectionHandler struct {
	reflections *service.ReflectionService
	logger      *slog.Logger
}

func NewReflectionHandler(reflections *service.ReflectionService, logger *slog.Logger) *ReflectionHandler {
	return &ReflectionHandler{reflections: reflections, logger: logger}
}

// HTTP: GET /api/v1/goals/{id}/reflections
func (h *ReflectionHandler) HandleListForGoal(w http.ResponseWriter, r *http.Request) {
	reflections, err := h.reflections.ListForGoal(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(reflections))
}

// HTTP: POST /api/v1/goals/{id}/reflections
func (h *ReflectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReflectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reflection, err := h.reflections.Create(r.Context(), actor(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reflection)
}

// HTTP: GET /api/v1/reflections/{id}
func (h *ReflectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reflection, err := h.reflections.Get(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reflection)
}

// HTTP: PATCH /api/v1/reflections/{id}
func (h *ReflectionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.ReflectionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reflection, err := h.reflections.Update(r.Context(), actor(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reflection)
}

// HTTP: DELETE /api/v1/reflections/{id}
func (h *ReflectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.reflections.Delete(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
