package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type CheckinHandler struct {
	checkins *service.CheckinService
	logger   *slog.Logger
}

func NewCheckinHandler(checkins *service.CheckinService, logger *slog.Logger) *CheckinHandler {
	return &CheckinHandler{checkins: checkins, logger: logger}
}

// HTTP: GET /api/v1/systems/{id}/checkins[?limit=&offset=]
func (h *CheckinHandler) HandleListForSystem(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	checkins, err := h.checkins.ListForSystem(r.Context(), actor(r), r.PathValue("id"), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(checkins))
}

// HTTP: POST /api/v1/systems/{id}/checkins
func (h *CheckinHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateCheckinInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	checkin, err := h.checkins.Create(r.Context(), actor(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkin)
}

// HTTP: GET /api/v1/checkins/{id}
func (h *CheckinHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	checkin, err := h.checkins.Get(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkin)
}

// HTTP: PATCH /api/v1/checkins/{id}
func (h *CheckinHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.CheckinPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	checkin, err := h.checkins.Update(r.Context(), actor(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkin)
}

// HTTP: DELETE /api/v1/checkins/{id}
func (h *CheckinHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.checkins.Delete(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVerify lets the owner's partner approve or query a checkin.
//
// HTTP: POST /api/v1/checkins/{id}/verify
// REQUEST BODY: {"action": "approve"} or {"action": "query", "query": "..."}
func (h *CheckinHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var in service.VerifyCheckinInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	checkin, err := h.checkins.Verify(r.Context(), actor(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkin)
}
