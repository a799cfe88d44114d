package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

type ReactionHandler struct {
	reactions *service.ReactionService
	logger    *slog.Logger
}

func NewReactionHandler(reactions *service.ReactionService, logger *slog.Logger) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, logger: logger}
}

// HTTP: POST /api/v1/reactions
// REQUEST BODY: {"targetKind": "checkin|reflection|message", "targetId", "emoji"}
func (h *ReactionHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var in service.AddReactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reaction, err := h.reactions.Add(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reaction)
}

// HTTP: GET /api/v1/reactions?target_kind=checkin&target_id=...
func (h *ReactionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := model.ReactionTargetKind(q.Get("target_kind"))

	reactions, err := h.reactions.ListForTarget(r.Context(), actor(r), kind, q.Get("target_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(reactions))
}

// HTTP: DELETE /api/v1/reactions/{id}
func (h *ReactionHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.reactions.Remove(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
