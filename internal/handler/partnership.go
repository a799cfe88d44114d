package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/model"
	"github.com/sakif/duotrak/internal/service"
)

// PartnershipHandler exposes invites and the partnership lifecycle.
type PartnershipHandler struct {
	partnerships *service.PartnershipService
	logger       *slog.Logger
}

func NewPartnershipHandler(partnerships *service.PartnershipService, logger *slog.Logger) *PartnershipHandler {
	return &PartnershipHandler{partnerships: partnerships, logger: logger}
}

type inviteRequest struct {
	Email string `json:"email"`
}

type respondRequest struct {
	Decision model.InviteDecision `json:"decision"`
}

// HTTP: POST /api/v1/partnerships/invite
// REQUEST BODY: {"email": "partner@example.com"}
func (h *PartnershipHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.partnerships.SendInvite(r.Context(), actor(r), req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HTTP: GET /api/v1/partnerships/requests/pending
func (h *PartnershipHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	invites, err := h.partnerships.GetPendingInvitesFor(r.Context(), actor(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(invites))
}

// HTTP: GET /api/v1/partnerships/requests/sent
func (h *PartnershipHandler) HandleSent(w http.ResponseWriter, r *http.Request) {
	invites, err := h.partnerships.GetSentInvites(r.Context(), actor(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(invites))
}

// HTTP: GET /api/v1/partnerships/current
// RESPONSE: 404 when the caller has no active partnership
func (h *PartnershipHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	p, err := h.partnerships.GetActivePartnership(r.Context(), actor(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: PUT /api/v1/partnerships/requests/{id}/respond
// REQUEST BODY: {"decision": "accept" | "decline"}
func (h *PartnershipHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.partnerships.RespondToInvite(r.Context(), r.PathValue("id"), actor(r), req.Decision)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: POST /api/v1/partnerships/accept-invite/{token}
func (h *PartnershipHandler) HandleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	p, err := h.partnerships.AcceptByToken(r.Context(), r.PathValue("token"), actor(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: DELETE /api/v1/partnerships/requests/{id}
func (h *PartnershipHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.partnerships.CancelInvite(r.Context(), r.PathValue("id"), actor(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: DELETE /api/v1/partnerships/{id}
func (h *PartnershipHandler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	if err := h.partnerships.Terminate(r.Context(), r.PathValue("id"), actor(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/v1/partnerships/{id}
func (h *PartnershipHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.partnerships.GetPartnership(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
