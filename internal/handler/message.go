package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
	logger   *slog.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// HTTP: POST /api/v1/messages
// REQUEST BODY: {"partnershipId", "text"?, "emoji"?}
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var in service.SendMessageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	msg, err := h.messages.Send(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// HTTP: GET /api/v1/partnerships/{id}/messages[?limit=&offset=]
func (h *MessageHandler) HandleListConversation(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	msgs, err := h.messages.ListConversation(r.Context(), actor(r), r.PathValue("id"), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(msgs))
}

// HTTP: POST /api/v1/messages/{id}/read
func (h *MessageHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	msg, err := h.messages.MarkRead(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// HTTP: DELETE /api/v1/messages/{id}
func (h *MessageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.messages.Delete(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
