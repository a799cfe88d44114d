package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/duotrak/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleCreate posts a comment on a goal or a checkin, optionally as a reply.
//
// HTTP: POST /api/v1/comments
// REQUEST BODY: {"goalId" | "checkinId", "parentCommentId"?, "content"}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HTTP: GET /api/v1/goals/{id}/comments
func (h *CommentHandler) HandleListForGoal(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListForGoal(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(comments))
}

// HTTP: GET /api/v1/checkins/{id}/comments
func (h *CommentHandler) HandleListForCheckin(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListForCheckin(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list(comments))
}

// HTTP: PATCH /api/v1/comments/{id}
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateCommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), actor(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// HTTP: DELETE /api/v1/comments/{id}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
