package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List handles GET /posts/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	comments, err := h.commentService.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, "List comments handler", err, "Failed to fetch comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// Add handles POST /posts/{id}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.AddCommentRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	comment, err := h.commentService.AddComment(r.Context(), chi.URLParam(r, "id"), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, "Add comment handler", err, "Failed to add comment")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /comments/{id}
// Both the comment author and the post author may delete.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		httputil.WriteServiceError(w, "Delete comment handler", err, "Failed to delete comment")
		return
	}

	httputil.WriteMessage(w, "Comment deleted")
}

// Pin handles POST /posts/{id}/comments/{commentId}/pin and toggles the pin.
func (h *CommentHandler) Pin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.commentService.PinComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), userID)
	if err != nil {
		httputil.WriteServiceError(w, "Pin comment handler", err, "Failed to pin comment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
