package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
	"outfitsquare/internal/transport/http/middleware"
)

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Publish handles POST /posts
// Publishing the same outfit change twice returns the existing post with
// 200 instead of 201.
func (h *PostHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.PublishPostRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	res, err := h.postService.PublishPost(r.Context(), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, "Publish post handler", err, "Failed to publish post")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, res)
}

// GetByID handles GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.GetPost(r.Context(), chi.URLParam(r, "id"), middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "GetByID post handler", err, "Failed to fetch post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}
// Only the author can delete; comments, likes and ratings go with the post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.postService.DeletePost(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		httputil.WriteServiceError(w, "Delete post handler", err, "Failed to delete post")
		return
	}

	httputil.WriteMessage(w, "Post deleted successfully")
}

// DeleteBySource handles DELETE /posts/source/{outfitChangeId}
func (h *PostHandler) DeleteBySource(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID, err := h.postService.DeletePostByOutfitChangeID(r.Context(), chi.URLParam(r, "outfitChangeId"), userID)
	if err != nil {
		httputil.WriteServiceError(w, "DeleteBySource handler", err, "Failed to delete post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"post_id": postID})
}

// Like handles POST /posts/{id}/like and toggles the viewer's like.
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.postService.LikePost(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteServiceError(w, "Like handler", err, "Failed to like post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *PostHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.postService.GetRatingSummary(r.Context(), chi.URLParam(r, "id"), middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "GetRating handler", err, "Failed to fetch rating")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// Rate handles PUT /posts/{id}/rating
func (h *PostHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RateRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	summary, err := h.postService.RatePost(r.Context(), chi.URLParam(r, "id"), userID, req.Score)
	if err != nil {
		httputil.WriteServiceError(w, "Rate handler", err, "Failed to rate post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *PostHandler) RemoveRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	removed, err := h.postService.RemoveRating(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		httputil.WriteServiceError(w, "RemoveRating handler", err, "Failed to remove rating")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// ListSquare handles GET /square, the public feed newest first.
func (h *PostHandler) ListSquare(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	res, err := h.postService.ListSquare(r.Context(), cursor, limit, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "ListSquare handler", err, "Failed to fetch square")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// GetUserPosts handles GET /users/{id}/posts
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	res, err := h.postService.ListUserPosts(r.Context(), chi.URLParam(r, "id"), cursor, limit, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "GetUserPosts handler", err, "Failed to fetch user posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
