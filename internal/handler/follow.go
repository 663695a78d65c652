package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
	"outfitsquare/internal/transport/http/middleware"
)

type FollowHandler struct {
	relationships *service.RelationshipService
}

func NewFollowHandler(relationships *service.RelationshipService) *FollowHandler {
	return &FollowHandler{
		relationships: relationships,
	}
}

// Follow handles POST /users/{id}/follow. The optional body carries the
// followee's nickname and avatar for the directory.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.FollowRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	if err := h.relationships.FollowUser(r.Context(), followerID, chi.URLParam(r, "id"), req); err != nil {
		httputil.WriteServiceError(w, "Follow handler", err, "Failed to follow user")
		return
	}

	httputil.WriteMessage(w, "Successfully followed user")
}

func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.relationships.UnfollowUser(r.Context(), followerID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, "Unfollow handler", err, "Failed to unfollow user")
		return
	}

	httputil.WriteMessage(w, "Successfully unfollowed user")
}

func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	result, err := h.relationships.GetFollowersList(r.Context(), chi.URLParam(r, "id"), cursor, limit, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "GetFollowers handler", err, "Failed to fetch followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	result, err := h.relationships.GetFollowingList(r.Context(), chi.URLParam(r, "id"), cursor, limit, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "GetFollowing handler", err, "Failed to fetch following")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
