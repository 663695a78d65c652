package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
)

// RelationshipHandler serves friends, friend requests and privacy settings.
type RelationshipHandler struct {
	relationships *service.RelationshipService
}

func NewRelationshipHandler(relationships *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

// ListFriends handles GET /friends
func (h *RelationshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.relationships.ListFriends(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "ListFriends handler", err, "Failed to list friends")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// RemoveFriend handles DELETE /friends/{id}
func (h *RelationshipHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.relationships.RemoveFriend(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, "RemoveFriend handler", err, "Failed to remove friend")
		return
	}
	httputil.WriteMessage(w, "Friend removed")
}

// ListRequests handles GET /friends/requests
func (h *RelationshipHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.relationships.ListRequests(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "ListRequests handler", err, "Failed to list friend requests")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// SendRequest handles POST /friends/requests
func (h *RelationshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.SendFriendRequestRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.TargetUserID == "" {
		httputil.WriteBadRequest(w, "target_user_id is required")
		return
	}

	fr, err := h.relationships.SendFriendRequest(r.Context(), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, "SendRequest handler", err, "Failed to send friend request")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fr)
}

// AcceptRequest handles POST /friends/requests/{id}/accept
func (h *RelationshipHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	fr, err := h.relationships.AcceptFriendRequest(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, "AcceptRequest handler", err, "Failed to accept friend request")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fr)
}

// RejectRequest handles POST /friends/requests/{id}/reject
func (h *RelationshipHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	fr, err := h.relationships.RejectFriendRequest(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, "RejectRequest handler", err, "Failed to reject friend request")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fr)
}

// GetPrivacy handles GET /me/privacy
func (h *RelationshipHandler) GetPrivacy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	settings, err := h.relationships.GetPrivacySettings(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "GetPrivacy handler", err, "Failed to load privacy settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

// UpdatePrivacy handles PUT /me/privacy
func (h *RelationshipHandler) UpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdatePrivacyRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	settings, err := h.relationships.UpdatePrivacySettings(r.Context(), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, "UpdatePrivacy handler", err, "Failed to update privacy settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}
