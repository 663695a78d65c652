package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
	"outfitsquare/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, &userID)
	if err != nil {
		httputil.WriteServiceError(w, "Me handler", err, "Failed to load profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateMe handles PATCH /me
// A nickname change is propagated to the caller's posts and comments.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, "UpdateMe handler", err, "Failed to update profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), chi.URLParam(r, "id"), middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "GetProfile handler", err, "Failed to load profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteBadRequest(w, "Query parameter 'q' is required")
		return
	}

	users, err := h.userService.Search(r.Context(), query, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, "Search handler", err, "Failed to search users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.UserListResponse{Users: users})
}
