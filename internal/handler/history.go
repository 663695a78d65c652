package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
	"outfitsquare/internal/transport/http/middleware"
)

// HistoryHandler serves outfit check history. Other users' history is
// filtered through the owner's privacy settings.
type HistoryHandler struct {
	historyService *service.HistoryService
}

func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// ListOwn handles GET /me/history
func (h *HistoryHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	records, err := h.historyService.ListOwn(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "ListOwn history handler", err, "Failed to fetch history")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.HistoryListResponse{Records: records, Visible: true})
}

// Create handles POST /me/history
func (h *HistoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateHistoryRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	record, err := h.historyService.Record(r.Context(), userID, req)
	if err != nil {
		httputil.WriteServiceError(w, "Create history handler", err, "Failed to save history")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, record)
}

// Delete handles DELETE /me/history/{id}
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.historyService.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, "Delete history handler", err, "Failed to delete history")
		return
	}

	httputil.WriteMessage(w, "History record deleted")
}

// ListUser handles GET /users/{id}/history. Anonymous viewers are treated
// as strangers.
func (h *HistoryHandler) ListUser(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	res, err := h.historyService.ListVisible(r.Context(), viewerID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, "ListUser history handler", err, "Failed to fetch history")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
