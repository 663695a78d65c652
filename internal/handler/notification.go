package handler

import (
	"net/http"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
// Follow and friend events come back individually; likes and comments are
// aggregated per post.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifService.GetNotifications(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "List notifications handler", err, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// MarkRead handles PATCH /notifications/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.MarkReadRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if len(req.NotificationIDs) == 0 {
		httputil.WriteBadRequest(w, "notification_ids is required")
		return
	}

	if err := h.notifService.MarkAsRead(r.Context(), userID, req.NotificationIDs); err != nil {
		httputil.WriteServiceError(w, "MarkRead handler", err, "Failed to mark notifications as read")
		return
	}

	httputil.WriteMessage(w, "Notifications marked as read")
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notifService.MarkAllAsRead(r.Context(), userID); err != nil {
		httputil.WriteServiceError(w, "MarkAllRead handler", err, "Failed to mark notifications as read")
		return
	}

	httputil.WriteMessage(w, "All notifications marked as read")
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, "UnreadCount handler", err, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

// RegisterToken handles POST /devices/token
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RegisterTokenRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	if err := h.notifService.RegisterDeviceToken(r.Context(), userID, req.Token, req.Platform); err != nil {
		httputil.WriteServiceError(w, "RegisterToken handler", err, "Failed to register device token")
		return
	}

	httputil.WriteMessage(w, "Device token registered")
}

// RemoveToken handles DELETE /devices/token
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RegisterTokenRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	if err := h.notifService.RemoveDeviceToken(r.Context(), userID, req.Token); err != nil {
		httputil.WriteServiceError(w, "RemoveToken handler", err, "Failed to remove device token")
		return
	}

	httputil.WriteMessage(w, "Device token removed")
}
