package handler

import (
	"net/http"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/service"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns posts from the users the caller follows plus their own, newest first.
//
// Query params:
//   - cursor: optional, "postID:createdAtMillis" from the previous page
//   - limit: optional, posts per page (default 20, max 50)
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.GetFollowingFeed(r.Context(), userID, cursor, limit)
	if err != nil {
		httputil.WriteServiceError(w, "GetFeed handler", err, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}
