package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"outfitsquare/internal/cache"
	"outfitsquare/internal/metrics"
	"outfitsquare/internal/model"
	"outfitsquare/internal/queue"
)

const (
	// backfillLimit is how many recent posts a new follow copies into the feed
	backfillLimit = 20
	// unfollowRemoveLimit bounds how many of the followee's posts are purged
	unfollowRemoveLimit = 200
)

// FollowerProvider abstracts the follow repository for fan-out.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// RecentPostsProvider abstracts the post repository for backfill.
type RecentPostsProvider interface {
	GetRecentPostsByUser(ctx context.Context, userID string, limit int) ([]cache.PostScore, error)
}

// NotificationCreator persists a notification and triggers push delivery.
type NotificationCreator interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// Handler processes social events from the queue.
type Handler struct {
	feedCache        cache.FeedCache // nil when no cache is configured
	followerProvider FollowerProvider
	postsProvider    RecentPostsProvider
	notifCreator     NotificationCreator // nil disables notification events
}

// NewHandler creates a new event handler. feedCache may be nil.
func NewHandler(
	feedCache cache.FeedCache,
	followerProvider FollowerProvider,
	postsProvider RecentPostsProvider,
) *Handler {
	return &Handler{
		feedCache:        feedCache,
		followerProvider: followerProvider,
		postsProvider:    postsProvider,
	}
}

// SetNotificationCreator wires notification events.
func (h *Handler) SetNotificationCreator(nc NotificationCreator) {
	h.notifCreator = nc
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostPublished:
		err = h.handlePostPublished(ctx, event)
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	case queue.EventUserFollowed:
		err = h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		err = h.handleUserUnfollowed(ctx, event)
	case queue.EventPostLiked:
		err = h.notify(ctx, event, model.NotificationTypeLike)
	case queue.EventPostCommented:
		err = h.notify(ctx, event, model.NotificationTypeComment)
	case queue.EventFriendRequestSent:
		err = h.notify(ctx, event, model.NotificationTypeFriendRequest)
	case queue.EventFriendRequestAccepted:
		err = h.notify(ctx, event, model.NotificationTypeFriendAccepted)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		err = fmt.Errorf("unknown event type: %s", event.Type)
	}

	metrics.EventsProcessed.WithLabelValues(event.Type, metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handlePostPublished fans a new post out to the author's followers and the
// author's own feed.
func (h *Handler) handlePostPublished(ctx context.Context, event queue.Event) error {
	if h.feedCache == nil {
		return nil
	}

	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	recipients := withAuthor(followers, event.AuthorID)
	post := cache.PostScore{PostID: event.PostID, Timestamp: event.Timestamp}
	if err := h.feedCache.AddPost(ctx, recipients, post); err != nil {
		return err
	}

	log.Printf("[Worker] PostPublished DONE: post=%s fanout=%d", event.PostID, len(recipients))
	return nil
}

func (h *Handler) handlePostDeleted(ctx context.Context, event queue.Event) error {
	if h.feedCache == nil {
		return nil
	}

	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	recipients := withAuthor(followers, event.AuthorID)
	if err := h.feedCache.RemovePost(ctx, recipients, event.PostID); err != nil {
		return err
	}

	log.Printf("[Worker] PostDeleted DONE: post=%s fanout=%d", event.PostID, len(recipients))
	return nil
}

// handleUserFollowed backfills the follower's feed with the followee's recent
// posts and notifies the followee.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.Event) error {
	if h.feedCache != nil {
		posts, err := h.postsProvider.GetRecentPostsByUser(ctx, event.FolloweeID, backfillLimit)
		if err != nil {
			return fmt.Errorf("get recent posts: %w", err)
		}
		if err := h.feedCache.WarmCache(ctx, event.FollowerID, posts); err != nil {
			return err
		}
		log.Printf("[Worker] UserFollowed: follower=%s backfilled=%d", event.FollowerID, len(posts))
	}

	return h.notify(ctx, event, model.NotificationTypeFollow)
}

func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.Event) error {
	if h.feedCache == nil {
		return nil
	}

	posts, err := h.postsProvider.GetRecentPostsByUser(ctx, event.FolloweeID, unfollowRemoveLimit)
	if err != nil {
		return fmt.Errorf("get posts to remove: %w", err)
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
	}
	if err := h.feedCache.RemovePosts(ctx, event.FollowerID, ids); err != nil {
		return err
	}

	log.Printf("[Worker] UserUnfollowed DONE: follower=%s removed=%d", event.FollowerID, len(ids))
	return nil
}

// notify turns an event into a notification for its recipient. Self-actions
// (liking or commenting on your own post) never notify.
func (h *Handler) notify(ctx context.Context, event queue.Event, notifType string) error {
	if h.notifCreator == nil || event.RecipientID == "" || event.ActorID == event.RecipientID {
		return nil
	}

	n := &model.Notification{
		UserID:        event.RecipientID,
		ActorID:       event.ActorID,
		ActorNickname: event.ActorNickname,
		ActorAvatar:   event.ActorAvatar,
		Type:          notifType,
		CommentID:     event.CommentID,
		RequestID:     event.RequestID,
		CreatedAt:     model.At(time.UnixMilli(event.Timestamp)),
	}
	if event.PostID != "" {
		postID := event.PostID
		n.PostID = &postID
	}

	if err := h.notifCreator.Notify(ctx, n); err != nil {
		return fmt.Errorf("create %s notification: %w", notifType, err)
	}
	return nil
}

func withAuthor(followers []string, authorID string) []string {
	out := make([]string, 0, len(followers)+1)
	out = append(out, followers...)
	return append(out, authorID)
}
