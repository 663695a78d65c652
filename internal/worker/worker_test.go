package worker_test

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"outfitsquare/internal/cache"
	"outfitsquare/internal/model"
	"outfitsquare/internal/queue"
	"outfitsquare/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockFollowerProvider simulates the follow repository.
type MockFollowerProvider struct {
	followers map[string][]string
}

func NewMockFollowerProvider() *MockFollowerProvider {
	return &MockFollowerProvider{followers: make(map[string][]string)}
}

func (m *MockFollowerProvider) AddFollower(userID, followerID string) {
	m.followers[userID] = append(m.followers[userID], followerID)
}

func (m *MockFollowerProvider) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return m.followers[userID], nil
}

// MockPostsProvider simulates the post repository.
type MockPostsProvider struct {
	posts map[string][]cache.PostScore
}

func NewMockPostsProvider() *MockPostsProvider {
	return &MockPostsProvider{posts: make(map[string][]cache.PostScore)}
}

func (m *MockPostsProvider) AddPost(authorID, postID string, timestamp int64) {
	m.posts[authorID] = append(m.posts[authorID], cache.PostScore{PostID: postID, Timestamp: timestamp})
}

func (m *MockPostsProvider) GetRecentPostsByUser(ctx context.Context, userID string, limit int) ([]cache.PostScore, error) {
	posts := m.posts[userID]
	if len(posts) > limit {
		return posts[:limit], nil
	}
	return posts, nil
}

// MemoryFeedCache is an in-process FeedCache.
type MemoryFeedCache struct {
	feeds map[string]map[string]int64
}

func NewMemoryFeedCache() *MemoryFeedCache {
	return &MemoryFeedCache{feeds: make(map[string]map[string]int64)}
}

func (c *MemoryFeedCache) feed(userID string) map[string]int64 {
	f, ok := c.feeds[userID]
	if !ok {
		f = make(map[string]int64)
		c.feeds[userID] = f
	}
	return f
}

func (c *MemoryFeedCache) AddPost(ctx context.Context, userIDs []string, post cache.PostScore) error {
	for _, id := range userIDs {
		c.feed(id)[post.PostID] = post.Timestamp
	}
	return nil
}

func (c *MemoryFeedCache) RemovePost(ctx context.Context, userIDs []string, postID string) error {
	for _, id := range userIDs {
		delete(c.feed(id), postID)
	}
	return nil
}

func (c *MemoryFeedCache) RemovePosts(ctx context.Context, userID string, postIDs []string) error {
	for _, p := range postIDs {
		delete(c.feed(userID), p)
	}
	return nil
}

func (c *MemoryFeedCache) GetFeed(ctx context.Context, userID string, cursorScore *float64, limit int) ([]string, []float64, error) {
	type entry struct {
		id    string
		score int64
	}
	var entries []entry
	for id, score := range c.feeds[userID] {
		if cursorScore != nil && float64(score) >= *cursorScore {
			continue
		}
		entries = append(entries, entry{id, score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	ids := make([]string, len(entries))
	scores := make([]float64, len(entries))
	for i, e := range entries {
		ids[i] = e.id
		scores[i] = float64(e.score)
	}
	return ids, scores, nil
}

func (c *MemoryFeedCache) WarmCache(ctx context.Context, userID string, posts []cache.PostScore) error {
	for _, p := range posts {
		c.feed(userID)[p.PostID] = p.Timestamp
	}
	return nil
}

func (c *MemoryFeedCache) Exists(ctx context.Context, userID string) (bool, error) {
	_, ok := c.feeds[userID]
	return ok, nil
}

func (c *MemoryFeedCache) Has(userID, postID string) bool {
	_, ok := c.feeds[userID][postID]
	return ok
}

// MockNotifier records notifications.
type MockNotifier struct {
	sent []*model.Notification
	err  error
}

func (m *MockNotifier) Notify(ctx context.Context, n *model.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func newTestHandler() (*worker.Handler, *MemoryFeedCache, *MockFollowerProvider, *MockPostsProvider, *MockNotifier) {
	feedCache := NewMemoryFeedCache()
	followers := NewMockFollowerProvider()
	posts := NewMockPostsProvider()
	notifier := &MockNotifier{}
	h := worker.NewHandler(feedCache, followers, posts)
	h.SetNotificationCreator(notifier)
	return h, feedCache, followers, posts, notifier
}

// =============================================================================
// Fan-out
// =============================================================================

func TestPostPublishedFanout(t *testing.T) {
	ctx := context.Background()
	h, feedCache, followers, _, _ := newTestHandler()

	followers.AddFollower("u1", "u2")
	followers.AddFollower("u1", "u3")

	now := time.Now().UnixMilli()
	if err := h.HandleEvent(ctx, queue.NewPostPublishedEvent("p1", "u1", now)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, userID := range []string{"u1", "u2", "u3"} {
		if !feedCache.Has(userID, "p1") {
			t.Errorf("post p1 not found in %s's feed", userID)
		}
	}
	if feedCache.Has("u4", "p1") {
		t.Error("post leaked into a non-follower's feed")
	}
}

func TestPostDeletedRemoval(t *testing.T) {
	ctx := context.Background()
	h, feedCache, followers, _, _ := newTestHandler()

	followers.AddFollower("u1", "u2")
	_ = feedCache.AddPost(ctx, []string{"u1", "u2"}, cache.PostScore{PostID: "p1", Timestamp: 1})

	if err := h.HandleEvent(ctx, queue.NewPostDeletedEvent("p1", "u1")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, userID := range []string{"u1", "u2"} {
		if feedCache.Has(userID, "p1") {
			t.Errorf("post p1 should have been removed from %s's feed", userID)
		}
	}
}

func TestUserFollowedBackfillAndNotify(t *testing.T) {
	ctx := context.Background()
	h, feedCache, _, posts, notifier := newTestHandler()

	now := time.Now().UnixMilli()
	posts.AddPost("u1", "p101", now-3000)
	posts.AddPost("u1", "p102", now-2000)

	event := queue.NewUserFollowedEvent(queue.Actor{ID: "u2", Nickname: "Bob"}, "u1")
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, postID := range []string{"p101", "p102"} {
		if !feedCache.Has("u2", postID) {
			t.Errorf("post %s not backfilled", postID)
		}
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.UserID != "u1" || n.ActorID != "u2" || n.Type != model.NotificationTypeFollow {
		t.Errorf("unexpected notification: %+v", n)
	}
	if n.ActorNickname != "Bob" {
		t.Errorf("actor nickname: got %q, want Bob", n.ActorNickname)
	}
}

func TestUserUnfollowedRemoval(t *testing.T) {
	ctx := context.Background()
	h, feedCache, _, posts, _ := newTestHandler()

	posts.AddPost("u1", "p101", 100)
	posts.AddPost("u1", "p102", 200)
	_ = feedCache.WarmCache(ctx, "u2", []cache.PostScore{
		{PostID: "p101", Timestamp: 100},
		{PostID: "p102", Timestamp: 200},
		{PostID: "p301", Timestamp: 150},
	})

	if err := h.HandleEvent(ctx, queue.NewUserUnfollowedEvent("u2", "u1")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if feedCache.Has("u2", "p101") || feedCache.Has("u2", "p102") {
		t.Error("unfollowed user's posts should be removed")
	}
	if !feedCache.Has("u2", "p301") {
		t.Error("other posts should remain")
	}
}

// =============================================================================
// Notifications
// =============================================================================

func TestPostLikedNotifiesAuthor(t *testing.T) {
	ctx := context.Background()
	h, _, _, _, notifier := newTestHandler()

	event := queue.NewPostLikedEvent("p1", queue.Actor{ID: "u2", Nickname: "Bob"}, "u1")
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.Type != model.NotificationTypeLike || n.PostID == nil || *n.PostID != "p1" {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestSelfActionDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	h, _, _, _, notifier := newTestHandler()

	event := queue.NewPostCommentedEvent("p1", "c1", queue.Actor{ID: "u1", Nickname: "Alice"}, "u1")
	if err := h.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("self comment should not notify, got %d", len(notifier.sent))
	}
}

func TestFriendRequestEventsNotify(t *testing.T) {
	ctx := context.Background()
	h, _, _, _, notifier := newTestHandler()

	alice := queue.Actor{ID: "u1", Nickname: "Alice"}
	bob := queue.Actor{ID: "u2", Nickname: "Bob"}

	if err := h.HandleEvent(ctx, queue.NewFriendRequestSentEvent("r1", alice, "u2")); err != nil {
		t.Fatalf("sent: %v", err)
	}
	if err := h.HandleEvent(ctx, queue.NewFriendRequestAcceptedEvent("r1", bob, "u1")); err != nil {
		t.Fatalf("accepted: %v", err)
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("notifications: got %d, want 2", len(notifier.sent))
	}
	if notifier.sent[0].Type != model.NotificationTypeFriendRequest || notifier.sent[0].UserID != "u2" {
		t.Errorf("unexpected request notification: %+v", notifier.sent[0])
	}
	if notifier.sent[1].Type != model.NotificationTypeFriendAccepted || notifier.sent[1].UserID != "u1" {
		t.Errorf("unexpected accept notification: %+v", notifier.sent[1])
	}
	if notifier.sent[1].RequestID == nil || *notifier.sent[1].RequestID != "r1" {
		t.Error("request id should be carried into the notification")
	}
}

func TestNotifierErrorPropagates(t *testing.T) {
	ctx := context.Background()
	h, _, _, _, notifier := newTestHandler()
	notifier.err = errors.New("boom")

	err := h.HandleEvent(ctx, queue.NewPostLikedEvent("p1", queue.Actor{ID: "u2"}, "u1"))
	if err == nil {
		t.Fatal("expected error from notifier")
	}
}

func TestUnknownEventType(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	if err := h.HandleEvent(context.Background(), queue.Event{Type: "bogus"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestNilFeedCacheSkipsFanout(t *testing.T) {
	h := worker.NewHandler(nil, NewMockFollowerProvider(), NewMockPostsProvider())
	if err := h.HandleEvent(context.Background(), queue.NewPostPublishedEvent("p1", "u1", 1)); err != nil {
		t.Fatalf("HandleEvent without cache: %v", err)
	}
}

func TestInlinePublisherDispatches(t *testing.T) {
	h, feedCache, _, _, _ := newTestHandler()
	pub := worker.NewInlinePublisher(h)

	id, err := pub.Publish(context.Background(), queue.StreamSquare, queue.NewPostPublishedEvent("p9", "u1", 5))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if id == "" {
		t.Error("expected a message id")
	}
	if !feedCache.Has("u1", "p9") {
		t.Error("inline publish should apply the event immediately")
	}
}

// =============================================================================
// Redis-backed
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	opts.DB = 1

	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestFanoutWithRedisFeedCache(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	feedCache := cache.NewFeedCache(client)
	followers := NewMockFollowerProvider()
	followers.AddFollower("u1", "u2")
	h := worker.NewHandler(feedCache, followers, NewMockPostsProvider())

	if err := h.HandleEvent(ctx, queue.NewPostPublishedEvent("p1", "u1", 1000)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	ids, scores, err := feedCache.GetFeed(ctx, "u2", nil, 10)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "p1" || scores[0] != 1000 {
		t.Errorf("unexpected feed: ids=%v scores=%v", ids, scores)
	}
}
