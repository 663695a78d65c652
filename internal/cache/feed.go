package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FollowingFeedPrefix is the key prefix for per-user following feeds
	FollowingFeedPrefix = "square:following:"

	// FeedCacheCap is the maximum number of posts kept per user
	FeedCacheCap = 500

	// FeedCacheTTL is the TTL for a following feed (7 days)
	FeedCacheTTL = 7 * 24 * time.Hour
)

// PostScore is a post ID with its creation time in unix milliseconds.
type PostScore struct {
	PostID    string `db:"id"`
	Timestamp int64  `db:"created_at"`
}

// FeedCache stores each user's following feed as a sorted set of post IDs
// scored by creation time.
type FeedCache interface {
	// AddPost inserts a post into every listed user's feed (fan-out on write).
	AddPost(ctx context.Context, userIDs []string, post PostScore) error

	// RemovePost drops a post from every listed user's feed.
	RemovePost(ctx context.Context, userIDs []string, postID string) error

	// RemovePosts drops several posts from one user's feed (unfollow).
	RemovePosts(ctx context.Context, userID string, postIDs []string) error

	// GetFeed returns post IDs newest first. With a cursor, only posts
	// strictly older than the cursor score are returned.
	GetFeed(ctx context.Context, userID string, cursorScore *float64, limit int) (postIDs []string, scores []float64, err error)

	// WarmCache bulk-inserts posts into one user's feed.
	WarmCache(ctx context.Context, userID string, posts []PostScore) error

	// Exists reports whether the user's feed key is present.
	Exists(ctx context.Context, userID string) (bool, error)
}

// RedisFeedCache implements FeedCache using Redis Sorted Sets.
type RedisFeedCache struct {
	client *redis.Client
}

// NewFeedCache creates a new FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID string) string {
	return FollowingFeedPrefix + userID
}

// AddPost pipelines ZADD + ZREMRANGEBYRANK (cap) + EXPIRE for each recipient.
func (c *RedisFeedCache) AddPost(ctx context.Context, userIDs []string, post PostScore) error {
	if len(userIDs) == 0 {
		return nil
	}
	startTime := time.Now()

	pipe := c.client.Pipeline()
	for _, userID := range userIDs {
		key := feedKey(userID)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(post.Timestamp), Member: post.PostID})
		// Rank 0 is the oldest entry; keep only the newest FeedCacheCap.
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
		pipe.Expire(ctx, key, FeedCacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] AddPost FAILED: post=%s recipients=%d err=%v", post.PostID, len(userIDs), err)
		return fmt.Errorf("add post to feeds: %w", err)
	}

	log.Printf("[FeedCache] AddPost OK: post=%s recipients=%d duration=%v",
		post.PostID, len(userIDs), time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) RemovePost(ctx context.Context, userIDs []string, postID string) error {
	if len(userIDs) == 0 {
		return nil
	}
	startTime := time.Now()

	pipe := c.client.Pipeline()
	for _, userID := range userIDs {
		pipe.ZRem(ctx, feedKey(userID), postID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] RemovePost FAILED: post=%s recipients=%d err=%v", postID, len(userIDs), err)
		return fmt.Errorf("remove post from feeds: %w", err)
	}

	log.Printf("[FeedCache] RemovePost OK: post=%s recipients=%d duration=%v",
		postID, len(userIDs), time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) RemovePosts(ctx context.Context, userID string, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	members := make([]any, len(postIDs))
	for i, id := range postIDs {
		members[i] = id
	}

	removed, err := c.client.ZRem(ctx, feedKey(userID), members...).Result()
	if err != nil {
		log.Printf("[FeedCache] RemovePosts FAILED: user=%s err=%v", userID, err)
		return fmt.Errorf("remove posts from feed: %w", err)
	}

	log.Printf("[FeedCache] RemovePosts OK: user=%s removed=%d", userID, removed)
	return nil
}

func (c *RedisFeedCache) GetFeed(ctx context.Context, userID string, cursorScore *float64, limit int) ([]string, []float64, error) {
	key := feedKey(userID)
	startTime := time.Now()

	var (
		results []redis.Z
		err     error
	)
	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   fmt.Sprintf("(%.0f", *cursorScore),
			Count: int64(limit),
		}).Result()
	}
	if err != nil {
		log.Printf("[FeedCache] GetFeed FAILED: user=%s err=%v", userID, err)
		return nil, nil, fmt.Errorf("get feed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, FeedCacheTTL)

	postIDs := make([]string, 0, len(results))
	scores := make([]float64, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected feed member type %T", z.Member)
		}
		postIDs = append(postIDs, member)
		scores = append(scores, z.Score)
	}

	log.Printf("[FeedCache] GetFeed OK: user=%s returned=%d duration=%v",
		userID, len(postIDs), time.Since(startTime))
	return postIDs, scores, nil
}

func (c *RedisFeedCache) WarmCache(ctx context.Context, userID string, posts []PostScore) error {
	if len(posts) == 0 {
		return nil
	}
	key := feedKey(userID)

	members := make([]redis.Z, len(posts))
	for i, p := range posts {
		members[i] = redis.Z{Score: float64(p.Timestamp), Member: p.PostID}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%s posts=%d err=%v", userID, len(posts), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%s posts=%d", userID, len(posts))
	return nil
}

func (c *RedisFeedCache) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return n > 0, nil
}
