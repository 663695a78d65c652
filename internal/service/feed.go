package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"outfitsquare/internal/cache"
	"outfitsquare/internal/model"
	"outfitsquare/internal/repository"
)

// CacheWarmLimit is max posts to fetch when warming a feed cache
const CacheWarmLimit = cache.FeedCacheCap

// postLoader hydrates posts by ID in the order given.
type postLoader interface {
	GetPostsByIDs(ctx context.Context, postIDs []string, viewerID *string) ([]model.SquarePost, error)
}

// FeedService serves the following feed: posts by the users the viewer
// follows plus the viewer's own.
type FeedService struct {
	feedCache  cache.FeedCache // nil serves straight from the database
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	posts      postLoader
}

func NewFeedService(
	feedCache cache.FeedCache,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	posts postLoader,
) *FeedService {
	return &FeedService{
		feedCache:  feedCache,
		postRepo:   postRepo,
		followRepo: followRepo,
		posts:      posts,
	}
}

// GetFollowingFeed returns one page of the following feed.
//
// With a cache: warm it on miss, read IDs from the sorted set, hydrate from
// the database. Without one (or when the cache errors) the page is read
// directly from the database with the same cursor format.
func (s *FeedService) GetFollowingFeed(ctx context.Context, userID string, cursor *string, limit int) (*model.SquareFeedResponse, error) {
	startTime := time.Now()
	limit = pageLimit(limit)

	var cursorMillis *float64
	if cursor != nil {
		millis, err := parseFeedCursor(*cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursorMillis = &millis
	}

	if s.feedCache != nil {
		resp, err := s.fromCache(ctx, userID, cursorMillis, limit)
		if err == nil {
			log.Printf("[FeedService] GetFollowingFeed OK (cache): user=%s posts=%d hasMore=%v duration=%v",
				userID, len(resp.Posts), resp.HasMore, time.Since(startTime))
			return resp, nil
		}
		log.Printf("[FeedService] Cache read failed, falling back to DB: user=%s err=%v", userID, err)
	}

	resp, err := s.fromDatabase(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	log.Printf("[FeedService] GetFollowingFeed OK (db): user=%s posts=%d hasMore=%v duration=%v",
		userID, len(resp.Posts), resp.HasMore, time.Since(startTime))
	return resp, nil
}

func (s *FeedService) fromCache(ctx context.Context, userID string, cursorMillis *float64, limit int) (*model.SquareFeedResponse, error) {
	exists, err := s.feedCache.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Printf("[FeedService] Cache miss for user=%s, warming...", userID)
		if err := s.warmCache(ctx, userID); err != nil {
			return nil, err
		}
	}

	postIDs, scores, err := s.feedCache.GetFeed(ctx, userID, cursorMillis, limit)
	if err != nil {
		return nil, err
	}
	if len(postIDs) == 0 {
		return &model.SquareFeedResponse{Posts: []model.SquarePost{}}, nil
	}

	posts, err := s.posts.GetPostsByIDs(ctx, postIDs, &userID)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}

	resp := &model.SquareFeedResponse{Posts: posts}
	if len(postIDs) == limit {
		last := len(postIDs) - 1
		c := formatFeedCursor(postIDs[last], scores[last])
		resp.NextCursor = &c
		resp.HasMore = true
	}
	return resp, nil
}

func (s *FeedService) fromDatabase(ctx context.Context, userID string, cursor *string, limit int) (*model.SquareFeedResponse, error) {
	authorIDs, err := s.authorIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	scored, err := s.postRepo.GetFeedPostIDs(ctx, authorIDs, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &model.SquareFeedResponse{}
	if len(scored) > limit {
		scored = scored[:limit]
		last := scored[len(scored)-1]
		c := formatFeedCursor(last.PostID, float64(last.Timestamp))
		resp.NextCursor = &c
		resp.HasMore = true
	}

	ids := make([]string, len(scored))
	for i, p := range scored {
		ids[i] = p.PostID
	}
	if resp.Posts, err = s.posts.GetPostsByIDs(ctx, ids, &userID); err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	return resp, nil
}

// warmCache populates the user's feed cache from the database.
func (s *FeedService) warmCache(ctx context.Context, userID string) error {
	startTime := time.Now()

	authorIDs, err := s.authorIDs(ctx, userID)
	if err != nil {
		return err
	}

	posts, err := s.postRepo.GetFeedPostIDs(ctx, authorIDs, nil, CacheWarmLimit)
	if err != nil {
		return fmt.Errorf("get feed post ids: %w", err)
	}
	if len(posts) == 0 {
		log.Printf("[FeedService] No posts to warm for user=%s", userID)
		return nil
	}

	if err := s.feedCache.WarmCache(ctx, userID, posts); err != nil {
		return err
	}

	log.Printf("[FeedService] Cache warmed: user=%s posts=%d duration=%v", userID, len(posts), time.Since(startTime))
	return nil
}

// authorIDs is everyone the user follows plus the user.
func (s *FeedService) authorIDs(ctx context.Context, userID string) ([]string, error) {
	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}
	return append(followeeIDs, userID), nil
}

// parseFeedCursor extracts the millisecond score from an "id:millis" cursor.
func parseFeedCursor(cursor string) (float64, error) {
	i := strings.LastIndex(cursor, ":")
	if i <= 0 || i == len(cursor)-1 {
		return 0, model.ErrInvalidCursor
	}
	millis, err := strconv.ParseInt(cursor[i+1:], 10, 64)
	if err != nil {
		return 0, model.ErrInvalidCursor
	}
	return float64(millis), nil
}

func formatFeedCursor(postID string, score float64) string {
	return fmt.Sprintf("%s:%.0f", postID, score)
}
