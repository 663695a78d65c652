package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
	"outfitsquare/internal/queue"
	"outfitsquare/internal/repository"
)

// PostService owns square posts together with their likes and ratings.
type PostService struct {
	postRepo      repository.PostRepository
	commentRepo   repository.CommentRepository
	ratingRepo    repository.RatingRepository
	directoryRepo repository.DirectoryRepository
	notifRepo     repository.NotificationRepository
	db            *sqlx.DB
	publisher     queue.Publisher

	now func() time.Time
}

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	ratingRepo repository.RatingRepository,
	directoryRepo repository.DirectoryRepository,
	notifRepo repository.NotificationRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		commentRepo:   commentRepo,
		ratingRepo:    ratingRepo,
		directoryRepo: directoryRepo,
		notifRepo:     notifRepo,
		db:            db,
		publisher:     publisher,
		now:           time.Now,
	}
}

func validatePublish(req *model.PublishPostRequest) error {
	if req.PostType == "" {
		req.PostType = model.PostTypeOutfitChange
	}
	if !model.IsValidPostType(req.PostType) {
		return model.ErrInvalidPostType
	}
	if isBlank(req.OutfitChangeID) {
		req.OutfitChangeID = nil
	}
	if req.PostType == model.PostTypeOutfitChange && req.OutfitChangeID == nil {
		return model.ErrOutfitChangeMissing
	}
	if isBlank(req.ResultImageURI) && isBlank(req.OriginalImageURI) {
		return model.ErrImageRequired
	}
	if req.Description != nil && len([]rune(*req.Description)) > model.MaxDescriptionLength {
		return model.ErrDescriptionTooLong
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// PublishPost creates a post, or returns the existing one when the author has
// already published the same outfit change.
func (s *PostService) PublishPost(ctx context.Context, userID string, req model.PublishPostRequest) (*model.PublishResult, error) {
	if err := validatePublish(&req); err != nil {
		return nil, err
	}

	nickname, avatar, err := s.authorDisplay(ctx, userID, req.Nickname, req.Avatar)
	if err != nil {
		return nil, err
	}

	now := model.At(s.now())
	post := &model.SquarePost{
		ID:               uuid.NewString(),
		UserID:           userID,
		UserNickname:     nickname,
		UserAvatar:       avatar,
		PostType:         req.PostType,
		OutfitChangeID:   req.OutfitChangeID,
		OriginalImageURI: req.OriginalImageURI,
		ResultImageURI:   req.ResultImageURI,
		TemplateName:     req.TemplateName,
		Description:      req.Description,
		CreatedAt:        now,
	}

	result := &model.PublishResult{PostID: post.ID, Created: true}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if req.OutfitChangeID != nil {
			existing, err := s.postRepo.GetBySource(ctx, tx, userID, *req.OutfitChangeID)
			if err == nil {
				result.PostID, result.Created = existing.ID, false
				return nil
			}
			if !errors.Is(err, model.ErrPostNotFound) {
				return err
			}
		}

		inserted, err := s.postRepo.Create(ctx, tx, post)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := s.postRepo.GetBySource(ctx, tx, userID, *req.OutfitChangeID)
			if err != nil {
				return err
			}
			result.PostID, result.Created = existing.ID, false
			return nil
		}

		return s.directoryRepo.Upsert(ctx, tx, &model.DirectoryEntry{
			UserID: userID, Nickname: nickname, Avatar: avatar, UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}

	if !result.Created {
		log.Printf("[PostService] PublishPost: already published user=%s post=%s", userID, result.PostID)
		return result, nil
	}

	log.Printf("[PostService] PublishPost OK: user=%s post=%s type=%s", userID, post.ID, post.PostType)
	publish(ctx, s.publisher, "PostService", queue.NewPostPublishedEvent(post.ID, userID, now.Millis()))

	return result, nil
}

// authorDisplay falls back to the directory when the request carries no nickname.
func (s *PostService) authorDisplay(ctx context.Context, userID, nickname string, avatar *string) (string, *string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname != "" {
		n, err := model.NormalizeNickname(nickname)
		return n, avatar, err
	}

	entry, err := s.directoryRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", nil, model.ErrNicknameRequired
		}
		return "", nil, err
	}
	if avatar == nil {
		avatar = entry.Avatar
	}
	return entry.Nickname, avatar, nil
}

// LikePost toggles the caller's like and returns the resulting like set.
func (s *PostService) LikePost(ctx context.Context, postID, userID string) (*model.LikeResult, error) {
	var (
		post   *model.SquarePost
		result = &model.LikeResult{}
	)

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		post, err = s.postRepo.GetByID(ctx, tx, postID)
		if err != nil {
			return err
		}

		removed, err := s.postRepo.Unlike(ctx, tx, postID, userID)
		if err != nil {
			return err
		}
		if !removed {
			if _, err := s.postRepo.Like(ctx, tx, postID, userID, model.At(s.now())); err != nil {
				return err
			}
			result.Liked = true
		}

		result.Likes, err = s.postRepo.GetLikes(ctx, tx, postID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("like post: %w", err)
	}

	result.LikeCount = len(result.Likes)
	log.Printf("[PostService] LikePost OK: post=%s user=%s liked=%t count=%d", postID, userID, result.Liked, result.LikeCount)

	if result.Liked {
		publish(ctx, s.publisher, "PostService",
			queue.NewPostLikedEvent(postID, directoryActor(ctx, s.directoryRepo, userID), post.UserID))
	}
	return result, nil
}

// =============================================================================
// Ratings
// =============================================================================

// RatePost stores the caller's score; re-rating replaces it.
func (s *PostService) RatePost(ctx context.Context, postID, userID string, score int) (*model.RatingSummary, error) {
	if score < model.MinRatingScore || score > model.MaxRatingScore {
		return nil, model.ErrInvalidScore
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.postRepo.GetByID(ctx, tx, postID); err != nil {
			return err
		}
		return s.ratingRepo.Upsert(ctx, tx, &model.UserRating{
			PostID: postID, UserID: userID, Score: score, CreatedAt: model.At(s.now()),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("rate post: %w", err)
	}

	log.Printf("[PostService] RatePost OK: post=%s user=%s score=%d", postID, userID, score)
	return s.GetRatingSummary(ctx, postID, &userID)
}

// RemoveRating deletes the caller's rating. It reports whether one existed.
func (s *PostService) RemoveRating(ctx context.Context, postID, userID string) (bool, error) {
	var removed bool
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		removed, err = s.ratingRepo.Delete(ctx, tx, postID, userID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("remove rating: %w", err)
	}
	return removed, nil
}

// GetUserRating returns nil when the user has not rated the post.
func (s *PostService) GetUserRating(ctx context.Context, postID, userID string) (*model.UserRating, error) {
	return s.ratingRepo.Get(ctx, postID, userID)
}

// GetAverageUserRating is the plain mean over current ratings, 0 when none.
func (s *PostService) GetAverageUserRating(ctx context.Context, postID string) (float64, int, error) {
	ratings, err := s.ratingRepo.ListByPost(ctx, postID)
	if err != nil {
		return 0, 0, err
	}
	return model.AverageRating(ratings), len(ratings), nil
}

func (s *PostService) GetRatingSummary(ctx context.Context, postID string, viewerID *string) (*model.RatingSummary, error) {
	avg, count, err := s.GetAverageUserRating(ctx, postID)
	if err != nil {
		return nil, err
	}

	summary := &model.RatingSummary{Average: avg, Count: count}
	if viewerID != nil {
		own, err := s.ratingRepo.Get(ctx, postID, *viewerID)
		if err != nil {
			return nil, err
		}
		if own != nil {
			score := own.Score
			summary.UserScore = &score
		}
	}
	return summary, nil
}

// =============================================================================
// Nickname propagation
// =============================================================================

// UpdateUserNickname rewrites every denormalized copy of the user's nickname
// and the directory entry in one transaction.
func (s *PostService) UpdateUserNickname(ctx context.Context, userID, nickname string) (*model.NicknameUpdateResult, error) {
	var result *model.NicknameUpdateResult
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.RenameUserInTx(ctx, tx, userID, nickname)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update nickname: %w", err)
	}

	log.Printf("[PostService] UpdateUserNickname OK: user=%s posts=%d comments=%d replies=%d",
		userID, result.PostsUpdated, result.CommentsUpdated, result.RepliesUpdated)
	return result, nil
}

// RenameUserInTx is UpdateUserNickname inside a caller-owned transaction.
func (s *PostService) RenameUserInTx(ctx context.Context, tx *sqlx.Tx, userID, nickname string) (*model.NicknameUpdateResult, error) {
	nickname, err := model.NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	result := &model.NicknameUpdateResult{Nickname: nickname}
	if result.PostsUpdated, err = s.postRepo.UpdateAuthorNickname(ctx, tx, userID, nickname); err != nil {
		return nil, err
	}
	if result.CommentsUpdated, err = s.commentRepo.UpdateAuthorNickname(ctx, tx, userID, nickname); err != nil {
		return nil, err
	}
	if result.RepliesUpdated, err = s.commentRepo.UpdateReplyNickname(ctx, tx, userID, nickname); err != nil {
		return nil, err
	}
	if err := s.directoryRepo.UpdateNickname(ctx, tx, userID, nickname, model.At(s.now())); err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// Deletion
// =============================================================================

// DeletePost removes an owned post with its likes, comments, ratings and
// notifications.
func (s *PostService) DeletePost(ctx context.Context, postID, userID string) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		post, err := s.postRepo.GetByID(ctx, tx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return model.ErrNotPostOwner
		}
		return s.deleteInTx(ctx, tx, postID)
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	log.Printf("[PostService] DeletePost OK: post=%s user=%s", postID, userID)
	publish(ctx, s.publisher, "PostService", queue.NewPostDeletedEvent(postID, userID))
	return nil
}

// DeletePostByOutfitChangeID removes the caller's post published from the
// given outfit change and returns its ID.
func (s *PostService) DeletePostByOutfitChangeID(ctx context.Context, outfitChangeID, userID string) (string, error) {
	var postID string
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		post, err := s.postRepo.GetBySource(ctx, tx, userID, outfitChangeID)
		if err != nil {
			return err
		}
		postID = post.ID
		return s.deleteInTx(ctx, tx, postID)
	})
	if err != nil {
		return "", fmt.Errorf("delete post by source: %w", err)
	}

	log.Printf("[PostService] DeletePostByOutfitChangeID OK: source=%s post=%s", outfitChangeID, postID)
	publish(ctx, s.publisher, "PostService", queue.NewPostDeletedEvent(postID, userID))
	return postID, nil
}

func (s *PostService) deleteInTx(ctx context.Context, tx *sqlx.Tx, postID string) error {
	if s.notifRepo != nil {
		if err := s.notifRepo.DeleteByPost(ctx, tx, postID); err != nil {
			return err
		}
	}
	return s.postRepo.Delete(ctx, tx, postID)
}

// =============================================================================
// Reads
// =============================================================================

// GetPost returns a post with likes, comments and ratings attached.
func (s *PostService) GetPost(ctx context.Context, postID string, viewerID *string) (*model.SquarePost, error) {
	post, err := s.postRepo.GetByID(ctx, s.db, postID)
	if err != nil {
		return nil, err
	}

	posts := []model.SquarePost{*post}
	if err := s.hydrate(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListSquare is the global newest-first feed.
func (s *PostService) ListSquare(ctx context.Context, cursor *string, limit int, viewerID *string) (*model.SquareFeedResponse, error) {
	posts, next, err := s.postRepo.List(ctx, cursor, pageLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.page(ctx, posts, next, viewerID)
}

func (s *PostService) ListUserPosts(ctx context.Context, userID string, cursor *string, limit int, viewerID *string) (*model.SquareFeedResponse, error) {
	posts, next, err := s.postRepo.ListByUser(ctx, userID, cursor, pageLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.page(ctx, posts, next, viewerID)
}

// GetPostsByIDs hydrates posts in the order given, skipping IDs that no
// longer exist.
func (s *PostService) GetPostsByIDs(ctx context.Context, postIDs []string, viewerID *string) ([]model.SquarePost, error) {
	if len(postIDs) == 0 {
		return []model.SquarePost{}, nil
	}

	found, err := s.postRepo.GetByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.SquarePost, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]model.SquarePost, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}

	if err := s.hydrate(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) page(ctx context.Context, posts []model.SquarePost, next *string, viewerID *string) (*model.SquareFeedResponse, error) {
	if err := s.hydrate(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return &model.SquareFeedResponse{Posts: posts, NextCursor: next, HasMore: next != nil}, nil
}

// hydrate batch-loads the child rows for a page of posts.
func (s *PostService) hydrate(ctx context.Context, posts []model.SquarePost, viewerID *string) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	likes, err := s.postRepo.GetLikesForPosts(ctx, ids)
	if err != nil {
		return err
	}
	comments, err := s.commentRepo.ListByPosts(ctx, ids)
	if err != nil {
		return err
	}
	ratings, err := s.ratingRepo.ListByPosts(ctx, ids)
	if err != nil {
		return err
	}

	for i := range posts {
		p := &posts[i]
		p.Likes = orEmpty(likes[p.ID])
		p.Comments = orEmpty(comments[p.ID])
		p.UserRatings = orEmpty(ratings[p.ID])
		p.AverageRating = model.AverageRating(p.UserRatings)
		if viewerID != nil {
			for _, uid := range p.Likes {
				if uid == *viewerID {
					p.IsLiked = true
					break
				}
			}
		}
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// directoryActor resolves display fields for event payloads. A missing
// directory entry only leaves the nickname empty.
func directoryActor(ctx context.Context, repo repository.DirectoryRepository, userID string) queue.Actor {
	a := queue.Actor{ID: userID}
	entry, err := repo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			log.Printf("[Directory] Lookup failed: user=%s err=%v", userID, err)
		}
		return a
	}
	a.Nickname = entry.Nickname
	a.Avatar = entry.Avatar
	return a
}
