package service

import (
	"context"
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

type CommentService struct {
	commentRepo   repository.CommentRepository
	postRepo      repository.PostRepository
	directoryRepo repository.DirectoryRepository
	db            *sqlx.DB
	publisher     queue.Publisher

	now func() time.Time
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	directoryRepo repository.DirectoryRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo:   commentRepo,
		postRepo:      postRepo,
		directoryRepo: directoryRepo,
		db:            db,
		publisher:     publisher,
		now:           time.Now,
	}
}

// AddComment appends a comment. When ReplyToCommentID is set the reply
// target's author and nickname are copied from that comment, which must be on
// the same post.
func (s *CommentService) AddComment(ctx context.Context, postID, userID string, req model.AddCommentRequest) (*model.SquareComment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	if len([]rune(content)) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	nickname := strings.TrimSpace(req.Nickname)
	avatar := req.Avatar
	if nickname == "" {
		actor := directoryActor(ctx, s.directoryRepo, userID)
		nickname = actor.Nickname
		if avatar == nil {
			avatar = actor.Avatar
		}
	}

	now := model.At(s.now())
	comment := &model.SquareComment{
		ID:           uuid.NewString(),
		PostID:       postID,
		UserID:       userID,
		UserNickname: nickname,
		UserAvatar:   avatar,
		Content:      content,
		CreatedAt:    now,
	}

	var post *model.SquarePost
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		post, err = s.postRepo.GetByID(ctx, tx, postID)
		if err != nil {
			return err
		}

		if req.ReplyToCommentID != nil && *req.ReplyToCommentID != "" {
			target, err := s.commentRepo.GetByID(ctx, tx, *req.ReplyToCommentID)
			if err != nil {
				return err
			}
			if target.PostID != postID {
				return model.ErrCommentNotFound
			}
			comment.ReplyToCommentID = &target.ID
			comment.ReplyToUserID = &target.UserID
			comment.ReplyToNickname = &target.UserNickname
		}

		if err := s.commentRepo.Create(ctx, tx, comment); err != nil {
			return err
		}

		if nickname == "" {
			return nil
		}
		return s.directoryRepo.Upsert(ctx, tx, &model.DirectoryEntry{
			UserID: userID, Nickname: nickname, Avatar: avatar, UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	log.Printf("[CommentService] AddComment OK: post=%s comment=%s user=%s", postID, comment.ID, userID)

	actor := queue.Actor{ID: userID, Nickname: nickname, Avatar: avatar}
	publish(ctx, s.publisher, "CommentService", queue.NewPostCommentedEvent(postID, comment.ID, actor, post.UserID))

	return comment, nil
}

// DeleteComment is allowed for the comment's author and the post's author.
// A pinned comment is unpinned in the same transaction.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID string) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		comment, err := s.commentRepo.GetByID(ctx, tx, commentID)
		if err != nil {
			return err
		}
		post, err := s.postRepo.GetByID(ctx, tx, comment.PostID)
		if err != nil {
			return err
		}
		if comment.UserID != userID && post.UserID != userID {
			return model.ErrNotCommentOwner
		}

		if err := s.commentRepo.Delete(ctx, tx, commentID); err != nil {
			return err
		}
		if post.PinnedCommentID != nil && *post.PinnedCommentID == commentID {
			return s.postRepo.SetPinnedComment(ctx, tx, post.ID, nil)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	log.Printf("[CommentService] DeleteComment OK: comment=%s user=%s", commentID, userID)
	return nil
}

// PinComment toggles the post's pinned comment. Pinning the comment that is
// already pinned unpins it.
func (s *CommentService) PinComment(ctx context.Context, postID, commentID, userID string) (*model.PinResult, error) {
	result := &model.PinResult{}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		post, err := s.postRepo.GetByID(ctx, tx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return model.ErrNotPostOwner
		}

		comment, err := s.commentRepo.GetByID(ctx, tx, commentID)
		if err != nil {
			return err
		}
		if comment.PostID != postID {
			return model.ErrCommentNotFound
		}

		if post.PinnedCommentID == nil || *post.PinnedCommentID != commentID {
			result.PinnedCommentID = &comment.ID
		}
		return s.postRepo.SetPinnedComment(ctx, tx, postID, result.PinnedCommentID)
	})
	if err != nil {
		return nil, fmt.Errorf("pin comment: %w", err)
	}

	log.Printf("[CommentService] PinComment OK: post=%s pinned=%v", postID, result.PinnedCommentID != nil)
	return result, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID string) ([]model.SquareComment, error) {
	if _, err := s.postRepo.GetByID(ctx, s.db, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}
