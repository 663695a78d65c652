package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentColumns = `id, post_id, user_id, user_nickname, user_avatar, content,
	reply_to_comment_id, reply_to_user_id, reply_to_nickname, created_at`

func (r *commentRepository) Create(ctx context.Context, q database.Querier, c *model.SquareComment) error {
	query := q.Rebind(`
		INSERT INTO square_comments (` + commentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		c.ID, c.PostID, c.UserID, c.UserNickname, c.UserAvatar, c.Content,
		c.ReplyToCommentID, c.ReplyToUserID, c.ReplyToNickname, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, q database.Querier, commentID string) (*model.SquareComment, error) {
	var c model.SquareComment
	err := q.GetContext(ctx, &c, q.Rebind(`SELECT `+commentColumns+` FROM square_comments WHERE id = ?`), commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

// ListByPost returns comments oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]model.SquareComment, error) {
	comments := []model.SquareComment{}
	query := r.db.Rebind(`SELECT ` + commentColumns + ` FROM square_comments WHERE post_id = ? ORDER BY created_at, id`)
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *commentRepository) ListByPosts(ctx context.Context, postIDs []string) (map[string][]model.SquareComment, error) {
	result := make(map[string][]model.SquareComment, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	query, args, err := expandIn(r.db,
		`SELECT `+commentColumns+` FROM square_comments WHERE post_id IN (?) ORDER BY created_at, id`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build comments query: %w", err)
	}

	var comments []model.SquareComment
	if err := r.db.SelectContext(ctx, &comments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	for _, c := range comments {
		result[c.PostID] = append(result[c.PostID], c)
	}
	return result, nil
}

func (r *commentRepository) Delete(ctx context.Context, q database.Querier, commentID string) error {
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM square_comments WHERE id = ?`), commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return err
	}
	if !changed {
		return model.ErrCommentNotFound
	}
	return nil
}

func (r *commentRepository) UpdateAuthorNickname(ctx context.Context, q database.Querier, userID, nickname string) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE square_comments SET user_nickname = ? WHERE user_id = ?`), nickname, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update comment nicknames: %w", err)
	}
	return res.RowsAffected()
}

func (r *commentRepository) UpdateReplyNickname(ctx context.Context, q database.Querier, userID, nickname string) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE square_comments SET reply_to_nickname = ? WHERE reply_to_user_id = ?`), nickname, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update reply nicknames: %w", err)
	}
	return res.RowsAffected()
}
