package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/cache"
	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, user_nickname, user_avatar, post_type, outfit_change_id,
	original_image_uri, result_image_uri, template_name, description, pinned_comment_id, created_at`

func (r *postRepository) Create(ctx context.Context, q database.Querier, p *model.SquarePost) (bool, error) {
	query := q.Rebind(`
		INSERT INTO square_posts (` + postColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	res, err := q.ExecContext(ctx, query,
		p.ID, p.UserID, p.UserNickname, p.UserAvatar, p.PostType, p.OutfitChangeID,
		p.OriginalImageURI, p.ResultImageURI, p.TemplateName, p.Description, p.PinnedCommentID, p.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create post: %w", err)
	}
	return rowsChanged(res)
}

func (r *postRepository) GetByID(ctx context.Context, q database.Querier, postID string) (*model.SquarePost, error) {
	return r.getOne(ctx, q, `WHERE id = ?`, postID)
}

func (r *postRepository) GetBySource(ctx context.Context, q database.Querier, userID, outfitChangeID string) (*model.SquarePost, error) {
	return r.getOne(ctx, q, `WHERE user_id = ? AND outfit_change_id = ?`, userID, outfitChangeID)
}

func (r *postRepository) getOne(ctx context.Context, q database.Querier, where string, args ...any) (*model.SquarePost, error) {
	var p model.SquarePost
	err := q.GetContext(ctx, &p, q.Rebind(`SELECT `+postColumns+` FROM square_posts `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &p, nil
}

// GetByIDs returns the posts that still exist, in no particular order.
func (r *postRepository) GetByIDs(ctx context.Context, postIDs []string) ([]model.SquarePost, error) {
	posts := []model.SquarePost{}
	if len(postIDs) == 0 {
		return posts, nil
	}
	query, args, err := expandIn(r.db, `SELECT `+postColumns+` FROM square_posts WHERE id IN (?)`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build post query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	return posts, nil
}

// List returns the whole square newest first.
func (r *postRepository) List(ctx context.Context, cursor *string, limit int) ([]model.SquarePost, *string, error) {
	return r.page(ctx, "", nil, cursor, limit)
}

func (r *postRepository) ListByUser(ctx context.Context, userID string, cursor *string, limit int) ([]model.SquarePost, *string, error) {
	return r.page(ctx, "user_id = ?", []any{userID}, cursor, limit)
}

func (r *postRepository) page(ctx context.Context, filter string, args []any, cursor *string, limit int) ([]model.SquarePost, *string, error) {
	var conds []string
	if filter != "" {
		conds = append(conds, filter)
	}
	if cursor != nil {
		id, ts, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		conds = append(conds, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, ts, ts, id)
	}

	query := `SELECT ` + postColumns + ` FROM square_posts`
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	posts := []model.SquarePost{}
	if err := r.db.SelectContext(ctx, &posts, r.db.Rebind(query), args...); err != nil {
		return nil, nil, fmt.Errorf("failed to list posts: %w", err)
	}

	var nextCursor *string
	if len(posts) > limit {
		posts = posts[:limit]
		last := posts[len(posts)-1]
		c := formatCursor(last.ID, last.CreatedAt.Millis())
		nextCursor = &c
	}
	return posts, nextCursor, nil
}

func (r *postRepository) Delete(ctx context.Context, q database.Querier, postID string) error {
	for _, table := range []string{"post_likes", "post_ratings", "square_comments"} {
		if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM `+table+` WHERE post_id = ?`), postID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM square_posts WHERE id = ?`), postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return err
	}
	if !changed {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) SetPinnedComment(ctx context.Context, q database.Querier, postID string, commentID *string) error {
	query := q.Rebind(`UPDATE square_posts SET pinned_comment_id = ? WHERE id = ?`)
	if _, err := q.ExecContext(ctx, query, commentID, postID); err != nil {
		return fmt.Errorf("failed to set pinned comment: %w", err)
	}
	return nil
}

func (r *postRepository) UpdateAuthorNickname(ctx context.Context, q database.Querier, userID, nickname string) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE square_posts SET user_nickname = ? WHERE user_id = ?`), nickname, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update post nicknames: %w", err)
	}
	return res.RowsAffected()
}

// Like inserts a like; false when the user already liked the post.
func (r *postRepository) Like(ctx context.Context, q database.Querier, postID, userID string, at model.Timestamp) (bool, error) {
	query := q.Rebind(`
		INSERT INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`)
	res, err := q.ExecContext(ctx, query, postID, userID, at)
	if err != nil {
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return rowsChanged(res)
}

// Unlike removes a like; false when there was none.
func (r *postRepository) Unlike(ctx context.Context, q database.Querier, postID, userID string) (bool, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`), postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}
	return rowsChanged(res)
}

// GetLikes returns liker IDs in the order they liked.
func (r *postRepository) GetLikes(ctx context.Context, q database.Querier, postID string) ([]string, error) {
	likes := []string{}
	query := q.Rebind(`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY created_at, user_id`)
	if err := q.SelectContext(ctx, &likes, query, postID); err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}
	return likes, nil
}

func (r *postRepository) GetLikesForPosts(ctx context.Context, postIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	query, args, err := expandIn(r.db, `
		SELECT post_id, user_id FROM post_likes
		WHERE post_id IN (?)
		ORDER BY created_at, user_id
	`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build likes query: %w", err)
	}

	var rows []struct {
		PostID string `db:"post_id"`
		UserID string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}
	for _, row := range rows {
		result[row.PostID] = append(result[row.PostID], row.UserID)
	}
	return result, nil
}

// GetRecentPostsByUser returns recent posts by a user (for follow backfill).
func (r *postRepository) GetRecentPostsByUser(ctx context.Context, userID string, limit int) ([]cache.PostScore, error) {
	query := r.db.Rebind(`
		SELECT id, created_at FROM square_posts
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)
	posts := []cache.PostScore{}
	if err := r.db.SelectContext(ctx, &posts, query, userID, limit); err != nil {
		return nil, fmt.Errorf("get recent posts: %w", err)
	}
	return posts, nil
}

// GetFeedPostIDs returns posts by any of authorIDs, newest first, for cache
// warming and for serving the following feed when no cache is configured.
func (r *postRepository) GetFeedPostIDs(ctx context.Context, authorIDs []string, cursor *string, limit int) ([]cache.PostScore, error) {
	posts := []cache.PostScore{}
	if len(authorIDs) == 0 {
		return posts, nil
	}

	query := `SELECT id, created_at FROM square_posts WHERE user_id IN (?)`
	args := []any{authorIDs}
	if cursor != nil {
		id, ts, err := parseCursor(*cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, ts, ts, id)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	query, args, err := expandIn(r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("get feed post ids: %w", err)
	}
	return posts, nil
}
