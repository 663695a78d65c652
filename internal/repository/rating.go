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

type ratingRepository struct {
	db *sqlx.DB
}

func NewRatingRepository(db *sqlx.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert keeps one rating per user per post; the latest score wins.
func (r *ratingRepository) Upsert(ctx context.Context, q database.Querier, rating *model.UserRating) error {
	query := q.Rebind(`
		INSERT INTO post_ratings (post_id, user_id, score, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (post_id, user_id) DO UPDATE SET
			score = excluded.score,
			created_at = excluded.created_at
	`)
	if _, err := q.ExecContext(ctx, query, rating.PostID, rating.UserID, rating.Score, rating.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

func (r *ratingRepository) Delete(ctx context.Context, q database.Querier, postID, userID string) (bool, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM post_ratings WHERE post_id = ? AND user_id = ?`), postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete rating: %w", err)
	}
	return rowsChanged(res)
}

// Get returns nil when the user has not rated the post.
func (r *ratingRepository) Get(ctx context.Context, postID, userID string) (*model.UserRating, error) {
	var rating model.UserRating
	query := r.db.Rebind(`SELECT post_id, user_id, score, created_at FROM post_ratings WHERE post_id = ? AND user_id = ?`)
	err := r.db.GetContext(ctx, &rating, query, postID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return &rating, nil
}

func (r *ratingRepository) ListByPost(ctx context.Context, postID string) ([]model.UserRating, error) {
	ratings := []model.UserRating{}
	query := r.db.Rebind(`SELECT post_id, user_id, score, created_at FROM post_ratings WHERE post_id = ? ORDER BY created_at, user_id`)
	if err := r.db.SelectContext(ctx, &ratings, query, postID); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}

func (r *ratingRepository) ListByPosts(ctx context.Context, postIDs []string) (map[string][]model.UserRating, error) {
	result := make(map[string][]model.UserRating, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	query, args, err := expandIn(r.db,
		`SELECT post_id, user_id, score, created_at FROM post_ratings WHERE post_id IN (?) ORDER BY created_at, user_id`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build ratings query: %w", err)
	}

	var ratings []model.UserRating
	if err := r.db.SelectContext(ctx, &ratings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	for _, rating := range ratings {
		result[rating.PostID] = append(result[rating.PostID], rating)
	}
	return result, nil
}
