package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, q database.Querier, followerID, followeeID string, at model.Timestamp) (bool, error) {
	query := q.Rebind(`
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`)
	res, err := q.ExecContext(ctx, query, followerID, followeeID, at)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}
	return rowsChanged(res)
}

func (r *followRepository) Delete(ctx context.Context, q database.Querier, followerID, followeeID string) error {
	query := q.Rebind(`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`)
	res, err := q.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return err
	}
	if !changed {
		return model.ErrNotFollowing
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followee_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, followerID, followeeID); err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return count > 0, nil
}

// GetFollowers lists users following userID, newest first. The cursor is the
// compound "user_id:millis" of the last row returned; limit+1 rows are read to
// detect whether another page exists.
func (r *followRepository) GetFollowers(ctx context.Context, userID string, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	return r.list(ctx, "follower_id", "followee_id", userID, cursor, limit)
}

func (r *followRepository) GetFollowing(ctx context.Context, userID string, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	return r.list(ctx, "followee_id", "follower_id", userID, cursor, limit)
}

func (r *followRepository) list(ctx context.Context, otherCol, selfCol, userID string, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	base := `
		SELECT f.` + otherCol + ` AS user_id,
		       COALESCE(d.nickname, '') AS nickname,
		       d.avatar AS avatar,
		       f.created_at AS created_at
		FROM follows f
		LEFT JOIN user_directory d ON d.user_id = f.` + otherCol + `
		WHERE f.` + selfCol + ` = ?`
	args := []any{userID}

	if cursor != nil {
		cursorID, ts, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		base += ` AND (f.created_at < ? OR (f.created_at = ? AND f.` + otherCol + ` < ?))`
		args = append(args, ts, ts, cursorID)
	}
	base += ` ORDER BY f.created_at DESC, f.` + otherCol + ` DESC LIMIT ?`
	args = append(args, limit+1)

	type userWithTime struct {
		model.UserSummary
		CreatedAt int64 `db:"created_at"`
	}
	var rows []userWithTime
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(base), args...); err != nil {
		return nil, nil, fmt.Errorf("failed to list follows: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.UserID, last.CreatedAt)
		nextCursor = &c
	}

	users := make([]model.UserSummary, len(rows))
	for i, row := range rows {
		users[i] = row.UserSummary
	}
	return users, nextCursor, nil
}

func (r *followRepository) CheckFollows(ctx context.Context, followerID string, followeeIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(followeeIDs))
	if len(followeeIDs) == 0 {
		return result, nil
	}

	query, args, err := expandIn(r.db,
		`SELECT followee_id FROM follows WHERE follower_id = ? AND followee_id IN (?)`,
		followerID, followeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build follow check: %w", err)
	}

	var following []string
	if err := r.db.SelectContext(ctx, &following, query, args...); err != nil {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range following {
		result[id] = true
	}
	return result, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	query := r.db.Rebind(`SELECT follower_id FROM follows WHERE followee_id = ?`)
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	query := r.db.Rebind(`SELECT followee_id FROM follows WHERE follower_id = ?`)
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}
	return ids, nil
}
