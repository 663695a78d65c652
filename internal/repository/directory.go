package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

type directoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) Upsert(ctx context.Context, q database.Querier, e *model.DirectoryEntry) error {
	query := q.Rebind(`
		INSERT INTO user_directory (user_id, nickname, avatar, phone, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			nickname = CASE WHEN excluded.nickname <> '' THEN excluded.nickname ELSE user_directory.nickname END,
			avatar = COALESCE(excluded.avatar, user_directory.avatar),
			phone = COALESCE(excluded.phone, user_directory.phone),
			updated_at = excluded.updated_at
	`)
	if _, err := q.ExecContext(ctx, query, e.UserID, e.Nickname, e.Avatar, e.Phone, e.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert directory entry: %w", err)
	}
	return nil
}

func (r *directoryRepository) UpdateNickname(ctx context.Context, q database.Querier, userID, nickname string, at model.Timestamp) error {
	return r.Upsert(ctx, q, &model.DirectoryEntry{UserID: userID, Nickname: nickname, UpdatedAt: at})
}

func (r *directoryRepository) GetByID(ctx context.Context, userID string) (*model.DirectoryEntry, error) {
	var e model.DirectoryEntry
	query := r.db.Rebind(`SELECT user_id, nickname, avatar, phone, updated_at FROM user_directory WHERE user_id = ?`)
	err := r.db.GetContext(ctx, &e, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get directory entry: %w", err)
	}
	return &e, nil
}

func (r *directoryRepository) GetByIDs(ctx context.Context, userIDs []string) (map[string]model.DirectoryEntry, error) {
	result := make(map[string]model.DirectoryEntry, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query, args, err := expandIn(r.db, `
		SELECT user_id, nickname, avatar, phone, updated_at
		FROM user_directory WHERE user_id IN (?)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory query: %w", err)
	}

	var entries []model.DirectoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get directory entries: %w", err)
	}
	for _, e := range entries {
		result[e.UserID] = e
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches nicknames case-insensitively by substring. Wildcards in
// the query match literally.
func (r *directoryRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
	sqlQuery := r.db.Rebind(`
		SELECT user_id, nickname, avatar
		FROM user_directory
		WHERE LOWER(nickname) LIKE ? ESCAPE '\'
		ORDER BY nickname
		LIMIT ?
	`)

	users := []model.UserSummary{}
	if err := r.db.SelectContext(ctx, &users, sqlQuery, pattern, limit); err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// GetStats counts edges and posts directly so the numbers cannot drift.
func (r *directoryRepository) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	query := r.db.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM follows WHERE follower_id = ?) AS following_count,
			(SELECT COUNT(*) FROM follows WHERE followee_id = ?) AS followers_count,
			(SELECT COUNT(*) FROM friendships WHERE user_a = ? OR user_b = ?) AS friends_count,
			(SELECT COUNT(*) FROM square_posts WHERE user_id = ?) AS posts_count,
			(SELECT COUNT(*) FROM post_likes l JOIN square_posts p ON p.id = l.post_id WHERE p.user_id = ?) AS likes_received
	`)

	var stats model.UserStats
	if err := r.db.GetContext(ctx, &stats, query, userID, userID, userID, userID, userID, userID); err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}
