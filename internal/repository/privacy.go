package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/model"
)

type privacyRepository struct {
	db *sqlx.DB
}

func NewPrivacyRepository(db *sqlx.DB) PrivacyRepository {
	return &privacyRepository{db: db}
}

func (r *privacyRepository) Get(ctx context.Context, userID string) (*model.FriendPrivacySettings, error) {
	var s model.FriendPrivacySettings
	query := r.db.Rebind(`
		SELECT user_id, allow_friends_view_history, history_visibility, history_time_range, updated_at
		FROM privacy_settings WHERE user_id = ?
	`)
	err := r.db.GetContext(ctx, &s, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get privacy settings: %w", err)
	}
	return &s, nil
}

func (r *privacyRepository) Upsert(ctx context.Context, s *model.FriendPrivacySettings) error {
	query := r.db.Rebind(`
		INSERT INTO privacy_settings (user_id, allow_friends_view_history, history_visibility, history_time_range, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			allow_friends_view_history = excluded.allow_friends_view_history,
			history_visibility = excluded.history_visibility,
			history_time_range = excluded.history_time_range,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.AllowFriendsViewHistory, s.HistoryVisibility, s.HistoryTimeRange, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert privacy settings: %w", err)
	}
	return nil
}
