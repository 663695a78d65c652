package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/model"
)

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// Upsert creates or updates a device token. A token seen again under another
// user is reassigned, since a device has one signed-in user at a time.
func (r *deviceTokenRepository) Upsert(ctx context.Context, userID, token, platform string) error {
	now := model.Now()
	query := r.db.Rebind(`
		INSERT INTO device_tokens (token, user_id, platform, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET
			user_id = excluded.user_id,
			platform = excluded.platform,
			updated_at = excluded.updated_at
	`)
	if _, err := r.db.ExecContext(ctx, query, token, userID, platform, now, now); err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

func (r *deviceTokenRepository) GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	query := r.db.Rebind(`
		SELECT token, user_id, platform, created_at, updated_at
		FROM device_tokens
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`)
	tokens := []model.DeviceToken{}
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	return tokens, nil
}

func (r *deviceTokenRepository) Delete(ctx context.Context, userID, token string) error {
	query := r.db.Rebind(`DELETE FROM device_tokens WHERE token = ? AND user_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, token, userID); err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}
