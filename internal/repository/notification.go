package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, actor_id, actor_nickname, actor_avatar, type,
	post_id, comment_id, request_id, is_read, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := r.db.Rebind(`
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.ActorID, n.ActorNickname, n.ActorAvatar, n.Type,
		n.PostID, n.CommentID, n.RequestID, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListRecent returns raw rows; grouping likes/comments by post happens in the
// service so the query stays portable between drivers.
func (r *notificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	query := r.db.Rebind(`
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	notifications := []model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkAsRead marks specific notifications as read (only those owned by user).
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID string, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	query, args, err := expandIn(r.db,
		`UPDATE notifications SET is_read = ? WHERE user_id = ? AND id IN (?)`, true, userID, notificationIDs)
	if err != nil {
		return fmt.Errorf("build mark read: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark as read: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	query := r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`)
	if _, err := r.db.ExecContext(ctx, query, true, userID, false); err != nil {
		return fmt.Errorf("mark all as read: %w", err)
	}
	return nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`)
	if err := r.db.GetContext(ctx, &count, query, userID, false); err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) DeleteByPost(ctx context.Context, q database.Querier, postID string) error {
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM notifications WHERE post_id = ?`), postID); err != nil {
		return fmt.Errorf("delete post notifications: %w", err)
	}
	return nil
}
