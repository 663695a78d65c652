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

type friendRepository struct {
	db *sqlx.DB
}

func NewFriendRepository(db *sqlx.DB) FriendRepository {
	return &friendRepository{db: db}
}

const friendRequestColumns = `id, from_user_id, from_user_nickname, from_user_avatar, to_user_id, status, created_at, responded_at`

func (r *friendRepository) CreateRequest(ctx context.Context, q database.Querier, req *model.FriendRequest) error {
	query := q.Rebind(`
		INSERT INTO friend_requests (` + friendRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		req.ID, req.FromUserID, req.FromUserNickname, req.FromUserAvatar,
		req.ToUserID, req.Status, req.CreatedAt, req.RespondedAt)
	if err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

func (r *friendRepository) GetRequest(ctx context.Context, q database.Querier, requestID string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	query := q.Rebind(`SELECT ` + friendRequestColumns + ` FROM friend_requests WHERE id = ?`)
	err := q.GetContext(ctx, &req, query, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return &req, nil
}

func (r *friendRepository) FindPendingBetween(ctx context.Context, q database.Querier, userA, userB string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	query := q.Rebind(`
		SELECT ` + friendRequestColumns + ` FROM friend_requests
		WHERE status = ?
		  AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))
		LIMIT 1
	`)
	err := q.GetContext(ctx, &req, query, model.RequestStatusPending, userA, userB, userB, userA)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending request: %w", err)
	}
	return &req, nil
}

func (r *friendRepository) ResolveRequest(ctx context.Context, q database.Querier, requestID, status string, at model.Timestamp) (bool, error) {
	query := q.Rebind(`
		UPDATE friend_requests SET status = ?, responded_at = ?
		WHERE id = ? AND status = ?
	`)
	res, err := q.ExecContext(ctx, query, status, at, requestID, model.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve friend request: %w", err)
	}
	return rowsChanged(res)
}

func (r *friendRepository) ListIncoming(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	return r.listPending(ctx, "to_user_id", userID)
}

func (r *friendRepository) ListOutgoing(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	return r.listPending(ctx, "from_user_id", userID)
}

func (r *friendRepository) listPending(ctx context.Context, column, userID string) ([]model.FriendRequest, error) {
	query := r.db.Rebind(`
		SELECT ` + friendRequestColumns + ` FROM friend_requests
		WHERE ` + column + ` = ? AND status = ?
		ORDER BY created_at DESC
	`)
	reqs := []model.FriendRequest{}
	if err := r.db.SelectContext(ctx, &reqs, query, userID, model.RequestStatusPending); err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	return reqs, nil
}

func (r *friendRepository) CreateFriendship(ctx context.Context, q database.Querier, userA, userB string, at model.Timestamp) (bool, error) {
	a, b := model.FriendPair(userA, userB)
	query := q.Rebind(`
		INSERT INTO friendships (user_a, user_b, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_a, user_b) DO NOTHING
	`)
	res, err := q.ExecContext(ctx, query, a, b, at)
	if err != nil {
		return false, fmt.Errorf("failed to create friendship: %w", err)
	}
	return rowsChanged(res)
}

func (r *friendRepository) DeleteFriendship(ctx context.Context, q database.Querier, userA, userB string) (bool, error) {
	a, b := model.FriendPair(userA, userB)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM friendships WHERE user_a = ? AND user_b = ?`), a, b)
	if err != nil {
		return false, fmt.Errorf("failed to delete friendship: %w", err)
	}
	return rowsChanged(res)
}

func (r *friendRepository) AreFriends(ctx context.Context, q database.Querier, userA, userB string) (bool, error) {
	a, b := model.FriendPair(userA, userB)
	var count int
	query := q.Rebind(`SELECT COUNT(*) FROM friendships WHERE user_a = ? AND user_b = ?`)
	if err := q.GetContext(ctx, &count, query, a, b); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return count > 0, nil
}

// ListFriends resolves the other side of every edge touching userID.
func (r *friendRepository) ListFriends(ctx context.Context, userID string) ([]model.Friend, error) {
	query := r.db.Rebind(`
		SELECT f.friend_id AS user_id,
		       COALESCE(d.nickname, '') AS nickname,
		       d.avatar AS avatar,
		       d.phone AS phone,
		       f.created_at AS added_at
		FROM (
			SELECT user_b AS friend_id, created_at FROM friendships WHERE user_a = ?
			UNION ALL
			SELECT user_a AS friend_id, created_at FROM friendships WHERE user_b = ?
		) f
		LEFT JOIN user_directory d ON d.user_id = f.friend_id
		ORDER BY f.created_at DESC
	`)
	friends := []model.Friend{}
	if err := r.db.SelectContext(ctx, &friends, query, userID, userID); err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}
