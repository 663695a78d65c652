package repository

import (
	"context"

	"outfitsquare/internal/cache"
	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

// Methods taking a database.Querier can run inside a service transaction
// (pass the *sqlx.Tx) or standalone (pass the *sqlx.DB).

type DirectoryRepository interface {
	// Upsert creates or refreshes an entry. Empty nickname and nil avatar/phone
	// keep the stored values.
	Upsert(ctx context.Context, q database.Querier, entry *model.DirectoryEntry) error
	UpdateNickname(ctx context.Context, q database.Querier, userID, nickname string, at model.Timestamp) error
	GetByID(ctx context.Context, userID string) (*model.DirectoryEntry, error)
	GetByIDs(ctx context.Context, userIDs []string) (map[string]model.DirectoryEntry, error)
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	GetStats(ctx context.Context, userID string) (*model.UserStats, error)
}

type FriendRepository interface {
	CreateRequest(ctx context.Context, q database.Querier, req *model.FriendRequest) error
	GetRequest(ctx context.Context, q database.Querier, requestID string) (*model.FriendRequest, error)
	// FindPendingBetween returns the pending request in either direction, or nil.
	FindPendingBetween(ctx context.Context, q database.Querier, userA, userB string) (*model.FriendRequest, error)
	// ResolveRequest moves a pending request to status; false if it was not pending.
	ResolveRequest(ctx context.Context, q database.Querier, requestID, status string, at model.Timestamp) (bool, error)
	ListIncoming(ctx context.Context, userID string) ([]model.FriendRequest, error)
	ListOutgoing(ctx context.Context, userID string) ([]model.FriendRequest, error)

	CreateFriendship(ctx context.Context, q database.Querier, userA, userB string, at model.Timestamp) (bool, error)
	DeleteFriendship(ctx context.Context, q database.Querier, userA, userB string) (bool, error)
	AreFriends(ctx context.Context, q database.Querier, userA, userB string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]model.Friend, error)
}

type FollowRepository interface {
	Create(ctx context.Context, q database.Querier, followerID, followeeID string, at model.Timestamp) (bool, error)
	Delete(ctx context.Context, q database.Querier, followerID, followeeID string) error
	Exists(ctx context.Context, followerID, followeeID string) (bool, error)
	GetFollowers(ctx context.Context, userID string, cursor *string, limit int) ([]model.UserSummary, *string, error)
	GetFollowing(ctx context.Context, userID string, cursor *string, limit int) ([]model.UserSummary, *string, error)
	CheckFollows(ctx context.Context, followerID string, followeeIDs []string) (map[string]bool, error)
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)
	GetFolloweeIDs(ctx context.Context, userID string) ([]string, error)
}

type PrivacyRepository interface {
	// Get returns nil when the user never saved settings.
	Get(ctx context.Context, userID string) (*model.FriendPrivacySettings, error)
	Upsert(ctx context.Context, settings *model.FriendPrivacySettings) error
}

type HistoryRepository interface {
	Create(ctx context.Context, q database.Querier, rec *model.HistoryRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.HistoryRecord, error)
	Delete(ctx context.Context, recordID, userID string) error
}

type PostRepository interface {
	// Create inserts the post; false when (user_id, outfit_change_id) already exists.
	Create(ctx context.Context, q database.Querier, post *model.SquarePost) (bool, error)
	GetByID(ctx context.Context, q database.Querier, postID string) (*model.SquarePost, error)
	GetBySource(ctx context.Context, q database.Querier, userID, outfitChangeID string) (*model.SquarePost, error)
	GetByIDs(ctx context.Context, postIDs []string) ([]model.SquarePost, error)
	List(ctx context.Context, cursor *string, limit int) ([]model.SquarePost, *string, error)
	ListByUser(ctx context.Context, userID string, cursor *string, limit int) ([]model.SquarePost, *string, error)
	// Delete removes the post with its likes, comments and ratings.
	Delete(ctx context.Context, q database.Querier, postID string) error
	SetPinnedComment(ctx context.Context, q database.Querier, postID string, commentID *string) error
	UpdateAuthorNickname(ctx context.Context, q database.Querier, userID, nickname string) (int64, error)

	Like(ctx context.Context, q database.Querier, postID, userID string, at model.Timestamp) (bool, error)
	Unlike(ctx context.Context, q database.Querier, postID, userID string) (bool, error)
	GetLikes(ctx context.Context, q database.Querier, postID string) ([]string, error)
	GetLikesForPosts(ctx context.Context, postIDs []string) (map[string][]string, error)

	// Feed cache helpers
	GetRecentPostsByUser(ctx context.Context, userID string, limit int) ([]cache.PostScore, error)
	GetFeedPostIDs(ctx context.Context, authorIDs []string, cursor *string, limit int) ([]cache.PostScore, error)
}

type CommentRepository interface {
	Create(ctx context.Context, q database.Querier, c *model.SquareComment) error
	GetByID(ctx context.Context, q database.Querier, commentID string) (*model.SquareComment, error)
	ListByPost(ctx context.Context, postID string) ([]model.SquareComment, error)
	ListByPosts(ctx context.Context, postIDs []string) (map[string][]model.SquareComment, error)
	Delete(ctx context.Context, q database.Querier, commentID string) error
	UpdateAuthorNickname(ctx context.Context, q database.Querier, userID, nickname string) (int64, error)
	UpdateReplyNickname(ctx context.Context, q database.Querier, userID, nickname string) (int64, error)
}

type RatingRepository interface {
	Upsert(ctx context.Context, q database.Querier, rating *model.UserRating) error
	Delete(ctx context.Context, q database.Querier, postID, userID string) (bool, error)
	Get(ctx context.Context, postID, userID string) (*model.UserRating, error)
	ListByPost(ctx context.Context, postID string) ([]model.UserRating, error)
	ListByPosts(ctx context.Context, postIDs []string) (map[string][]model.UserRating, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListRecent returns the newest notifications for a user.
	ListRecent(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, userID string, notificationIDs []string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	DeleteByPost(ctx context.Context, q database.Querier, postID string) error
}

type DeviceTokenRepository interface {
	// Upsert creates or reassigns a device token to a user
	Upsert(ctx context.Context, userID, token, platform string) error
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	Delete(ctx context.Context, userID, token string) error
}
