package model

// Notification types
const (
	NotificationTypeFollow         = "follow"
	NotificationTypeLike           = "like"
	NotificationTypeComment        = "comment"
	NotificationTypeFriendRequest  = "friend_request"
	NotificationTypeFriendAccepted = "friend_accepted"
)

// Notification represents a single notification record in the database.
type Notification struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"-"` // Recipient
	ActorID       string    `db:"actor_id" json:"actor_id"`
	ActorNickname string    `db:"actor_nickname" json:"actor_nickname"`
	ActorAvatar   *string   `db:"actor_avatar" json:"actor_avatar"`
	Type          string    `db:"type" json:"type"`
	PostID        *string   `db:"post_id" json:"post_id,omitempty"`
	CommentID     *string   `db:"comment_id" json:"comment_id,omitempty"`
	RequestID     *string   `db:"request_id" json:"request_id,omitempty"`
	IsRead        bool      `db:"is_read" json:"is_read"`
	CreatedAt     Timestamp `db:"created_at" json:"created_at"`
}

// AggregatedNotification groups likes/comments on the same post.
type AggregatedNotification struct {
	Type       string        `json:"type"`
	PostID     string        `json:"post_id"`
	Actors     []UserSummary `json:"actors"` // First 3 actors, newest first
	TotalCount int           `json:"total_count"`
	LatestAt   Timestamp     `json:"latest_at"`
	IsRead     bool          `json:"is_read"` // True if ALL in group are read
}

// NotificationListResponse is the notification list response.
type NotificationListResponse struct {
	// Follows and friend events are shown individually
	Individual []Notification `json:"individual"`
	// Likes and comments are aggregated by post
	Aggregated  []AggregatedNotification `json:"aggregated"`
	UnreadCount int                      `json:"unread_count"`
}

// MarkReadRequest is the request body for marking notifications as read.
type MarkReadRequest struct {
	NotificationIDs []string `json:"notification_ids"`
}

const (
	MaxAggregatedActors   = 3
	NotificationListLimit = 200
)
