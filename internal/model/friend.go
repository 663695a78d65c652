package model

import "errors"

// Friend request statuses. A request leaves "pending" exactly once.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// FriendRequest is a directed request between two users.
type FriendRequest struct {
	ID               string     `db:"id" json:"id"`
	FromUserID       string     `db:"from_user_id" json:"from_user_id"`
	FromUserNickname string     `db:"from_user_nickname" json:"from_user_nickname"`
	FromUserAvatar   *string    `db:"from_user_avatar" json:"from_user_avatar"`
	ToUserID         string     `db:"to_user_id" json:"to_user_id"`
	Status           string     `db:"status" json:"status"`
	CreatedAt        Timestamp  `db:"created_at" json:"created_at"`
	RespondedAt      *Timestamp `db:"responded_at" json:"responded_at,omitempty"`
}

// Friendship is the single stored edge for an unordered pair (UserA < UserB).
type Friendship struct {
	UserA     string    `db:"user_a" json:"user_a"`
	UserB     string    `db:"user_b" json:"user_b"`
	CreatedAt Timestamp `db:"created_at" json:"created_at"`
}

// Friend is one side's view of a friendship edge.
type Friend struct {
	UserID   string    `db:"user_id" json:"user_id"`
	Nickname string    `db:"nickname" json:"nickname"`
	Avatar   *string   `db:"avatar" json:"avatar"`
	Phone    *string   `db:"phone" json:"phone,omitempty"`
	AddedAt  Timestamp `db:"added_at" json:"added_at"`
}

// SendFriendRequestRequest is the request body for POST /friends/requests.
// The sender's display fields come from the request so the recipient can
// render the request without a directory lookup.
type SendFriendRequestRequest struct {
	TargetUserID   string  `json:"target_user_id"`
	TargetNickname string  `json:"target_nickname"`
	TargetAvatar   *string `json:"target_avatar"`
	Nickname       string  `json:"nickname"`
	Avatar         *string `json:"avatar"`
}

// FriendRequestList groups pending requests by direction.
type FriendRequestList struct {
	Incoming []FriendRequest `json:"incoming"`
	Outgoing []FriendRequest `json:"outgoing"`
}

// FriendListResponse is the response for GET /friends.
type FriendListResponse struct {
	Friends []Friend `json:"friends"`
}

// FriendPair orders two user IDs into the stored edge key.
func FriendPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

var (
	ErrCannotAddSelf       = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends      = errors.New("already friends")
	ErrRequestAlreadySent  = errors.New("friend request already pending")
	ErrRequestNotFound     = errors.New("friend request not found")
	ErrRequestNotPending   = errors.New("friend request already handled")
	ErrNotRequestRecipient = errors.New("not the recipient of this friend request")
	ErrNotFriends          = errors.New("not friends")
)
