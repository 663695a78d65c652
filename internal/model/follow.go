package model

import "errors"

type Follow struct {
	FollowerID string    `db:"follower_id" json:"follower_id"`
	FolloweeID string    `db:"followee_id" json:"followee_id"`
	CreatedAt  Timestamp `db:"created_at" json:"created_at"`
}

// FollowRequest carries the followee's display fields for the directory.
type FollowRequest struct {
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type FollowListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
