package model

import (
	"errors"
	"strings"
)

// DirectoryEntry is the shared "all users" record that resolves a user ID to
// its display name and avatar.
type DirectoryEntry struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Nickname  string    `db:"nickname" json:"nickname"`
	Avatar    *string   `db:"avatar" json:"avatar"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	UpdatedAt Timestamp `db:"updated_at" json:"updated_at"`
}

// UserSummary is the compact author/actor representation embedded in lists.
type UserSummary struct {
	UserID      string  `db:"user_id" json:"user_id"`
	Nickname    string  `db:"nickname" json:"nickname"`
	Avatar      *string `db:"avatar" json:"avatar"`
	IsFollowing bool    `json:"is_following"`
}

// UserStats are computed from the edge and post sets.
type UserStats struct {
	FollowingCount int `db:"following_count" json:"following_count"`
	FollowersCount int `db:"followers_count" json:"followers_count"`
	FriendsCount   int `db:"friends_count" json:"friends_count"`
	PostsCount     int `db:"posts_count" json:"posts_count"`
	LikesReceived  int `db:"likes_received" json:"likes_received"`
}

// Relationship describes how the viewer relates to a profile.
type Relationship struct {
	IsSelf            bool `json:"is_self"`
	IsFriend          bool `json:"is_friend"`
	IsFollowing       bool `json:"is_following"`
	IsFollowedBy      bool `json:"is_followed_by"`
	HasPendingRequest bool `json:"has_pending_request"`
}

// UserProfile is the response for profile endpoints.
type UserProfile struct {
	DirectoryEntry
	Stats        UserStats     `json:"stats"`
	Relationship *Relationship `json:"relationship,omitempty"`
}

// UpdateProfileRequest is the request body for PATCH /me.
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Phone    *string `json:"phone"`
}

// UserListResponse is a plain list of summaries (search results).
type UserListResponse struct {
	Users []UserSummary `json:"users"`
}

const (
	MaxNicknameLength = 30
	MaxSearchResults  = 20
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNicknameRequired = errors.New("nickname is required")
	ErrNicknameTooLong  = errors.New("nickname too long")
)

// NormalizeNickname trims whitespace and validates length.
func NormalizeNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", ErrNicknameRequired
	}
	if len([]rune(nickname)) > MaxNicknameLength {
		return "", ErrNicknameTooLong
	}
	return nickname, nil
}
