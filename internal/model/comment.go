package model

import "errors"

// SquareComment is a comment on a square post, optionally replying to another.
type SquareComment struct {
	ID               string    `db:"id" json:"id"`
	PostID           string    `db:"post_id" json:"post_id"`
	UserID           string    `db:"user_id" json:"user_id"`
	UserNickname     string    `db:"user_nickname" json:"user_nickname"`
	UserAvatar       *string   `db:"user_avatar" json:"user_avatar"`
	Content          string    `db:"content" json:"content"`
	ReplyToCommentID *string   `db:"reply_to_comment_id" json:"reply_to_comment_id,omitempty"`
	ReplyToUserID    *string   `db:"reply_to_user_id" json:"reply_to_user_id,omitempty"`
	ReplyToNickname  *string   `db:"reply_to_nickname" json:"reply_to_nickname,omitempty"`
	CreatedAt        Timestamp `db:"created_at" json:"created_at"`
}

// AddCommentRequest is the request body for POST /posts/{id}/comments.
type AddCommentRequest struct {
	Content          string  `json:"content"`
	Nickname         string  `json:"nickname"`
	Avatar           *string `json:"avatar"`
	ReplyToCommentID *string `json:"reply_to_comment_id,omitempty"`
}

const MaxCommentLength = 500

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("not allowed to delete this comment")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
)
