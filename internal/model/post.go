package model

import "errors"

// Post types published to the square.
const (
	PostTypeOutfitChange = "outfit_change"
	PostTypeTemplate     = "template"
	PostTypeOriginal     = "original"
)

// SquarePost is a published post with its likes, comments and ratings.
type SquarePost struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	UserNickname     string    `db:"user_nickname" json:"user_nickname"`
	UserAvatar       *string   `db:"user_avatar" json:"user_avatar"`
	PostType         string    `db:"post_type" json:"post_type"`
	OutfitChangeID   *string   `db:"outfit_change_id" json:"outfit_change_id,omitempty"`
	OriginalImageURI *string   `db:"original_image_uri" json:"original_image_uri,omitempty"`
	ResultImageURI   *string   `db:"result_image_uri" json:"result_image_uri,omitempty"`
	TemplateName     *string   `db:"template_name" json:"template_name,omitempty"`
	Description      *string   `db:"description" json:"description,omitempty"`
	PinnedCommentID  *string   `db:"pinned_comment_id" json:"pinned_comment_id"`
	CreatedAt        Timestamp `db:"created_at" json:"created_at"`

	// Hydrated from child tables
	Likes         []string        `json:"likes"`
	Comments      []SquareComment `json:"comments"`
	UserRatings   []UserRating    `json:"user_ratings"`
	AverageRating float64         `json:"average_rating"`
	IsLiked       bool            `json:"is_liked"`
}

// PublishPostRequest is the request body for POST /posts.
type PublishPostRequest struct {
	PostType         string  `json:"post_type"`
	OutfitChangeID   *string `json:"outfit_change_id"`
	OriginalImageURI *string `json:"original_image_uri"`
	ResultImageURI   *string `json:"result_image_uri"`
	TemplateName     *string `json:"template_name"`
	Description      *string `json:"description"`
	Nickname         string  `json:"nickname"`
	Avatar           *string `json:"avatar"`
}

// PublishResult reports the post ID and whether a new post was created.
type PublishResult struct {
	PostID  string `json:"post_id"`
	Created bool   `json:"created"`
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked     bool     `json:"liked"`
	Likes     []string `json:"likes"`
	LikeCount int      `json:"like_count"`
}

// PinResult is the pinned comment after a pin toggle.
type PinResult struct {
	PinnedCommentID *string `json:"pinned_comment_id"`
}

// NicknameUpdateResult counts the denormalized copies rewritten by a rename.
type NicknameUpdateResult struct {
	Nickname        string `json:"nickname"`
	PostsUpdated    int64  `json:"posts_updated"`
	CommentsUpdated int64  `json:"comments_updated"`
	RepliesUpdated  int64  `json:"replies_updated"`
}

// SquareFeedResponse is a cursor-paginated page of posts.
type SquareFeedResponse struct {
	Posts      []SquarePost `json:"posts"`
	NextCursor *string      `json:"next_cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
}

const (
	MaxDescriptionLength = 500
	DefaultPageSize      = 20
	MaxPageSize          = 50
)

var (
	ErrPostNotFound        = errors.New("post not found")
	ErrNotPostOwner        = errors.New("not the owner of this post")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrImageRequired       = errors.New("a result or original image is required")
	ErrInvalidPostType     = errors.New("invalid post type")
	ErrOutfitChangeMissing = errors.New("outfit change id is required")
	ErrInvalidCursor       = errors.New("invalid cursor format")
)

// IsValidPostType reports whether t is a known post type.
func IsValidPostType(t string) bool {
	switch t {
	case PostTypeOutfitChange, PostTypeTemplate, PostTypeOriginal:
		return true
	}
	return false
}
