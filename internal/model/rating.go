package model

import "errors"

// UserRating is one user's score for a post. Re-rating replaces the score.
type UserRating struct {
	PostID    string    `db:"post_id" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	Score     int       `db:"score" json:"score"`
	CreatedAt Timestamp `db:"created_at" json:"created_at"`
}

// RateRequest is the request body for PUT /posts/{id}/rating.
type RateRequest struct {
	Score int `json:"score"`
}

// RatingSummary is the plain mean over the post's current ratings.
type RatingSummary struct {
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
	UserScore *int    `json:"user_score"`
}

const (
	MinRatingScore = 1
	MaxRatingScore = 10
)

var ErrInvalidScore = errors.New("rating score out of range")

// AverageRating returns the mean score, or 0 when there are no ratings.
func AverageRating(ratings []UserRating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r.Score
	}
	return float64(total) / float64(len(ratings))
}
