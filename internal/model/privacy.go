package model

import "errors"

// History visibility modes.
const (
	VisibilityEveryone    = "everyone"
	VisibilityFriendsOnly = "friends_only"
	VisibilityNone        = "none"
)

// History time ranges.
const (
	TimeRangeAll       = "all"
	TimeRangeSixMonths = "six_months"
	TimeRangeThreeDays = "three_days"
)

// FriendPrivacySettings controls who can see a user's verification history.
type FriendPrivacySettings struct {
	UserID                  string    `db:"user_id" json:"-"`
	AllowFriendsViewHistory bool      `db:"allow_friends_view_history" json:"allow_friends_view_history"`
	HistoryVisibility       string    `db:"history_visibility" json:"history_visibility"`
	HistoryTimeRange        string    `db:"history_time_range" json:"history_time_range"`
	UpdatedAt               Timestamp `db:"updated_at" json:"updated_at"`
}

// DefaultPrivacySettings is applied to users who never saved settings.
func DefaultPrivacySettings(userID string) FriendPrivacySettings {
	return FriendPrivacySettings{
		UserID:                  userID,
		AllowFriendsViewHistory: true,
		HistoryVisibility:       VisibilityFriendsOnly,
		HistoryTimeRange:        TimeRangeAll,
	}
}

// UpdatePrivacyRequest is a partial update; nil fields keep their value.
type UpdatePrivacyRequest struct {
	AllowFriendsViewHistory *bool   `json:"allow_friends_view_history"`
	HistoryVisibility       *string `json:"history_visibility"`
	HistoryTimeRange        *string `json:"history_time_range"`
}

// Validate reports whether the enum fields hold known values.
func (s FriendPrivacySettings) Validate() error {
	switch s.HistoryVisibility {
	case VisibilityEveryone, VisibilityFriendsOnly, VisibilityNone:
	default:
		return ErrInvalidPrivacySetting
	}
	switch s.HistoryTimeRange {
	case TimeRangeAll, TimeRangeSixMonths, TimeRangeThreeDays:
	default:
		return ErrInvalidPrivacySetting
	}
	return nil
}

var ErrInvalidPrivacySetting = errors.New("invalid privacy setting")
