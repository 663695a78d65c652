package model

import "errors"

// DeviceToken represents a user's registered device for push notifications.
type DeviceToken struct {
	Token     string    `db:"token" json:"-"`
	UserID    string    `db:"user_id" json:"-"`
	Platform  string    `db:"platform" json:"platform"` // "ios", "android", "web"
	CreatedAt Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt Timestamp `db:"updated_at" json:"updated_at"`
}

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

var ErrTokenRequired = errors.New("device token is required")
