package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"outfitsquare/internal/model"
)

// Document names as exported from device storage.
const (
	FriendsDocument   = "friends.json"
	PostsDocument     = "square_posts.json"
	DirectoryDocument = "all_users.json"
	HistoryPrefix     = "history_"
)

var (
	errEmptyDocument   = errors.New("empty document")
	errNotJSONDocument = errors.New("document does not start with '[' or '{'")
)

// validateDocument applies the load-path checks: non-empty, first
// non-space byte is '[' or '{', and the blob parses into v.
func validateDocument(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errEmptyDocument
	}
	if trimmed[0] != '[' && trimmed[0] != '{' {
		return errNotJSONDocument
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	return nil
}

// legacyLayouts are the string forms seen in exports besides RFC 3339.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 02 2006",
	"2006-01-02",
}

// legacyTime accepts an ISO-8601 string, one of legacyLayouts, or unix
// milliseconds. Anything else is remembered as unparseable instead of
// failing the whole document; or then yields the fallback.
type legacyTime struct {
	t       time.Time
	invalid bool
}

func (l *legacyTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			l.invalid = true
			return nil
		}
		l.t, l.invalid = parseLegacyString(unquoted)
		return nil
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		l.invalid = true
		return nil
	}
	l.t = time.UnixMilli(int64(ms))
	return nil
}

func parseLegacyString(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	// Date.toString() appends the zone name: "... GMT+0700 (Indochina Time)".
	if i := strings.Index(v, " ("); i > 0 {
		v = v[:i]
	}
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, false
		}
	}
	return time.Time{}, true
}

// or returns the parsed time, or fallback when the field was missing or
// unparseable.
func (l legacyTime) or(fallback time.Time) model.Timestamp {
	if l.invalid || l.t.IsZero() {
		return model.At(fallback)
	}
	return model.At(l.t)
}

type friendsDocument struct {
	Friends         []legacyFriend        `json:"friends"`
	FriendRequests  []legacyFriendRequest `json:"friendRequests"`
	Following       []string              `json:"following"`
	Followers       []string              `json:"followers"`
	PrivacySettings *legacyPrivacy        `json:"privacySettings"`
}

type legacyFriend struct {
	UserID   string     `json:"userId"`
	Nickname string     `json:"nickname"`
	Avatar   *string    `json:"avatar"`
	Phone    *string    `json:"phone"`
	AddedAt  legacyTime `json:"addedAt"`
}

type legacyFriendRequest struct {
	ID               string     `json:"id"`
	FromUserID       string     `json:"fromUserId"`
	FromUserNickname string     `json:"fromUserNickname"`
	FromUserAvatar   *string    `json:"fromUserAvatar"`
	ToUserID         string     `json:"toUserId"`
	Status           string     `json:"status"`
	CreatedAt        legacyTime `json:"createdAt"`
}

type legacyPrivacy struct {
	AllowFriendsViewHistory *bool  `json:"allowFriendsViewHistory"`
	HistoryVisibility       string `json:"historyVisibility"`
	HistoryTimeRange        string `json:"historyTimeRange"`
}

type legacyPost struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	UserNickname     string          `json:"userNickname"`
	UserAvatar       *string         `json:"userAvatar"`
	Type             string          `json:"type"`
	OutfitChangeID   *string         `json:"outfitChangeId"`
	OriginalImageURI *string         `json:"originalImageUri"`
	ResultImageURI   *string         `json:"resultImageUri"`
	TemplateName     *string         `json:"templateName"`
	Description      *string         `json:"description"`
	CreatedAt        legacyTime      `json:"createdAt"`
	Likes            []string        `json:"likes"`
	Comments         []legacyComment `json:"comments"`
	PinnedCommentID  *string         `json:"pinnedCommentId"`
	UserRatings      []legacyRating  `json:"userRatings"`
}

type legacyComment struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	UserNickname     string     `json:"userNickname"`
	UserAvatar       *string    `json:"userAvatar"`
	Content          string     `json:"content"`
	CreatedAt        legacyTime `json:"createdAt"`
	ReplyToCommentID *string    `json:"replyToCommentId"`
	ReplyToUserID    *string    `json:"replyToUserId"`
	ReplyToNickname  *string    `json:"replyToNickname"`
}

type legacyRating struct {
	UserID    string     `json:"userId"`
	Score     int        `json:"score"`
	CreatedAt legacyTime `json:"createdAt"`
}

// directoryDocument maps user ID to display fields.
type directoryDocument map[string]legacyDirectoryEntry

type legacyDirectoryEntry struct {
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Phone    *string `json:"phone"`
}

type legacyHistoryRecord struct {
	ID               string     `json:"id"`
	ImageURI         string     `json:"imageUri"`
	ReferenceURIs    []string   `json:"referenceUris"`
	Verdict          string     `json:"verdict"`
	CredibilityScore *float64   `json:"credibilityScore"`
	Summary          *string    `json:"summary"`
	CreatedAt        legacyTime `json:"createdAt"`
}
