package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the square stream
const (
	EventPostPublished         = "post_published"
	EventPostDeleted           = "post_deleted"
	EventUserFollowed          = "user_followed"
	EventUserUnfollowed        = "user_unfollowed"
	EventPostLiked             = "post_liked"
	EventPostCommented         = "post_commented"
	EventFriendRequestSent     = "friend_request_sent"
	EventFriendRequestAccepted = "friend_request_accepted"
)

// StreamSquare carries every social event.
const StreamSquare = "stream:square"

// ConsumerGroupSquare is the consumer group shared by all workers.
const ConsumerGroupSquare = "square_workers"

// Event is the payload published to the square stream. Which fields are set
// depends on Type.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // unix millis; the post's creation time for post events

	// Post events
	PostID   string `json:"post_id,omitempty"`
	AuthorID string `json:"author_id,omitempty"`

	// Follow events
	FollowerID string `json:"follower_id,omitempty"`
	FolloweeID string `json:"followee_id,omitempty"`

	// Notification events (like, comment, friend request)
	ActorID       string  `json:"actor_id,omitempty"`
	ActorNickname string  `json:"actor_nickname,omitempty"`
	ActorAvatar   *string `json:"actor_avatar,omitempty"`
	RecipientID   string  `json:"recipient_id,omitempty"`
	CommentID     *string `json:"comment_id,omitempty"`
	RequestID     *string `json:"request_id,omitempty"`
}

// Actor identifies who triggered a notification event.
type Actor struct {
	ID       string
	Nickname string
	Avatar   *string
}

func (a Actor) apply(e *Event) {
	e.ActorID = a.ID
	e.ActorNickname = a.Nickname
	e.ActorAvatar = a.Avatar
}

// NewPostPublishedEvent fans a post out to the author's followers.
func NewPostPublishedEvent(postID, authorID string, createdAtMillis int64) Event {
	return Event{Type: EventPostPublished, Timestamp: createdAtMillis, PostID: postID, AuthorID: authorID}
}

// NewPostDeletedEvent removes a post from followers' feeds.
func NewPostDeletedEvent(postID, authorID string) Event {
	return Event{Type: EventPostDeleted, Timestamp: time.Now().UnixMilli(), PostID: postID, AuthorID: authorID}
}

// NewUserFollowedEvent backfills the follower's feed and notifies the followee.
func NewUserFollowedEvent(follower Actor, followeeID string) Event {
	e := Event{
		Type:        EventUserFollowed,
		Timestamp:   time.Now().UnixMilli(),
		FollowerID:  follower.ID,
		FolloweeID:  followeeID,
		RecipientID: followeeID,
	}
	follower.apply(&e)
	return e
}

// NewUserUnfollowedEvent removes the followee's posts from the follower's feed.
func NewUserUnfollowedEvent(followerID, followeeID string) Event {
	return Event{Type: EventUserUnfollowed, Timestamp: time.Now().UnixMilli(), FollowerID: followerID, FolloweeID: followeeID}
}

func NewPostLikedEvent(postID string, actor Actor, recipientID string) Event {
	e := Event{Type: EventPostLiked, Timestamp: time.Now().UnixMilli(), PostID: postID, RecipientID: recipientID}
	actor.apply(&e)
	return e
}

func NewPostCommentedEvent(postID, commentID string, actor Actor, recipientID string) Event {
	e := Event{Type: EventPostCommented, Timestamp: time.Now().UnixMilli(), PostID: postID, CommentID: &commentID, RecipientID: recipientID}
	actor.apply(&e)
	return e
}

func NewFriendRequestSentEvent(requestID string, actor Actor, recipientID string) Event {
	e := Event{Type: EventFriendRequestSent, Timestamp: time.Now().UnixMilli(), RequestID: &requestID, RecipientID: recipientID}
	actor.apply(&e)
	return e
}

func NewFriendRequestAcceptedEvent(requestID string, actor Actor, recipientID string) Event {
	e := Event{Type: EventFriendRequestAccepted, Timestamp: time.Now().UnixMilli(), RequestID: &requestID, RecipientID: recipientID}
	actor.apply(&e)
	return e
}

// ToMap converts the event to XADD field-value pairs; the JSON body lives in "data".
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
