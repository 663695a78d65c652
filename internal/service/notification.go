package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"outfitsquare/internal/metrics"
	"outfitsquare/internal/model"
	"outfitsquare/internal/repository"
)

// pushTimeout bounds one asynchronous push fan-out.
const pushTimeout = 15 * time.Second

// NotificationService stores in-app notifications and pushes them to the
// recipient's devices.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	tokenRepo repository.DeviceTokenRepository
	pushers   []Pusher

	wg sync.WaitGroup
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	pushers ...Pusher,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		tokenRepo: tokenRepo,
		pushers:   pushers,
	}
}

// Notify persists n and starts a best-effort push. Self-notifications are
// dropped.
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) error {
	if n.UserID == "" || n.UserID == n.ActorID {
		return nil
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = model.Now()
	}

	if err := s.notifRepo.Create(ctx, n); err != nil {
		return err
	}
	log.Printf("[NotificationService] Notify OK: user=%s type=%s actor=%s", n.UserID, n.Type, n.ActorID)

	if len(s.pushers) > 0 {
		s.wg.Add(1)
		go func(n model.Notification) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()
			s.sendPush(ctx, &n)
		}(*n)
	}
	return nil
}

// Wait blocks until in-flight pushes finish.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) sendPush(ctx context.Context, n *model.Notification) {
	tokens, err := s.tokenRepo.GetByUserID(ctx, n.UserID)
	if err != nil {
		log.Printf("[NotificationService] Failed to get device tokens for user %s: %v", n.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	msg := BuildPushMessage(n)
	for _, p := range s.pushers {
		err := p.Send(ctx, tokenStrings, msg)
		metrics.PushSent.WithLabelValues(p.Name(), metrics.Result(err)).Inc()
		if err != nil {
			log.Printf("[NotificationService] %s push failed: user=%s err=%v", p.Name(), n.UserID, err)
		}
	}
}

// BuildPushMessage renders the title, body and navigation data for n.
func BuildPushMessage(n *model.Notification) PushMessage {
	actor := n.ActorNickname
	if actor == "" {
		actor = "Someone"
	}

	msg := PushMessage{Data: map[string]string{"type": n.Type, "actor_id": n.ActorID}}
	switch n.Type {
	case model.NotificationTypeFollow:
		msg.Title, msg.Body = "New Follower", actor+" started following you"
	case model.NotificationTypeLike:
		msg.Title, msg.Body = "New Like", actor+" liked your post"
	case model.NotificationTypeComment:
		msg.Title, msg.Body = "New Comment", actor+" commented on your post"
	case model.NotificationTypeFriendRequest:
		msg.Title, msg.Body = "Friend Request", actor+" wants to be your friend"
	case model.NotificationTypeFriendAccepted:
		msg.Title, msg.Body = "Friend Request Accepted", actor+" accepted your friend request"
	default:
		msg.Title, msg.Body = "Outfit Square", "You have a new notification"
	}

	if n.PostID != nil {
		msg.Data["post_id"] = *n.PostID
	}
	if n.CommentID != nil {
		msg.Data["comment_id"] = *n.CommentID
	}
	if n.RequestID != nil {
		msg.Data["request_id"] = *n.RequestID
	}
	return msg
}

// GetNotifications lists follow and friend notifications one by one, and
// groups likes and comments per post.
func (s *NotificationService) GetNotifications(ctx context.Context, userID string) (*model.NotificationListResponse, error) {
	recent, err := s.notifRepo.ListRecent(ctx, userID, model.NotificationListLimit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	individual, aggregated := AggregateNotifications(recent)
	return &model.NotificationListResponse{
		Individual:  individual,
		Aggregated:  aggregated,
		UnreadCount: unread,
	}, nil
}

// AggregateNotifications splits newest-first notifications into individual
// entries and per-post groups ordered by their latest activity.
func AggregateNotifications(notifications []model.Notification) ([]model.Notification, []model.AggregatedNotification) {
	individual := []model.Notification{}
	aggregated := []model.AggregatedNotification{}
	index := make(map[string]int)
	seenActors := make(map[string]map[string]bool)

	for _, n := range notifications {
		if (n.Type != model.NotificationTypeLike && n.Type != model.NotificationTypeComment) || n.PostID == nil {
			individual = append(individual, n)
			continue
		}

		key := n.Type + "\x00" + *n.PostID
		i, ok := index[key]
		if !ok {
			i = len(aggregated)
			index[key] = i
			seenActors[key] = make(map[string]bool)
			aggregated = append(aggregated, model.AggregatedNotification{
				Type:     n.Type,
				PostID:   *n.PostID,
				Actors:   []model.UserSummary{},
				LatestAt: n.CreatedAt,
				IsRead:   true,
			})
		}

		g := &aggregated[i]
		g.TotalCount++
		if !n.IsRead {
			g.IsRead = false
		}
		if n.CreatedAt.After(g.LatestAt.Time) {
			g.LatestAt = n.CreatedAt
		}
		if !seenActors[key][n.ActorID] && len(g.Actors) < model.MaxAggregatedActors {
			seenActors[key][n.ActorID] = true
			g.Actors = append(g.Actors, model.UserSummary{
				UserID:   n.ActorID,
				Nickname: n.ActorNickname,
				Avatar:   n.ActorAvatar,
			})
		}
	}

	sort.SliceStable(aggregated, func(a, b int) bool {
		return aggregated[a].LatestAt.After(aggregated[b].LatestAt.Time)
	})
	return individual, aggregated
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, notificationIDs []string) error {
	return s.notifRepo.MarkAsRead(ctx, userID, notificationIDs)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount backs the badge on the app icon.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

// RegisterDeviceToken stores a push token. A token registered by another user
// moves to this user (the device changed hands).
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.ErrTokenRequired
	}
	if platform == "" {
		platform = "expo"
	}
	return s.tokenRepo.Upsert(ctx, userID, token, platform)
}

func (s *NotificationService) RemoveDeviceToken(ctx context.Context, userID, token string) error {
	return s.tokenRepo.Delete(ctx, userID, token)
}
