package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
	"outfitsquare/internal/queue"
	"outfitsquare/internal/repository"
)

// RelationshipService owns friend requests, friendships, follows and the
// privacy settings that gate verification history.
type RelationshipService struct {
	friendRepo    repository.FriendRepository
	followRepo    repository.FollowRepository
	privacyRepo   repository.PrivacyRepository
	directoryRepo repository.DirectoryRepository
	db            *sqlx.DB
	publisher     queue.Publisher

	now func() time.Time
}

func NewRelationshipService(
	friendRepo repository.FriendRepository,
	followRepo repository.FollowRepository,
	privacyRepo repository.PrivacyRepository,
	directoryRepo repository.DirectoryRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
) *RelationshipService {
	return &RelationshipService{
		friendRepo:    friendRepo,
		followRepo:    followRepo,
		privacyRepo:   privacyRepo,
		directoryRepo: directoryRepo,
		db:            db,
		publisher:     publisher,
		now:           time.Now,
	}
}

// =============================================================================
// Friend requests
// =============================================================================

func (s *RelationshipService) SendFriendRequest(ctx context.Context, fromUserID string, req model.SendFriendRequestRequest) (*model.FriendRequest, error) {
	if fromUserID == req.TargetUserID {
		return nil, model.ErrCannotAddSelf
	}
	if req.TargetUserID == "" {
		return nil, model.ErrUserNotFound
	}

	now := model.At(s.now())
	fr := &model.FriendRequest{
		ID:               uuid.NewString(),
		FromUserID:       fromUserID,
		FromUserNickname: req.Nickname,
		FromUserAvatar:   req.Avatar,
		ToUserID:         req.TargetUserID,
		Status:           model.RequestStatusPending,
		CreatedAt:        now,
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		friends, err := s.friendRepo.AreFriends(ctx, tx, fromUserID, req.TargetUserID)
		if err != nil {
			return err
		}
		if friends {
			return model.ErrAlreadyFriends
		}

		pending, err := s.friendRepo.FindPendingBetween(ctx, tx, fromUserID, req.TargetUserID)
		if err != nil {
			return err
		}
		if pending != nil {
			return model.ErrRequestAlreadySent
		}

		if err := s.friendRepo.CreateRequest(ctx, tx, fr); err != nil {
			return err
		}

		if err := s.directoryRepo.Upsert(ctx, tx, &model.DirectoryEntry{
			UserID: fromUserID, Nickname: req.Nickname, Avatar: req.Avatar, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return s.directoryRepo.Upsert(ctx, tx, &model.DirectoryEntry{
			UserID: req.TargetUserID, Nickname: req.TargetNickname, Avatar: req.TargetAvatar, UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("send friend request: %w", err)
	}

	log.Printf("[RelationshipService] SendFriendRequest OK: from=%s to=%s request=%s", fromUserID, req.TargetUserID, fr.ID)

	actor := queue.Actor{ID: fromUserID, Nickname: req.Nickname, Avatar: req.Avatar}
	publish(ctx, s.publisher, "RelationshipService", queue.NewFriendRequestSentEvent(fr.ID, actor, req.TargetUserID))

	return fr, nil
}

// AcceptFriendRequest resolves the request and creates the friendship edge in
// one transaction.
func (s *RelationshipService) AcceptFriendRequest(ctx context.Context, userID, requestID string) (*model.FriendRequest, error) {
	fr, err := s.resolveRequest(ctx, userID, requestID, model.RequestStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("accept friend request: %w", err)
	}

	log.Printf("[RelationshipService] AcceptFriendRequest OK: request=%s users=%s,%s", requestID, fr.FromUserID, userID)

	publish(ctx, s.publisher, "RelationshipService",
		queue.NewFriendRequestAcceptedEvent(fr.ID, s.actor(ctx, userID), fr.FromUserID))

	return fr, nil
}

func (s *RelationshipService) RejectFriendRequest(ctx context.Context, userID, requestID string) (*model.FriendRequest, error) {
	fr, err := s.resolveRequest(ctx, userID, requestID, model.RequestStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("reject friend request: %w", err)
	}

	log.Printf("[RelationshipService] RejectFriendRequest OK: request=%s", requestID)
	return fr, nil
}

func (s *RelationshipService) resolveRequest(ctx context.Context, userID, requestID, status string) (*model.FriendRequest, error) {
	var fr *model.FriendRequest
	now := model.At(s.now())

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		fr, err = s.friendRepo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if fr.ToUserID != userID {
			return model.ErrNotRequestRecipient
		}
		if fr.Status != model.RequestStatusPending {
			return model.ErrRequestNotPending
		}

		resolved, err := s.friendRepo.ResolveRequest(ctx, tx, requestID, status, now)
		if err != nil {
			return err
		}
		if !resolved {
			return model.ErrRequestNotPending
		}

		if status == model.RequestStatusAccepted {
			if _, err := s.friendRepo.CreateFriendship(ctx, tx, fr.FromUserID, fr.ToUserID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fr.Status = status
	fr.RespondedAt = &now
	return fr, nil
}

// RemoveFriend deletes the shared edge, so the removal is visible to both users.
func (s *RelationshipService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		removed, err := s.friendRepo.DeleteFriendship(ctx, tx, userID, friendID)
		if err != nil {
			return err
		}
		if !removed {
			return model.ErrNotFriends
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}

	log.Printf("[RelationshipService] RemoveFriend OK: user=%s friend=%s", userID, friendID)
	return nil
}

func (s *RelationshipService) ListFriends(ctx context.Context, userID string) (*model.FriendListResponse, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.FriendListResponse{Friends: friends}, nil
}

// ListRequests returns the pending requests addressed to and sent by the user.
func (s *RelationshipService) ListRequests(ctx context.Context, userID string) (*model.FriendRequestList, error) {
	incoming, err := s.friendRepo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.friendRepo.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.FriendRequestList{Incoming: incoming, Outgoing: outgoing}, nil
}

// =============================================================================
// Follows
// =============================================================================

func (s *RelationshipService) FollowUser(ctx context.Context, followerID, followeeID string, req model.FollowRequest) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	now := model.At(s.now())
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		inserted, err := s.followRepo.Create(ctx, tx, followerID, followeeID, now)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrAlreadyFollowing
		}
		return s.directoryRepo.Upsert(ctx, tx, &model.DirectoryEntry{
			UserID: followeeID, Nickname: req.Nickname, Avatar: req.Avatar, UpdatedAt: now,
		})
	})
	if err != nil {
		return fmt.Errorf("follow user: %w", err)
	}

	log.Printf("[RelationshipService] FollowUser OK: follower=%s followee=%s", followerID, followeeID)

	publish(ctx, s.publisher, "RelationshipService", queue.NewUserFollowedEvent(s.actor(ctx, followerID), followeeID))
	return nil
}

func (s *RelationshipService) UnfollowUser(ctx context.Context, followerID, followeeID string) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.followRepo.Delete(ctx, tx, followerID, followeeID)
	})
	if err != nil {
		return fmt.Errorf("unfollow user: %w", err)
	}

	log.Printf("[RelationshipService] UnfollowUser OK: follower=%s followee=%s", followerID, followeeID)

	publish(ctx, s.publisher, "RelationshipService", queue.NewUserUnfollowedEvent(followerID, followeeID))
	return nil
}

// GetFollowersList returns users following userID, newest first. When viewerID
// is set each entry reports whether the viewer follows that user.
func (s *RelationshipService) GetFollowersList(ctx context.Context, userID string, cursor *string, limit int, viewerID *string) (*model.FollowListResponse, error) {
	users, next, err := s.followRepo.GetFollowers(ctx, userID, cursor, pageLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.followList(ctx, users, next, viewerID), nil
}

func (s *RelationshipService) GetFollowingList(ctx context.Context, userID string, cursor *string, limit int, viewerID *string) (*model.FollowListResponse, error) {
	users, next, err := s.followRepo.GetFollowing(ctx, userID, cursor, pageLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.followList(ctx, users, next, viewerID), nil
}

func (s *RelationshipService) followList(ctx context.Context, users []model.UserSummary, next *string, viewerID *string) *model.FollowListResponse {
	if viewerID != nil {
		users = s.enrichWithFollowStatus(ctx, *viewerID, users)
	}
	return &model.FollowListResponse{
		Users:      users,
		NextCursor: next,
		HasMore:    next != nil,
	}
}

// enrichWithFollowStatus does one batch lookup for the whole page. A failed
// lookup leaves is_following false rather than failing the list.
func (s *RelationshipService) enrichWithFollowStatus(ctx context.Context, viewerID string, users []model.UserSummary) []model.UserSummary {
	if len(users) == 0 {
		return users
	}

	userIDs := make([]string, len(users))
	for i, u := range users {
		userIDs[i] = u.UserID
	}

	followMap, err := s.followRepo.CheckFollows(ctx, viewerID, userIDs)
	if err != nil {
		log.Printf("[RelationshipService] CheckFollows failed: viewer=%s err=%v", viewerID, err)
		return users
	}

	for i := range users {
		users[i].IsFollowing = followMap[users[i].UserID]
	}
	return users
}

// =============================================================================
// Relationship reads
// =============================================================================

func (s *RelationshipService) IsFriend(ctx context.Context, userID, otherID string) (bool, error) {
	return s.friendRepo.AreFriends(ctx, s.db, userID, otherID)
}

func (s *RelationshipService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followeeID)
}

// IsMutualFollow reports whether both users follow each other.
func (s *RelationshipService) IsMutualFollow(ctx context.Context, userID, otherID string) (bool, error) {
	forward, err := s.followRepo.Exists(ctx, userID, otherID)
	if err != nil || !forward {
		return false, err
	}
	return s.followRepo.Exists(ctx, otherID, userID)
}

// HasPendingRequest checks both directions.
func (s *RelationshipService) HasPendingRequest(ctx context.Context, userID, otherID string) (bool, error) {
	fr, err := s.friendRepo.FindPendingBetween(ctx, s.db, userID, otherID)
	if err != nil {
		return false, err
	}
	return fr != nil, nil
}

func (s *RelationshipService) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return s.directoryRepo.GetStats(ctx, userID)
}

// GetRelationship summarises how viewerID relates to targetID.
func (s *RelationshipService) GetRelationship(ctx context.Context, viewerID, targetID string) (*model.Relationship, error) {
	rel := &model.Relationship{IsSelf: viewerID == targetID}
	if rel.IsSelf {
		return rel, nil
	}

	var err error
	if rel.IsFriend, err = s.IsFriend(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	if rel.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	if rel.IsFollowedBy, err = s.followRepo.Exists(ctx, targetID, viewerID); err != nil {
		return nil, err
	}
	if rel.HasPendingRequest, err = s.HasPendingRequest(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	return rel, nil
}

// =============================================================================
// Privacy and history visibility
// =============================================================================

// GetPrivacySettings returns the stored settings or the defaults.
func (s *RelationshipService) GetPrivacySettings(ctx context.Context, userID string) (model.FriendPrivacySettings, error) {
	settings, err := s.privacyRepo.Get(ctx, userID)
	if err != nil {
		return model.FriendPrivacySettings{}, err
	}
	if settings == nil {
		return model.DefaultPrivacySettings(userID), nil
	}
	return *settings, nil
}

func (s *RelationshipService) UpdatePrivacySettings(ctx context.Context, userID string, req model.UpdatePrivacyRequest) (model.FriendPrivacySettings, error) {
	settings, err := s.GetPrivacySettings(ctx, userID)
	if err != nil {
		return settings, err
	}

	if req.AllowFriendsViewHistory != nil {
		settings.AllowFriendsViewHistory = *req.AllowFriendsViewHistory
	}
	if req.HistoryVisibility != nil {
		settings.HistoryVisibility = *req.HistoryVisibility
	}
	if req.HistoryTimeRange != nil {
		settings.HistoryTimeRange = *req.HistoryTimeRange
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}

	settings.UpdatedAt = model.At(s.now())
	if err := s.privacyRepo.Upsert(ctx, &settings); err != nil {
		return settings, fmt.Errorf("update privacy settings: %w", err)
	}

	log.Printf("[RelationshipService] UpdatePrivacySettings OK: user=%s visibility=%s range=%s",
		userID, settings.HistoryVisibility, settings.HistoryTimeRange)
	return settings, nil
}

// CanViewHistory evaluates the target's privacy settings for viewerID.
func (s *RelationshipService) CanViewHistory(ctx context.Context, viewerID, targetID string) (HistoryAccess, error) {
	if viewerID == targetID {
		return HistoryAccess{Visible: true}, nil
	}

	settings, err := s.GetPrivacySettings(ctx, targetID)
	if err != nil {
		return HistoryAccess{}, err
	}

	related := false
	if settings.HistoryVisibility == model.VisibilityFriendsOnly && settings.AllowFriendsViewHistory {
		if related, err = s.IsFriend(ctx, viewerID, targetID); err != nil {
			return HistoryAccess{}, err
		}
		if !related {
			if related, err = s.IsMutualFollow(ctx, viewerID, targetID); err != nil {
				return HistoryAccess{}, err
			}
		}
	}

	return DecideHistoryAccess(viewerID, targetID, settings, related, s.now()), nil
}

// GetFilteredHistory returns the part of history viewerID may see, and
// whether the history is visible at all.
func (s *RelationshipService) GetFilteredHistory(ctx context.Context, viewerID, targetID string, history []model.HistoryRecord) ([]model.HistoryRecord, bool, error) {
	access, err := s.CanViewHistory(ctx, viewerID, targetID)
	if err != nil {
		return nil, false, err
	}
	return access.Filter(history), access.Visible, nil
}

func (s *RelationshipService) actor(ctx context.Context, userID string) queue.Actor {
	return directoryActor(ctx, s.directoryRepo, userID)
}
