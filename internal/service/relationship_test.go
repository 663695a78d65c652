package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfitsquare/internal/model"
	"outfitsquare/internal/queue"
)

func sendRequest(t *testing.T, env *testEnv, from, to string) *model.FriendRequest {
	t.Helper()
	fr, err := env.relationships.SendFriendRequest(context.Background(), from, model.SendFriendRequestRequest{
		TargetUserID:   to,
		TargetNickname: "nick-" + to,
		Nickname:       "nick-" + from,
	})
	require.NoError(t, err)
	return fr
}

func TestSendFriendRequest_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.relationships.SendFriendRequest(ctx, "u1", model.SendFriendRequestRequest{TargetUserID: "u1"})
	assert.ErrorIs(t, err, model.ErrCannotAddSelf)

	sendRequest(t, env, "u1", "u2")

	_, err = env.relationships.SendFriendRequest(ctx, "u1", model.SendFriendRequestRequest{TargetUserID: "u2"})
	assert.ErrorIs(t, err, model.ErrRequestAlreadySent)

	// The reverse direction counts as the same pending pair.
	_, err = env.relationships.SendFriendRequest(ctx, "u2", model.SendFriendRequestRequest{TargetUserID: "u1"})
	assert.ErrorIs(t, err, model.ErrRequestAlreadySent)

	pending, err := env.relationships.HasPendingRequest(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestSendFriendRequest_AlreadyFriends(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fr := sendRequest(t, env, "u1", "u2")
	_, err := env.relationships.AcceptFriendRequest(ctx, "u2", fr.ID)
	require.NoError(t, err)

	_, err = env.relationships.SendFriendRequest(ctx, "u2", model.SendFriendRequestRequest{TargetUserID: "u1"})
	assert.ErrorIs(t, err, model.ErrAlreadyFriends)
}

func TestSendFriendRequest_UpsertsDirectoryAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fr := sendRequest(t, env, "u1", "u2")
	assert.Equal(t, model.RequestStatusPending, fr.Status)

	for _, id := range []string{"u1", "u2"} {
		entry, err := env.directoryRepo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "nick-"+id, entry.Nickname)
	}

	ev := env.publisher.last()
	assert.Equal(t, queue.EventFriendRequestSent, ev.Type)
	assert.Equal(t, "u2", ev.RecipientID)
	require.NotNil(t, ev.RequestID)
	assert.Equal(t, fr.ID, *ev.RequestID)
}

func TestAcceptFriendRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fr := sendRequest(t, env, "u1", "u2")

	_, err := env.relationships.AcceptFriendRequest(ctx, "u1", fr.ID)
	assert.ErrorIs(t, err, model.ErrNotRequestRecipient)

	accepted, err := env.relationships.AcceptFriendRequest(ctx, "u2", fr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	// Leaves pending exactly once.
	_, err = env.relationships.AcceptFriendRequest(ctx, "u2", fr.ID)
	assert.ErrorIs(t, err, model.ErrRequestNotPending)
	_, err = env.relationships.RejectFriendRequest(ctx, "u2", fr.ID)
	assert.ErrorIs(t, err, model.ErrRequestNotPending)

	// Both sides see the friendship.
	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		ok, err := env.relationships.IsFriend(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	list, err := env.relationships.ListFriends(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list.Friends, 1)
	assert.Equal(t, "u2", list.Friends[0].UserID)
	assert.Equal(t, "nick-u2", list.Friends[0].Nickname)

	ev := env.publisher.last()
	assert.Equal(t, queue.EventFriendRequestAccepted, ev.Type)
	assert.Equal(t, "u1", ev.RecipientID)
	assert.Equal(t, "u2", ev.ActorID)
	assert.Equal(t, "nick-u2", ev.ActorNickname)
}

func TestRejectFriendRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fr := sendRequest(t, env, "u1", "u2")

	rejected, err := env.relationships.RejectFriendRequest(ctx, "u2", fr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, rejected.Status)

	friends, err := env.relationships.IsFriend(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, friends)

	// A rejected request no longer blocks a new one.
	sendRequest(t, env, "u1", "u2")

	_, err = env.relationships.AcceptFriendRequest(ctx, "u2", "missing")
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
}

func TestListRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sendRequest(t, env, "u1", "u2")
	sendRequest(t, env, "u3", "u1")

	list, err := env.relationships.ListRequests(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list.Incoming, 1)
	require.Len(t, list.Outgoing, 1)
	assert.Equal(t, "u3", list.Incoming[0].FromUserID)
	assert.Equal(t, "u2", list.Outgoing[0].ToUserID)
}

func TestRemoveFriend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.relationships.RemoveFriend(ctx, "u1", "u2")
	assert.ErrorIs(t, err, model.ErrNotFriends)

	fr := sendRequest(t, env, "u1", "u2")
	_, err = env.relationships.AcceptFriendRequest(ctx, "u2", fr.ID)
	require.NoError(t, err)

	require.NoError(t, env.relationships.RemoveFriend(ctx, "u2", "u1"))

	for _, id := range []string{"u1", "u2"} {
		list, err := env.relationships.ListFriends(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, list.Friends, id)
	}
}

func TestFollowUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.relationships.FollowUser(ctx, "u1", "u1", model.FollowRequest{})
	assert.ErrorIs(t, err, model.ErrCannotFollowSelf)

	require.NoError(t, env.relationships.FollowUser(ctx, "u1", "u2", model.FollowRequest{Nickname: "Bob"}))
	err = env.relationships.FollowUser(ctx, "u1", "u2", model.FollowRequest{Nickname: "Bob"})
	assert.ErrorIs(t, err, model.ErrAlreadyFollowing)

	entry, err := env.directoryRepo.GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", entry.Nickname)

	mutual, err := env.relationships.IsMutualFollow(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, mutual)

	require.NoError(t, env.relationships.FollowUser(ctx, "u2", "u1", model.FollowRequest{Nickname: "Alice"}))
	mutual, err = env.relationships.IsMutualFollow(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, mutual)

	stats, err := env.relationships.GetUserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FollowingCount)
	assert.Equal(t, 1, stats.FollowersCount)

	require.NoError(t, env.relationships.UnfollowUser(ctx, "u1", "u2"))
	err = env.relationships.UnfollowUser(ctx, "u1", "u2")
	assert.ErrorIs(t, err, model.ErrNotFollowing)

	assert.Equal(t, []string{
		queue.EventUserFollowed, queue.EventUserFollowed, queue.EventUserUnfollowed,
	}, env.publisher.types())
}

func TestFollowersListEnrichment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, env.relationships.FollowUser(ctx, id, "star", model.FollowRequest{Nickname: "Star"}))
	}
	require.NoError(t, env.relationships.FollowUser(ctx, "viewer", "b", model.FollowRequest{Nickname: "B"}))

	page, err := env.relationships.GetFollowersList(ctx, "star", nil, 2, ptr("viewer"))
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	// Newest first.
	assert.Equal(t, "c", page.Users[0].UserID)
	assert.Equal(t, "b", page.Users[1].UserID)
	assert.True(t, page.Users[1].IsFollowing)

	rest, err := env.relationships.GetFollowersList(ctx, "star", page.NextCursor, 2, nil)
	require.NoError(t, err)
	require.Len(t, rest.Users, 1)
	assert.Equal(t, "a", rest.Users[0].UserID)
	assert.False(t, rest.HasMore)
}

func TestPrivacySettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	got, err := env.relationships.GetPrivacySettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPrivacySettings("u1"), got)

	_, err = env.relationships.UpdatePrivacySettings(ctx, "u1", model.UpdatePrivacyRequest{HistoryVisibility: ptr("public")})
	assert.ErrorIs(t, err, model.ErrInvalidPrivacySetting)

	updated, err := env.relationships.UpdatePrivacySettings(ctx, "u1", model.UpdatePrivacyRequest{
		HistoryTimeRange: ptr(model.TimeRangeThreeDays),
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityFriendsOnly, updated.HistoryVisibility)
	assert.Equal(t, model.TimeRangeThreeDays, updated.HistoryTimeRange)

	got, err = env.relationships.GetPrivacySettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.TimeRangeThreeDays, got.HistoryTimeRange)
	assert.True(t, got.AllowFriendsViewHistory)
}

func TestCanViewHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Defaults are friends_only: strangers see nothing.
	access, err := env.relationships.CanViewHistory(ctx, "stranger", "owner")
	require.NoError(t, err)
	assert.False(t, access.Visible)

	access, err = env.relationships.CanViewHistory(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.True(t, access.Visible)

	// Mutual follow is enough for friends_only.
	require.NoError(t, env.relationships.FollowUser(ctx, "fan", "owner", model.FollowRequest{}))
	access, err = env.relationships.CanViewHistory(ctx, "fan", "owner")
	require.NoError(t, err)
	assert.False(t, access.Visible)
	require.NoError(t, env.relationships.FollowUser(ctx, "owner", "fan", model.FollowRequest{}))
	access, err = env.relationships.CanViewHistory(ctx, "fan", "owner")
	require.NoError(t, err)
	assert.True(t, access.Visible)

	// So is friendship.
	fr := sendRequest(t, env, "pal", "owner")
	_, err = env.relationships.AcceptFriendRequest(ctx, "owner", fr.ID)
	require.NoError(t, err)
	access, err = env.relationships.CanViewHistory(ctx, "pal", "owner")
	require.NoError(t, err)
	assert.True(t, access.Visible)
}

func TestGetFilteredHistory_TimeRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fixed := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	env.relationships.now = func() time.Time { return fixed }

	_, err := env.relationships.UpdatePrivacySettings(ctx, "owner", model.UpdatePrivacyRequest{
		HistoryVisibility: ptr(model.VisibilityEveryone),
		HistoryTimeRange:  ptr(model.TimeRangeThreeDays),
	})
	require.NoError(t, err)

	history := []model.HistoryRecord{
		{ID: "recent", CreatedAt: model.At(fixed.Add(-24 * time.Hour))},
		{ID: "stale", CreatedAt: model.At(fixed.Add(-5 * 24 * time.Hour))},
	}

	got, visible, err := env.relationships.GetFilteredHistory(ctx, "anyone", "owner", history)
	require.NoError(t, err)
	assert.True(t, visible)
	require.Len(t, got, 1)
	assert.Equal(t, "recent", got[0].ID)

	own, visible, err := env.relationships.GetFilteredHistory(ctx, "owner", "owner", history)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Len(t, own, 2)
}
