package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestParseCursor(t *testing.T) {
	id, ts, err := parseCursor("google:abc:1700000000000")
	require.NoError(t, err)
	assert.Equal(t, "google:abc", id)
	assert.Equal(t, int64(1700000000000), ts)

	for _, bad := range []string{"", "nocolon", ":123", "id:", "id:notanumber"} {
		_, _, err := parseCursor(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "p1:42", formatCursor("p1", 42))
}

func TestDirectory_UpsertKeepsExistingFields(t *testing.T) {
	db := openDB(t)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, db, &model.DirectoryEntry{
		UserID: "u1", Nickname: "Alice", Avatar: ptr("a.png"), UpdatedAt: model.Now(),
	}))
	// Empty nickname and nil avatar must not clobber the stored values.
	require.NoError(t, repo.Upsert(ctx, db, &model.DirectoryEntry{UserID: "u1", Phone: ptr("555"), UpdatedAt: model.Now()}))

	e, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.Nickname)
	require.NotNil(t, e.Avatar)
	assert.Equal(t, "a.png", *e.Avatar)
	require.NotNil(t, e.Phone)
	assert.Equal(t, "555", *e.Phone)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	found, err := repo.Search(ctx, "ALI", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "u1", found[0].UserID)
}

func TestDirectory_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := openDB(t)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	for id, nick := range map[string]string{"u1": "Alice", "u2": "Bob", "u3": "100% Bob", "u4": "b_b", "u5": `back\slash`} {
		require.NoError(t, repo.Upsert(ctx, db, &model.DirectoryEntry{UserID: id, Nickname: nick, UpdatedAt: model.Now()}))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"%", []string{"u3"}},
		{"_", []string{"u4"}},
		{"b_b", []string{"u4"}},
		{`\`, []string{"u5"}},
		{"bob", []string{"u3", "u2"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			found, err := repo.Search(ctx, tt.query, 10)
			require.NoError(t, err)
			var ids []string
			for _, u := range found {
				ids = append(ids, u.UserID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFriend_EdgeIsSymmetric(t *testing.T) {
	db := openDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	created, err := repo.CreateFriendship(ctx, db, "u2", "u1", model.Now())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateFriendship(ctx, db, "u1", "u2", model.Now())
	require.NoError(t, err)
	assert.False(t, created, "same unordered pair must not create a second edge")

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		ok, err := repo.AreFriends(ctx, db, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	f1, err := repo.ListFriends(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, f1, 1)
	assert.Equal(t, "u2", f1[0].UserID)

	f2, err := repo.ListFriends(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, f2, 1)
	assert.Equal(t, "u1", f2[0].UserID)

	deleted, err := repo.DeleteFriendship(ctx, db, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)
	ok, err := repo.AreFriends(ctx, db, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFriend_ResolveRequestOnlyOnce(t *testing.T) {
	db := openDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	req := &model.FriendRequest{
		ID: "r1", FromUserID: "u1", FromUserNickname: "Alice", ToUserID: "u2",
		Status: model.RequestStatusPending, CreatedAt: model.Now(),
	}
	require.NoError(t, repo.CreateRequest(ctx, db, req))

	pending, err := repo.FindPendingBetween(ctx, db, "u2", "u1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "r1", pending.ID)

	ok, err := repo.ResolveRequest(ctx, db, "r1", model.RequestStatusAccepted, model.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ResolveRequest(ctx, db, "r1", model.RequestStatusRejected, model.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetRequest(ctx, db, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, got.Status)
	require.NotNil(t, got.RespondedAt)

	pending, err = repo.FindPendingBetween(ctx, db, "u1", "u2")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestFollow_CursorPagination(t *testing.T) {
	db := openDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, follower := range []string{"a", "b", "c"} {
		created, err := repo.Create(ctx, db, follower, "star", model.At(base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		require.True(t, created)
	}

	page1, next, err := repo.GetFollowers(ctx, "star", nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "c", page1[0].UserID)
	assert.Equal(t, "b", page1[1].UserID)
	require.NotNil(t, next)

	page2, next, err := repo.GetFollowers(ctx, "star", next, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "a", page2[0].UserID)
	assert.Nil(t, next)

	checks, err := repo.CheckFollows(ctx, "a", []string{"star", "nobody"})
	require.NoError(t, err)
	assert.True(t, checks["star"])
	assert.False(t, checks["nobody"])

	require.NoError(t, repo.Delete(ctx, db, "a", "star"))
	assert.ErrorIs(t, repo.Delete(ctx, db, "a", "star"), model.ErrNotFollowing)
}

func TestPost_SourceUniquenessAndChildren(t *testing.T) {
	db := openDB(t)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ratings := NewRatingRepository(db)
	ctx := context.Background()

	p := &model.SquarePost{
		ID: "p1", UserID: "u1", UserNickname: "Alice", PostType: model.PostTypeOutfitChange,
		OutfitChangeID: ptr("oc_42"), CreatedAt: model.Now(),
	}
	created, err := posts.Create(ctx, db, p)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *p
	dup.ID = "p2"
	created, err = posts.Create(ctx, db, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	bySource, err := posts.GetBySource(ctx, db, "u1", "oc_42")
	require.NoError(t, err)
	assert.Equal(t, "p1", bySource.ID)

	liked, err := posts.Like(ctx, db, "p1", "u2", model.Now())
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = posts.Like(ctx, db, "p1", "u2", model.Now())
	require.NoError(t, err)
	assert.False(t, liked)

	require.NoError(t, ratings.Upsert(ctx, db, &model.UserRating{PostID: "p1", UserID: "u2", Score: 5, CreatedAt: model.Now()}))
	require.NoError(t, ratings.Upsert(ctx, db, &model.UserRating{PostID: "p1", UserID: "u2", Score: 8, CreatedAt: model.Now()}))
	list, err := ratings.ListByPost(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 8, list[0].Score)

	require.NoError(t, comments.Create(ctx, db, &model.SquareComment{
		ID: "c1", PostID: "p1", UserID: "u2", UserNickname: "Bob", Content: "nice", CreatedAt: model.Now(),
	}))

	require.NoError(t, posts.Delete(ctx, db, "p1"))
	_, err = posts.GetByID(ctx, db, "p1")
	assert.ErrorIs(t, err, model.ErrPostNotFound)
	_, err = comments.GetByID(ctx, db, "c1")
	assert.ErrorIs(t, err, model.ErrCommentNotFound)
	likes, err := posts.GetLikes(ctx, db, "p1")
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestPost_ListPagination(t *testing.T) {
	db := openDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := posts.Create(ctx, db, &model.SquarePost{
			ID: string(rune('a' + i)), UserID: "u1", PostType: model.PostTypeOriginal,
			CreatedAt: model.At(base.Add(time.Duration(i) * time.Hour)),
		})
		require.NoError(t, err)
	}

	var seen []string
	var cursor *string
	for {
		page, next, err := posts.List(ctx, cursor, 2)
		require.NoError(t, err)
		for _, p := range page {
			seen = append(seen, p.ID)
		}
		if next == nil {
			break
		}
		cursor = next
	}
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, seen)

	feed, err := posts.GetFeedPostIDs(ctx, []string{"u1"}, nil, 3)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, "e", feed[0].PostID)
	assert.Equal(t, base.Add(4*time.Hour).UnixMilli(), feed[0].Timestamp)
}

func TestDirectory_Stats(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	dir := NewDirectoryRepository(db)
	follows := NewFollowRepository(db)
	friends := NewFriendRepository(db)
	posts := NewPostRepository(db)

	_, err := follows.Create(ctx, db, "u1", "u2", model.Now())
	require.NoError(t, err)
	_, err = follows.Create(ctx, db, "u3", "u1", model.Now())
	require.NoError(t, err)
	_, err = friends.CreateFriendship(ctx, db, "u1", "u3", model.Now())
	require.NoError(t, err)
	_, err = posts.Create(ctx, db, &model.SquarePost{ID: "p1", UserID: "u1", PostType: model.PostTypeOriginal, CreatedAt: model.Now()})
	require.NoError(t, err)
	_, err = posts.Like(ctx, db, "p1", "u3", model.Now())
	require.NoError(t, err)

	stats, err := dir.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.UserStats{FollowingCount: 1, FollowersCount: 1, FriendsCount: 1, PostsCount: 1, LikesReceived: 1}, *stats)
}
