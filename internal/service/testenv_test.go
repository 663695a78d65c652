package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"outfitsquare/internal/database"
	"outfitsquare/internal/queue"
	"outfitsquare/internal/repository"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return "test-0", nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

// stepClock returns a strictly increasing time on every call so rows never
// share a timestamp.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{now: start}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testEnv struct {
	db        *sqlx.DB
	publisher *recordingPublisher
	clock     *stepClock

	directoryRepo repository.DirectoryRepository
	friendRepo    repository.FriendRepository
	followRepo    repository.FollowRepository
	postRepo      repository.PostRepository
	commentRepo   repository.CommentRepository
	ratingRepo    repository.RatingRepository
	notifRepo     repository.NotificationRepository
	tokenRepo     repository.DeviceTokenRepository

	relationships *RelationshipService
	posts         *PostService
	comments      *CommentService
	users         *UserService
	history       *HistoryService
	feed          *FeedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:            db,
		publisher:     &recordingPublisher{},
		clock:         newStepClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		directoryRepo: repository.NewDirectoryRepository(db),
		friendRepo:    repository.NewFriendRepository(db),
		followRepo:    repository.NewFollowRepository(db),
		postRepo:      repository.NewPostRepository(db),
		commentRepo:   repository.NewCommentRepository(db),
		ratingRepo:    repository.NewRatingRepository(db),
		notifRepo:     repository.NewNotificationRepository(db),
		tokenRepo:     repository.NewDeviceTokenRepository(db),
	}

	env.relationships = NewRelationshipService(env.friendRepo, env.followRepo,
		repository.NewPrivacyRepository(db), env.directoryRepo, db, env.publisher)
	env.relationships.now = env.clock.Now

	env.posts = NewPostService(env.postRepo, env.commentRepo, env.ratingRepo,
		env.directoryRepo, env.notifRepo, db, env.publisher)
	env.posts.now = env.clock.Now

	env.comments = NewCommentService(env.commentRepo, env.postRepo, env.directoryRepo, db, env.publisher)
	env.comments.now = env.clock.Now

	env.users = NewUserService(env.directoryRepo, env.relationships, env.posts, db)

	env.history = NewHistoryService(repository.NewHistoryRepository(db), env.relationships, db)
	env.history.now = env.clock.Now

	env.feed = NewFeedService(nil, env.postRepo, env.followRepo, env.posts)
	return env
}

func ptr[T any](v T) *T { return &v }
