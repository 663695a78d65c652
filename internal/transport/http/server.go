package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/cache"
	"outfitsquare/internal/config"
	"outfitsquare/internal/database"
	"outfitsquare/internal/handler"
	"outfitsquare/internal/queue"
	"outfitsquare/internal/redis"
	"outfitsquare/internal/repository"
	"outfitsquare/internal/service"
	"outfitsquare/internal/worker"
)

const (
	redisConnectTimeout = 5 * time.Second
	shutdownTimeout     = 15 * time.Second
)

// App is the wired server: router plus the background pieces that need
// shutting down.
type App struct {
	Router        chi.Router
	Notifications *service.NotificationService

	redis   *redis.Client
	workers *worker.Manager
}

// NewApp builds repositories, services and handlers on top of db. Redis,
// R2 and FCM are optional: without Redis events are handled inline and the
// following feed reads straight from the database.
func NewApp(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*App, error) {
	app := &App{}

	directoryRepo := repository.NewDirectoryRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	followRepo := repository.NewFollowRepository(db)
	privacyRepo := repository.NewPrivacyRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)

	var feedCache cache.FeedCache
	if cfg.RedisURL != "" {
		rc, err := redis.NewClient(ctx, cfg.RedisURL, redisConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = rc
		feedCache = cache.NewFeedCache(rc.Client)
		log.Printf("[Server] Redis connected, feed cache and event stream enabled")
	} else {
		log.Printf("[Server] REDIS_URL not set, handling events inline")
	}

	var pushers []service.Pusher
	if cfg.ExpoPushEnabled {
		pushers = append(pushers, service.NewExpoPushClient())
	}
	if cfg.FCMCredentialsFile != "" || cfg.FCMProjectID != "" {
		fcm, err := service.NewFCMClient(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile)
		if err != nil {
			log.Printf("[Server] FCM disabled: %v", err)
		} else {
			pushers = append(pushers, fcm)
		}
	}
	app.Notifications = service.NewNotificationService(notifRepo, tokenRepo, pushers...)

	eventHandler := worker.NewHandler(feedCache, followRepo, postRepo)
	eventHandler.SetNotificationCreator(app.Notifications)

	var publisher queue.Publisher
	if app.redis != nil {
		publisher = queue.NewPublisher(app.redis.Client)
		app.workers = worker.NewManager(queue.NewConsumer(app.redis.Client), eventHandler, worker.ManagerConfig{
			WorkerCount: cfg.WorkerCount,
		})
		if err := app.workers.Start(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start workers: %w", err)
		}
	} else {
		publisher = worker.NewInlinePublisher(eventHandler)
	}

	relationships := service.NewRelationshipService(friendRepo, followRepo, privacyRepo, directoryRepo, db, publisher)
	posts := service.NewPostService(postRepo, commentRepo, ratingRepo, directoryRepo, notifRepo, db, publisher)
	comments := service.NewCommentService(commentRepo, postRepo, directoryRepo, db, publisher)
	users := service.NewUserService(directoryRepo, relationships, posts, db)
	history := service.NewHistoryService(historyRepo, relationships, db)
	feed := service.NewFeedService(feedCache, postRepo, followRepo, posts)

	var media *service.MediaService
	if cfg.MediaEnabled() {
		m, err := service.NewMediaService(ctx, cfg)
		if err != nil {
			log.Printf("[Server] Media uploads disabled: %v", err)
		} else {
			media = m
		}
	}

	app.Router = NewRouter(RouterConfig{
		UserHandler:         handler.NewUserHandler(users),
		RelationshipHandler: handler.NewRelationshipHandler(relationships),
		FollowHandler:       handler.NewFollowHandler(relationships),
		HistoryHandler:      handler.NewHistoryHandler(history),
		FeedHandler:         handler.NewFeedHandler(feed),
		PostHandler:         handler.NewPostHandler(posts),
		CommentHandler:      handler.NewCommentHandler(comments),
		NotificationHandler: handler.NewNotificationHandler(app.Notifications),
		MediaHandler:        handler.NewMediaHandler(media),
		JWTSecret:           cfg.JWTSecret,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
	})
	return app, nil
}

// Close stops the workers, waits for pending pushes and releases Redis.
func (a *App) Close() {
	if a.workers != nil {
		a.workers.Stop()
	}
	if a.Notifications != nil {
		a.Notifications.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("[Server] Redis close: %v", err)
		}
	}
}

// Run connects to the database (migrating it) and serves until SIGINT
// or SIGTERM.
func Run(cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
