package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"outfitsquare/internal/handler"
	"outfitsquare/internal/httputil"
	"outfitsquare/internal/metrics"
	authmw "outfitsquare/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	UserHandler         *handler.UserHandler
	RelationshipHandler *handler.RelationshipHandler
	FollowHandler       *handler.FollowHandler
	HistoryHandler      *handler.HistoryHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	MediaHandler        *handler.MediaHandler
	JWTSecret           string
	AllowedOrigins      []string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authmw.Metrics)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.NotFound(httputil.NotFound)
	r.MethodNotAllowed(httputil.MethodNotAllowed)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	optional := authmw.OptionalAuthMiddleware(cfg.JWTSecret)

	// Public reads; a valid token adds viewer-specific fields
	r.Group(func(r chi.Router) {
		r.Use(optional)

		r.Get("/users/search", cfg.UserHandler.Search)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/posts", cfg.PostHandler.GetUserPosts)
		r.Get("/users/{id}/history", cfg.HistoryHandler.ListUser)

		r.Get("/square", cfg.PostHandler.ListSquare)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/rating", cfg.PostHandler.GetRating)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Route("/me", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.Me)
			r.Patch("/", cfg.UserHandler.UpdateMe)
			r.Get("/privacy", cfg.RelationshipHandler.GetPrivacy)
			r.Put("/privacy", cfg.RelationshipHandler.UpdatePrivacy)
			r.Get("/history", cfg.HistoryHandler.ListOwn)
			r.Post("/history", cfg.HistoryHandler.Create)
			r.Delete("/history/{id}", cfg.HistoryHandler.Delete)
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", cfg.RelationshipHandler.ListFriends)
			r.Get("/requests", cfg.RelationshipHandler.ListRequests)
			r.Post("/requests", cfg.RelationshipHandler.SendRequest)
			r.Post("/requests/{id}/accept", cfg.RelationshipHandler.AcceptRequest)
			r.Post("/requests/{id}/reject", cfg.RelationshipHandler.RejectRequest)
			r.Delete("/{id}", cfg.RelationshipHandler.RemoveFriend)
		})

		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

		r.Get("/feed", cfg.FeedHandler.GetFeed)

		r.Post("/posts", cfg.PostHandler.Publish)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Delete("/posts/source/{outfitChangeId}", cfg.PostHandler.DeleteBySource)
		r.Post("/posts/{id}/like", cfg.PostHandler.Like)
		r.Put("/posts/{id}/rating", cfg.PostHandler.Rate)
		r.Delete("/posts/{id}/rating", cfg.PostHandler.RemoveRating)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Add)
		r.Post("/posts/{id}/comments/{commentId}/pin", cfg.CommentHandler.Pin)
		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Patch("/read", cfg.NotificationHandler.MarkRead)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			r.Get("/unread-count", cfg.NotificationHandler.UnreadCount)
		})

		r.Post("/devices/token", cfg.NotificationHandler.RegisterToken)
		r.Delete("/devices/token", cfg.NotificationHandler.RemoveToken)

		// Media endpoints (server-side upload or direct-to-R2 presign)
		r.Post("/media/posts", cfg.MediaHandler.Upload)
		r.Post("/media/posts/presign", cfg.MediaHandler.PresignPostUpload)
	})

	return r
}
