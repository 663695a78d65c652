package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"outfitsquare/internal/httputil"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

var errMissingToken = errors.New("missing token")

// AuthMiddleware rejects requests without a valid bearer token.
// Checks Authorization header first (for mobile), then falls back to cookie (for web)
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, jwtSecret)
			if err != nil {
				switch {
				case errors.Is(err, errMissingToken):
					httputil.WriteUnauthorized(w, "Missing authentication token")
				case errors.Is(err, jwt.ErrTokenExpired):
					httputil.WriteUnauthorizedWithCode(w, httputil.CodeTokenExpired, "Access token has expired")
				default:
					httputil.WriteUnauthorizedWithCode(w, httputil.CodeTokenInvalid, "Invalid authentication token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the user ID when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := authenticate(r, jwtSecret); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, jwtSecret string) (string, error) {
	var tokenString string

	// 1. Try Authorization header first (mobile apps)
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString = strings.TrimSpace(parts[1])
		}
	}

	// 2. Fall back to cookie (web browsers)
	if tokenString == "" {
		if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
			tokenString = cookie.Value
		}
	}

	if tokenString == "" {
		return "", errMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	// The identity provider issues opaque string user IDs.
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return userID, nil
}

// SignToken issues an HS256 token carrying user_id, for development and tests.
func SignToken(jwtSecret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(jwtSecret))
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or "" and false if not found
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// ViewerID returns the caller's ID for optional-auth routes, or nil.
func ViewerID(ctx context.Context) *string {
	if id, ok := GetUserIDFromContext(ctx); ok {
		return &id
	}
	return nil
}
