package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"brewfeed/internal/auth"
	"brewfeed/internal/models"
	"brewfeed/internal/services"
)

// contextKey 是用于在 context.Context 中存储值的自定义类型，以避免键冲突。
type contextKey string

const (
	// UserIDKey 是用于在上下文中存储用户ID的键。
	UserIDKey contextKey = "userID"
	// UserKey holds the authenticated *models.User.
	UserKey contextKey = "user"
	// ClaimsKey holds the verified *auth.Claims.
	ClaimsKey contextKey = "claims"
)

// Authenticator verifies a bearer token and loads the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error)
}

// AuthMiddleware 验证 Bearer 令牌，并将用户和 claims 放入请求上下文。
// A token whose user no longer exists is rejected with 401.
func AuthMiddleware(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Token not provided")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeUnauthorized(w, "Invalid authorization header")
				return
			}

			user, claims, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked):
					writeUnauthorized(w, "Invalid or expired token")
				case errors.Is(err, services.ErrUserNotFound):
					writeUnauthorized(w, "User not found")
				default:
					logger.Error("authenticating request", "error", err)
					writeUnauthorized(w, "Invalid or expired token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserKey, user)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext 从上下文中获取用户ID。
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetUserFromContext returns the authenticated user.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok
}

// GetClaimsFromContext returns the verified token claims.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
