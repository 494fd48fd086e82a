package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/promptcraft/backend/internal/models"
	"github.com/promptcraft/backend/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// RoleAdmin is the role claim that unlocks the admin routes.
const RoleAdmin = "admin"

// ErrBlacklistUnavailable is returned by RevokeToken when Redis is not
// configured.
var ErrBlacklistUnavailable = errors.New("token blacklist unavailable")

type contextKey string

const userKey contextKey = "user"

var redisClient *redis.Client

// InitAuthMiddleware enables the token blacklist. A nil client disables it.
func InitAuthMiddleware(client *redis.Client) {
	redisClient = client
}

// Claims are issued by the identity provider.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			services.SendErrorResponse(w, services.CodeUnauthorized, "Authorization header required", http.StatusUnauthorized, nil)
			return
		}

		claims, err := validateToken(token)
		if err != nil {
			logrus.WithField("component", "auth").WithError(err).Debug("Token rejected")
			services.SendErrorResponse(w, services.CodeUnauthorized, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		if isBlacklisted(r.Context(), token) {
			services.SendErrorResponse(w, services.CodeUnauthorized, "Token has been revoked", http.StatusUnauthorized, nil)
			return
		}

		user := &models.User{
			ID:    claims.UserID,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  claims.Role,
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			services.SendErrorResponse(w, services.CodeUnauthorized, "Authentication required", http.StatusUnauthorized, nil)
			return
		}
		if user.Role != RoleAdmin {
			logrus.WithFields(logrus.Fields{
				"component": "auth",
				"user_id":   user.ID,
				"path":      r.URL.Path,
			}).Warn("Admin route denied")
			services.SendErrorResponse(w, services.CodeForbidden, "Admin role required", http.StatusForbidden, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RevokeToken blacklists token until its own expiry.
func RevokeToken(ctx context.Context, token string) error {
	if redisClient == nil {
		return ErrBlacklistUnavailable
	}
	claims, err := validateToken(token)
	if err != nil {
		return err
	}
	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return redisClient.Set(ctx, "blacklist:"+token, "1", ttl).Err()
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// GetUserID returns the authenticated user id, or "".
func GetUserID(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.ID
	}
	return ""
}

func validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, errors.New("token carries no user_id")
	}
	return claims, nil
}

// isBlacklisted fails open when Redis is unreachable.
func isBlacklisted(ctx context.Context, token string) bool {
	if redisClient == nil {
		return false
	}
	n, err := redisClient.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		logrus.WithField("component", "auth").WithError(err).Warn("Token blacklist lookup failed")
		return false
	}
	return n > 0
}
