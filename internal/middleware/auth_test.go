package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/promptcraft/backend/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, userID, role string) string {
	return signToken(t, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, jwt.SigningMethodHS256, []byte(testSecret))
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(user.ID + ":" + user.Role))
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", testSecret)
	defer viper.Reset()
	InitAuthMiddleware(nil)

	handler := AuthMiddleware(http.HandlerFunc(echoUser))

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Bearer "+userToken(t, "user-1", "user"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1:user", w.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, Claims{UserID: "user-1"}, jwt.SigningMethodHS256, []byte("other"))
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}, jwt.SigningMethodHS256, []byte(testSecret))
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token without user id", func(t *testing.T) {
		token := signToken(t, Claims{Role: "admin"}, jwt.SigningMethodHS256, []byte(testSecret))
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddleware_Blacklist(t *testing.T) {
	viper.Set("jwt.secret_key", testSecret)
	defer viper.Reset()

	client, mock := redismock.NewClientMock()
	InitAuthMiddleware(client)
	defer InitAuthMiddleware(nil)

	handler := AuthMiddleware(http.HandlerFunc(echoUser))
	token := userToken(t, "user-1", "user")

	t.Run("revoked token", func(t *testing.T) {
		mock.ExpectExists("blacklist:" + token).SetVal(1)

		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure fails open", func(t *testing.T) {
		mock.ExpectExists("blacklist:" + token).SetErr(errors.New("connection refused"))

		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("revoking a forged token fails", func(t *testing.T) {
		forged := signToken(t, Claims{UserID: "user-1"}, jwt.SigningMethodHS256, []byte("other"))
		assert.Error(t, RevokeToken(context.Background(), forged))
	})
}

func TestRevokeToken_NoRedis(t *testing.T) {
	viper.Set("jwt.secret_key", testSecret)
	defer viper.Reset()
	InitAuthMiddleware(nil)

	assert.ErrorIs(t, RevokeToken(context.Background(), userToken(t, "user-1", "user")), ErrBlacklistUnavailable)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(echoUser))

	t.Run("admin passes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/credits/alerts", nil)
		r = r.WithContext(WithUser(r.Context(), &models.User{ID: "admin-1", Role: RoleAdmin}))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("user is forbidden", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/credits/alerts", nil)
		r = r.WithContext(WithUser(r.Context(), &models.User{ID: "user-1", Role: "user"}))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FORBIDDEN")
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/credits/alerts", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
