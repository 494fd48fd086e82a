package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/promptcraft/backend/internal/logging"
	"github.com/promptcraft/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.Discard())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(userID string) int {
		r := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		if userID != "" {
			r = r.WithContext(WithUser(r.Context(), &models.User{ID: userID}))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("user-1"))
	assert.Equal(t, http.StatusOK, request("user-1"))
	assert.Equal(t, http.StatusTooManyRequests, request("user-1"))

	// Buckets are per user.
	assert.Equal(t, http.StatusOK, request("user-2"))
	assert.Equal(t, http.StatusOK, request(""))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.Discard())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("old")
	now = now.Add(10 * time.Minute)
	rl.getLimiter("fresh")

	rl.Cleanup(5 * time.Minute)

	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "fresh")
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
