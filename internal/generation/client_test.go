package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Generate(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

			var req Request
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "a red fox", req.Prompt)
			assert.Equal(t, "user-1", req.UserID)

			json.NewEncoder(w).Encode(Response{Output: "fox.png", Model: "img-1"})
		}))
		defer server.Close()

		client := New(Config{URL: server.URL, APIKey: "key-1"})
		resp, err := client.Generate(context.Background(), &Request{Prompt: "a red fox", UserID: "user-1"})
		require.NoError(t, err)
		assert.Equal(t, "fox.png", resp.Output)
		assert.Equal(t, "img-1", resp.Model)
	})

	t.Run("upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := New(Config{URL: server.URL})
		_, err := client.Generate(context.Background(), &Request{Prompt: "x"})
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := New(Config{URL: server.URL})
		_, err := client.Generate(context.Background(), &Request{Prompt: "x"})
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := New(Config{URL: server.URL, Timeout: 20 * time.Millisecond})
		_, err := client.Generate(context.Background(), &Request{Prompt: "x"})
		assert.Error(t, err)
	})
}
