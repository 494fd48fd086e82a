// Package generation is the client for the upstream AI generation service
// whose calls are metered in credits.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream marks a non-2xx answer from the generation service.
var ErrUpstream = errors.New("generation upstream error")

// Client calls the generation service.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}

	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request is one generation call.
type Request struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	UserID string `json:"user,omitempty"`
}

// Response is the upstream answer.
type Response struct {
	Output string `json:"output"`
	Model  string `json:"model,omitempty"`
}

// Generate performs a single upstream call. It does not retry.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s - %s", ErrUpstream, resp.Status, strings.TrimSpace(string(respBody)))
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &result, nil
}
