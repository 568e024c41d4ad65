// Package trigger is the external scheduler side of the automation
// endpoint: an HTTP client that posts run requests, and a cron loop that
// calls it. The server keeps no schedule of its own.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/marketing-pilot/internal/api"
	"github.com/nhle/marketing-pilot/internal/model"
)

// ErrUnauthorized is returned when the server rejects the secret.
var ErrUnauthorized = errors.New("automation secret rejected (401)")

// Client posts automation run requests to a marketing-pilot server.
// It retries with backoff on HTTP 429 and 503.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	maxRetries int
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default 60s-timeout client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many times a throttled request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient returns a client for the server at baseURL
// (e.g. http://localhost:8080).
func NewClient(baseURL, secret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run asks the server to execute check and returns its response.
func (c *Client) Run(ctx context.Context, check model.CheckType) (*api.RunResponse, error) {
	endpoint := c.baseURL + "/api/automations/run?type=" + url.QueryEscape(string(check))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set(api.SecretHeader, c.secret)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("posting %s: %w", check, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusServiceUnavailable:
			lastErr = fmt.Errorf("server busy (%d) running %s", resp.StatusCode, check)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}

		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrUnauthorized

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			var apiErr struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
				return nil, fmt.Errorf("server error (%d) running %s: %s", resp.StatusCode, check, apiErr.Error)
			}
			return nil, fmt.Errorf("unexpected status %d running %s: %s", resp.StatusCode, check, string(body))
		}

		var out api.RunResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decoding response for %s: %w", check, err)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and falls back to
// exponential backoff capped at 30s.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
