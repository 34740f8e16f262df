// Package httpclient is a small JSON-over-HTTP client with retries, used
// by remote vehicle data sources.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// UserAgent is sent with every request.
const UserAgent = "ucrf-ingest/1.0"

// maxErrorBody caps how much of a failed response is kept in APIError.
const maxErrorBody = 512

// Client fetches JSON documents from one base URL.
type Client struct {
	baseURL    string
	token      string
	retries    int
	backoff    time.Duration
	httpClient *http.Client
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
	// RetryAfter is the server's requested delay; negative when the
	// response carried none.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithRetries sets how many times a retryable failure is resent.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for baseURL. An empty token sends no
// Authorization header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		retries:    3,
		backoff:    time.Second,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches path and decodes the body into dest. Rate-limited and
// 5xx responses are retried, honouring Retry-After when present.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		body, apiErr, err := c.get(ctx, target)
		if err != nil {
			return err
		}
		if apiErr == nil {
			return json.Unmarshal(body, dest)
		}
		if !apiErr.Retryable() || attempt == c.retries {
			return apiErr
		}
		if err := sleep(ctx, c.delay(attempt, apiErr)); err != nil {
			return err
		}
	}
}

// get sends one request. Transport failures come back as err, non-2xx
// responses as apiErr.
func (c *Client) get(ctx context.Context, target string) ([]byte, *APIError, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil, nil
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}

// delay is the wait before resending after the given attempt failed.
func (c *Client) delay(attempt int, apiErr *APIError) time.Duration {
	if apiErr.StatusCode == http.StatusTooManyRequests && apiErr.RetryAfter >= 0 {
		return apiErr.RetryAfter
	}
	return c.backoff << attempt
}

// parseRetryAfter accepts delta-seconds only; anything else is -1.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return -1
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
