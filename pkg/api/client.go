// Package api provides an HTTP client layer with rate limiting and
// retry policies for remote API access.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httputil "github.com/luokai/weiboarchive/pkg/http"
)

// ClientConfig configures the API client
type ClientConfig struct {
	BaseClient     *http.Client
	RateLimiter    RateLimiter
	RetryPolicy    *RetryPolicy
	UserAgent      string
	DefaultHeaders map[string]string
}

// Client provides HTTP access with rate limiting, retries, and standard headers
type Client struct {
	client         *http.Client
	rateLimiter    RateLimiter
	retryPolicy    *RetryPolicy
	userAgent      string
	defaultHeaders map[string]string
}

// NewClient creates a new API client with the provided configuration
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}
	if config.BaseClient == nil {
		config.BaseClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.RateLimiter == nil {
		config.RateLimiter = NewNoOpRateLimiter()
	}
	if config.RetryPolicy == nil {
		config.RetryPolicy = DefaultRetryPolicy()
	}
	if config.UserAgent == "" {
		config.UserAgent = "weibo-archive/1.0"
	}
	if config.DefaultHeaders == nil {
		config.DefaultHeaders = make(map[string]string)
	}

	return &Client{
		client:         config.BaseClient,
		rateLimiter:    config.RateLimiter,
		retryPolicy:    config.RetryPolicy,
		userAgent:      config.UserAgent,
		defaultHeaders: config.DefaultHeaders,
	}
}

// SetUserAgent overrides the client's User-Agent header
func (c *Client) SetUserAgent(userAgent string) {
	c.userAgent = userAgent
}

// SetDefaultHeader sets a header applied to every request
func (c *Client) SetDefaultHeader(key, value string) {
	c.defaultHeaders[key] = value
}

// GetAndDecode performs an HTTP GET request with rate limiting, retries, and JSON decoding
func (c *Client) GetAndDecode(ctx context.Context, url string, target any, additionalHeaders map[string]string) error {
	operation := func() error {
		c.rateLimiter.Wait()

		req, err := c.newRequest(ctx, url, additionalHeaders)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := c.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			c.logAPICall(url, duration, false, err)
			return fmt.Errorf("failed to perform GET request: %w", err)
		}
		defer func() { _ = res.Body.Close() }()

		if err := httputil.EnsureStatusOK(res); err != nil {
			c.logAPICall(url, duration, false, err)
			// Carry the status code so the retry policy can classify it
			return &HTTPError{
				StatusCode: res.StatusCode,
				Message:    err.Error(),
			}
		}

		if err := json.NewDecoder(res.Body).Decode(target); err != nil {
			c.logAPICall(url, duration, false, err)
			return fmt.Errorf("failed to decode json response: %w", err)
		}

		c.logAPICall(url, duration, true, nil)
		return nil
	}

	return ExecuteWithRetry(ctx, operation, c.retryPolicy, fmt.Sprintf("GET %s", url))
}

// Get performs a single rate-limited GET request and returns the raw
// response. The caller owns the body and any retry decision.
func (c *Client) Get(ctx context.Context, url string, additionalHeaders map[string]string) (*http.Response, error) {
	c.rateLimiter.Wait()

	req, err := c.newRequest(ctx, url, additionalHeaders)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform GET request: %w", err)
	}
	return res, nil
}

func (c *Client) newRequest(ctx context.Context, url string, additionalHeaders map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}

	// Additional headers override defaults
	for key, value := range additionalHeaders {
		req.Header.Set(key, value)
	}

	return req, nil
}

func (c *Client) logAPICall(url string, duration time.Duration, success bool, err error) {
	if success {
		slog.Debug("API call completed", "url", url, "duration", duration)
		return
	}
	slog.Debug("API call failed", "url", url, "duration", duration, "error", err)
}
