package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// RetryPolicy defines the configuration for retry behavior
type RetryPolicy struct {
	MaxAttempts       int // 0 means retry without bound
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	RetryableErrors   []int // HTTP status codes that should trigger retries; empty means any
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableErrors:   []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// PatientRetryPolicy returns a policy that never gives up: a fixed
// cooldown between attempts, no attempt ceiling, and every HTTP status
// treated as retryable. Suited to unattended archival jobs where a
// stalled download is preferable to a lost one.
func PatientRetryPolicy(cooldown time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       0,
		InitialBackoff:    cooldown,
		MaxBackoff:        cooldown,
		BackoffMultiplier: 1.0,
	}
}

// Unbounded reports whether the policy retries without an attempt ceiling.
func (rp *RetryPolicy) Unbounded() bool {
	return rp.MaxAttempts <= 0
}

// CalculateBackoff calculates the backoff duration for a given attempt
func (rp *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := float64(rp.InitialBackoff) * math.Pow(rp.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(rp.MaxBackoff) {
		backoff = float64(rp.MaxBackoff)
	}

	return time.Duration(backoff)
}

// IsRetryableError checks if an error should trigger a retry
func (rp *RetryPolicy) IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if httpErr, ok := err.(*HTTPError); ok {
		return rp.isRetryableStatusCode(httpErr.StatusCode)
	}

	// RetrieveError carries the token endpoint's HTTP status. No source
	// in this binary is OAuth-fronted yet; the policy classifies it for
	// callers that are.
	if oauthErr, ok := err.(*oauth2.RetrieveError); ok {
		return rp.isRetryableStatusCode(oauthErr.Response.StatusCode)
	}

	// Transport-level errors: only the retry-everything policies keep going
	return len(rp.RetryableErrors) == 0
}

// isRetryableStatusCode checks if a status code should trigger retries
func (rp *RetryPolicy) isRetryableStatusCode(statusCode int) bool {
	if len(rp.RetryableErrors) == 0 {
		return true
	}
	for _, code := range rp.RetryableErrors {
		if statusCode == code {
			return true
		}
	}
	return false
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// ExecuteWithRetry executes an operation with retry logic. With an
// unbounded policy the only exits are operation success, a non-retryable
// error, or context cancellation.
func ExecuteWithRetry(ctx context.Context, operation RetryableOperation, policy *RetryPolicy, operationName string) error {
	var lastErr error

	for attempt := 1; policy.Unbounded() || attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := policy.CalculateBackoff(attempt - 1)
			slog.Warn("Retrying operation",
				"operation", operationName,
				"attempt", attempt,
				"backoff", backoff,
				"lastError", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := operation()
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry",
					"operation", operationName,
					"attempt", attempt)
			}
			return nil
		}

		lastErr = err

		if !policy.IsRetryableError(err) {
			slog.Debug("Error is not retryable, stopping",
				"operation", operationName,
				"attempt", attempt,
				"error", err)
			return fmt.Errorf("operation %s failed: %w", operationName, lastErr)
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, policy.MaxAttempts, lastErr)
}
