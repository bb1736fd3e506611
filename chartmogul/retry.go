package chartmogul

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryPolicy controls retries of idempotent requests (GET, DELETE).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 250 * time.Millisecond}
}

// RetryObservation captures one retried request attempt.
type RetryObservation struct {
	Method     string
	Path       string
	Attempt    int
	StatusCode int
	ErrorType  string
}

type attemptFunc func(ctx context.Context) error

func (c *Client) withRetry(ctx context.Context, method, path string, fn attemptFunc) error {
	policy := normalizeRetryPolicy(c.cfg.retry)
	if !isIdempotent(method) {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &TransportError{Method: method, Path: path, Err: err}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxAttempts || !isRetryableError(lastErr) {
			return lastErr
		}
		c.observeRetry(retryObservationFor(method, path, attempt, lastErr))

		wait := retryBackoffDuration(policy, attempt)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &TransportError{Method: method, Path: path, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return lastErr
}

func (c *Client) observeRetry(observation RetryObservation) {
	if c.onRetry == nil {
		return
	}
	c.onRetry(observation)
}

func retryObservationFor(method, path string, attempt int, err error) RetryObservation {
	observation := RetryObservation{Method: method, Path: path, Attempt: attempt}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		observation.StatusCode = apiErr.StatusCode
		observation.ErrorType = apiErr.ErrorType()
		return observation
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		observation.ErrorType = transportErr.ErrorType()
	}
	return observation
}

func normalizeRetryPolicy(policy RetryPolicy) RetryPolicy {
	out := policy
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 1
	}
	if out.Backoff < 0 {
		out.Backoff = 0
	}
	return out
}

func retryBackoffDuration(policy RetryPolicy, attempt int) time.Duration {
	if policy.Backoff <= 0 || attempt <= 0 {
		return 0
	}
	return policy.Backoff * time.Duration(attempt)
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, errLimiterDeadline) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Timeout()
	}
	return false
}
