package chartmogul

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// Client issues typed calls against the ChartMogul API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	onRetry func(RetryObservation)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryHook registers a callback invoked before every retry.
func WithRetryHook(fn func(RetryObservation)) Option {
	return func(c *Client) {
		c.onRetry = fn
	}
}

// NewClient returns a Client bound to cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if !cfg.Valid() {
		return nil, &ConfigError{Field: "token", Err: ErrMissingToken}
	}
	c := &Client{
		cfg:  cfg,
		http: sharedTransports.clientFor(cfg),
	}
	if cfg.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.burst)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Config returns the client's configuration snapshot.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chartmogul: encode %s %s request: %w", method, path, err)
		}
		payload = encoded
	}
	return c.withRetry(ctx, method, path, func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, query, payload, out)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Method: method, Path: path, Err: limiterWaitError(ctx, err)}
		}
	}

	endpoint := c.cfg.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("chartmogul: build %s %s request: %w", method, path, err)
	}
	req.SetBasicAuth(c.cfg.token, "")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(method, path, resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// errLimiterDeadline reports a rate limiter wait that cannot finish before the
// context deadline. It is a timeout but not worth retrying.
var errLimiterDeadline = fmt.Errorf("chartmogul: rate limit wait would exceed context deadline: %w", context.DeadlineExceeded)

func limiterWaitError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok && strings.Contains(err.Error(), "deadline") {
		return errLimiterDeadline
	}
	return err
}

func setIf(q url.Values, key, value string) {
	if clean := strings.TrimSpace(value); clean != "" {
		q.Set(key, clean)
	}
}

func escapeID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
