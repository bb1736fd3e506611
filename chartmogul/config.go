package chartmogul

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production ChartMogul API root.
	DefaultBaseURL = "https://api.chartmogul.com/v1"

	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 20
	defaultBurst     = 5
	defaultUserAgent = "chartmogul-mcp"
)

// ConnectionPool sizes the idle connection pool of the HTTP transport.
type ConnectionPool struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultConnectionPool returns the pool used when none is configured.
func DefaultConnectionPool() ConnectionPool {
	return ConnectionPool{MaxIdleConns: 100, MaxIdleConnsPerHost: 20, IdleConnTimeout: 90 * time.Second}
}

// ErrMissingToken is returned when no API key is supplied.
var ErrMissingToken = errors.New("chartmogul: API key is required")

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("chartmogul: invalid config %s: %v", e.Field, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Config is an immutable snapshot of the credentials and runtime settings used by a
// Client. The zero value is not usable; build one with NewConfig.
type Config struct {
	token     string
	baseURL   string
	timeout   time.Duration
	rateLimit float64
	burst     int
	retry     RetryPolicy
	pool      ConnectionPool
	userAgent string
}

// ConfigOption customizes a Config during NewConfig.
type ConfigOption func(*Config)

// WithBaseURL overrides the API root, mostly for tests and proxies.
func WithBaseURL(raw string) ConfigOption {
	return func(c *Config) {
		if clean := strings.TrimSpace(raw); clean != "" {
			c.baseURL = strings.TrimRight(clean, "/")
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit sets the client-side request budget. A non-positive rps disables
// limiting.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.rateLimit = rps
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithRetryPolicy sets the retry policy for idempotent requests.
func WithRetryPolicy(policy RetryPolicy) ConfigOption {
	return func(c *Config) {
		c.retry = policy
	}
}

// WithConnectionPool overrides the non-zero fields of the default pool.
func WithConnectionPool(pool ConnectionPool) ConfigOption {
	return func(c *Config) {
		if pool.MaxIdleConns > 0 {
			c.pool.MaxIdleConns = pool.MaxIdleConns
		}
		if pool.MaxIdleConnsPerHost > 0 {
			c.pool.MaxIdleConnsPerHost = pool.MaxIdleConnsPerHost
		}
		if pool.IdleConnTimeout > 0 {
			c.pool.IdleConnTimeout = pool.IdleConnTimeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ConfigOption {
	return func(c *Config) {
		if clean := strings.TrimSpace(ua); clean != "" {
			c.userAgent = clean
		}
	}
}

// NewConfig builds a Config from an API key and options. A blank key yields a
// *ConfigError wrapping ErrMissingToken.
func NewConfig(token string, opts ...ConfigOption) (Config, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Config{}, &ConfigError{Field: "token", Err: ErrMissingToken}
	}

	cfg := Config{
		token:     token,
		baseURL:   DefaultBaseURL,
		timeout:   defaultTimeout,
		rateLimit: defaultRateLimit,
		burst:     defaultBurst,
		retry:     DefaultRetryPolicy(),
		pool:      DefaultConnectionPool(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	parsed, err := url.Parse(cfg.baseURL)
	if err != nil {
		return Config{}, &ConfigError{Field: "base_url", Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Config{}, &ConfigError{Field: "base_url", Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return Config{}, &ConfigError{Field: "base_url", Err: errors.New("host is empty")}
	}
	return cfg, nil
}

// BaseURL returns the API root without a trailing slash.
func (c Config) BaseURL() string { return c.baseURL }

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration { return c.timeout }

// RateLimit returns the requests-per-second budget and burst size.
func (c Config) RateLimit() (float64, int) { return c.rateLimit, c.burst }

// Retry returns the retry policy for idempotent requests.
func (c Config) Retry() RetryPolicy { return c.retry }

// Pool returns the HTTP connection pool settings.
func (c Config) Pool() ConnectionPool { return c.pool }

// UserAgent returns the User-Agent header value.
func (c Config) UserAgent() string { return c.userAgent }

// Valid reports whether the config was produced by NewConfig.
func (c Config) Valid() bool { return c.token != "" }

// String renders the config with the API key redacted.
func (c Config) String() string {
	return fmt.Sprintf("chartmogul.Config{base_url=%s token=%s timeout=%s}", c.baseURL, redact(c.token), c.timeout)
}

func redact(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
