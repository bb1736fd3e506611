// Package config resolves runtime settings from an optional YAML file, an
// optional .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/chartmogul-mcp/chartmogul"
)

const (
	projectConfigName = "chartmogul-mcp.yaml"
	homeConfigDir     = ".chartmogul-mcp"
	homeConfigName    = "config.yaml"
	defaultEnvFile    = ".env"
)

// Environment variables read by Load.
const (
	EnvToken              = "CHARTMOGUL_TOKEN"
	EnvAPIURL             = "CHARTMOGUL_API_URL"
	EnvTimeout            = "CHARTMOGUL_TIMEOUT"
	EnvRateLimit          = "CHARTMOGUL_RATE_LIMIT"
	EnvRetryMaxAttempts   = "CHARTMOGUL_RETRY_MAX_ATTEMPTS"
	EnvLogLevel           = "CHARTMOGUL_MCP_LOG_LEVEL"
	EnvLogFormat          = "CHARTMOGUL_MCP_LOG_FORMAT"
	EnvTransport          = "CHARTMOGUL_MCP_TRANSPORT"
	EnvAddr               = "CHARTMOGUL_MCP_ADDR"
	EnvJournal            = "CHARTMOGUL_MCP_JOURNAL"
	EnvJournalPath        = "CHARTMOGUL_MCP_JOURNAL_PATH"
	EnvHealthSchedule     = "CHARTMOGUL_MCP_HEALTH_SCHEDULE"
	EnvOTLPEndpoint       = "CHARTMOGUL_MCP_OTLP_ENDPOINT"
	EnvOTLPTracesEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	ChartMogul ChartMogulConfig `yaml:"chartmogul"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Journal    JournalConfig    `yaml:"journal"`
	Health     HealthConfig     `yaml:"health"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Path is the YAML file that was loaded, if any.
	Path string `yaml:"-"`
}

type ChartMogulConfig struct {
	Token     string        `yaml:"token"`
	APIURL    string        `yaml:"api_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
	Retry     RetryConfig   `yaml:"retry"`
	Pool      PoolConfig    `yaml:"pool"`
}

type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Transport    string `yaml:"transport"`
	Addr         string `yaml:"addr"`
	EndpointPath string `yaml:"endpoint_path"`
	CORSOrigin   string `yaml:"cors_origin"`
	MaxBody      int64  `yaml:"max_body"`
}

type JournalConfig struct {
	Enabled        *bool         `yaml:"enabled"`
	Path           string        `yaml:"path"`
	RetentionAge   time.Duration `yaml:"retention_age"`
	RetentionCount int           `yaml:"retention_count"`
}

type HealthConfig struct {
	Enabled            *bool         `yaml:"enabled"`
	Schedule           string        `yaml:"schedule"`
	Timeout            time.Duration `yaml:"timeout"`
	UnhealthyThreshold int           `yaml:"unhealthy_threshold"`
}

type TelemetryConfig struct {
	OTLPEndpoint string            `yaml:"otlp_endpoint"`
	Headers      map[string]string `yaml:"headers"`
}

// JournalEnabled reports whether the invocation journal should be opened.
func (c Config) JournalEnabled() bool {
	return c.Journal.Enabled == nil || *c.Journal.Enabled
}

// HealthEnabled reports whether scheduled upstream pings should run.
func (c Config) HealthEnabled() bool {
	return c.Health.Enabled == nil || *c.Health.Enabled
}

// ClientConfig builds the immutable client configuration. A missing token
// surfaces as an error wrapping chartmogul.ErrMissingToken.
func (c Config) ClientConfig() (chartmogul.Config, error) {
	cm := c.ChartMogul
	opts := []chartmogul.ConfigOption{
		chartmogul.WithBaseURL(cm.APIURL),
		chartmogul.WithTimeout(cm.Timeout),
		chartmogul.WithConnectionPool(chartmogul.ConnectionPool{
			MaxIdleConns:        cm.Pool.MaxIdleConns,
			MaxIdleConnsPerHost: cm.Pool.MaxIdleConnsPerHost,
			IdleConnTimeout:     cm.Pool.IdleConnTimeout,
		}),
	}
	if cm.RateLimit != 0 || cm.Burst != 0 {
		opts = append(opts, chartmogul.WithRateLimit(cm.RateLimit, cm.Burst))
	}
	if cm.Retry.MaxAttempts > 0 {
		policy := chartmogul.DefaultRetryPolicy()
		policy.MaxAttempts = cm.Retry.MaxAttempts
		if cm.Retry.Backoff > 0 {
			policy.Backoff = cm.Retry.Backoff
		}
		opts = append(opts, chartmogul.WithRetryPolicy(policy))
	}
	return chartmogul.NewConfig(cm.Token, opts...)
}

// Options controls where Load looks. Zero values use the real process state.
type Options struct {
	// Path is an explicit YAML file; it must exist when set.
	Path string

	// EnvFile is a dotenv file; a missing file is ignored. Defaults to .env in Dir.
	EnvFile string

	Dir    string
	Home   string
	Getenv func(string) string

	// AllowMissingToken skips client validation for commands that never call
	// the API.
	AllowMissingToken bool
}

// Load resolves configuration and validates the ChartMogul settings.
func Load(opts Options) (Config, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve working directory: %w", err)
		}
		opts.Dir = cwd
	}
	if opts.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve user home: %w", err)
		}
		opts.Home = home
	}

	dotenv, err := readEnvFile(opts.EnvFile, opts.Dir)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) string {
		if v := opts.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	var cfg Config
	path, found, err := DiscoverPathFrom(opts.Path, opts.Dir, opts.Home)
	if err != nil {
		return Config{}, err
	}
	if found {
		cfg, err = loadFile(path, lookup)
		if err != nil {
			return Config{}, err
		}
		cfg.Path = path
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if _, err := cfg.ClientConfig(); err != nil {
		if !opts.AllowMissingToken || !errors.Is(err, chartmogul.ErrMissingToken) {
			return Config{}, err
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DiscoverPathFrom resolves the YAML config with first-match semantics:
// explicit path, ./chartmogul-mcp.yaml, then ~/.chartmogul-mcp/config.yaml.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config: file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("config: checking path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

func readEnvFile(path, dir string) (map[string]string, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = filepath.Join(dir, defaultEnvFile)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("config: reading env file %q: %w", path, err)
	}
	return values, nil
}

func loadFile(path string, lookup func(string) string) (Config, error) {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
	}
	expanded := os.Expand(string(data), lookup)

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	switch strings.ToLower(c.Server.Transport) {
	case "", "stdio", "http":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Server.Transport)
	}
	return nil
}
