package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func applyEnv(cfg *Config, lookup func(string) string) error {
	setString(&cfg.ChartMogul.Token, lookup(EnvToken))
	setString(&cfg.ChartMogul.APIURL, lookup(EnvAPIURL))
	setString(&cfg.Log.Level, lookup(EnvLogLevel))
	setString(&cfg.Log.Format, lookup(EnvLogFormat))
	setString(&cfg.Server.Transport, lookup(EnvTransport))
	setString(&cfg.Server.Addr, lookup(EnvAddr))
	setString(&cfg.Journal.Path, lookup(EnvJournalPath))
	setString(&cfg.Health.Schedule, lookup(EnvHealthSchedule))
	setString(&cfg.Telemetry.OTLPEndpoint, lookup(EnvOTLPTracesEndpoint))
	setString(&cfg.Telemetry.OTLPEndpoint, lookup(EnvOTLPEndpoint))

	if raw := strings.TrimSpace(lookup(EnvTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return envError(EnvTimeout, raw, err)
		}
		cfg.ChartMogul.Timeout = d
	}
	if raw := strings.TrimSpace(lookup(EnvRateLimit)); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return envError(EnvRateLimit, raw, err)
		}
		cfg.ChartMogul.RateLimit = rps
	}
	if raw := strings.TrimSpace(lookup(EnvRetryMaxAttempts)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return envError(EnvRetryMaxAttempts, raw, err)
		}
		cfg.ChartMogul.Retry.MaxAttempts = n
	}
	if raw := strings.TrimSpace(lookup(EnvJournal)); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return envError(EnvJournal, raw, err)
		}
		cfg.Journal.Enabled = &enabled
	}
	return nil
}

func setString(dst *string, value string) {
	if clean := strings.TrimSpace(value); clean != "" {
		*dst = clean
	}
}

func envError(key, value string, err error) error {
	return fmt.Errorf("config: invalid %s=%q: %w", key, value, err)
}
