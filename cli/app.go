package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/catalog"
	"github.com/petal-labs/chartmogul-mcp/chartmogul"
	"github.com/petal-labs/chartmogul-mcp/config"
	"github.com/petal-labs/chartmogul-mcp/health"
	"github.com/petal-labs/chartmogul-mcp/journal"
	cmotel "github.com/petal-labs/chartmogul-mcp/otel"
	"github.com/petal-labs/chartmogul-mcp/server"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

const serverInstructions = "Tools for reading and managing ChartMogul billing data: account, data sources, customers and subscription metrics. Failed calls return null."

// app is the fully wired runtime behind serve.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	client  *chartmogul.Client
	server  *server.Server
	journal *journal.Store
	health  *health.Scheduler

	shutdownTracing cmotel.ShutdownFunc
}

type appOptions struct {
	journal bool
	health  bool

	// corsOrigin and maxBody override the configured HTTP settings when set.
	corsOrigin string
	maxBody    int64

	// clientOptions are appended after the retry hook; tests inject transports.
	clientOptions []chartmogul.Option
}

// newApp resolves configuration before anything else is constructed, so a
// missing credential fails startup without registering a single tool.
func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return nil, err
	}
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, exitError(exitConfig, "configuration error: %v", err)
	}
	if opts.corsOrigin != "" {
		cfg.Server.CORSOrigin = opts.corsOrigin
	}
	if opts.maxBody > 0 {
		cfg.Server.MaxBody = opts.maxBody
	}

	a := &app{cfg: cfg, logger: newLogger(cmd, cmd.ErrOrStderr(), cfg.Log)}
	if err := a.setupObservability(cmd.Context(), versionOf(cmd), opts.journal); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	clientOpts := append([]chartmogul.Option{chartmogul.WithRetryHook(forwardRetry)}, opts.clientOptions...)
	client, err := chartmogul.NewClient(clientCfg, clientOpts...)
	if err != nil {
		a.Close(context.Background())
		return nil, exitError(exitConfig, "configuration error: %v", err)
	}
	a.client = client

	if opts.health && cfg.HealthEnabled() {
		scheduler, err := health.NewScheduler(health.Config{
			Pinger:             client,
			Schedule:           cfg.Health.Schedule,
			Timeout:            cfg.Health.Timeout,
			UnhealthyThreshold: cfg.Health.UnhealthyThreshold,
			Logger:             a.logger,
		})
		if err != nil {
			a.Close(context.Background())
			return nil, exitError(exitConfig, "configuration error: %v", err)
		}
		a.health = scheduler
	}

	srv := server.New(server.Config{
		Version:      versionOf(cmd),
		Instructions: serverInstructions,
		CORSOrigin:   cfg.Server.CORSOrigin,
		MaxBody:      cfg.Server.MaxBody,
		Logger:       a.logger,
		Upstream:     a.upstreamStatus,
	})
	if err := srv.Register(catalog.Build(client, catalog.WithLogger(a.logger))...); err != nil {
		a.Close(context.Background())
		return nil, exitError(exitRuntime, "registering tools: %v", err)
	}
	a.server = srv
	a.logger.Debug("tools registered",
		slog.Int("count", len(srv.Tools())),
		slog.String("base_url", clientCfg.BaseURL()),
	)
	return a, nil
}

func (a *app) setupObservability(ctx context.Context, version string, withJournal bool) error {
	shutdown, err := cmotel.SetupTracing(ctx, cmotel.TracingConfig{
		Endpoint:       a.cfg.Telemetry.OTLPEndpoint,
		Headers:        a.cfg.Telemetry.Headers,
		ServiceVersion: version,
	})
	if err != nil {
		return exitError(exitConfig, "configuration error: %v", err)
	}
	a.shutdownTracing = shutdown

	toolObserver, err := cmotel.NewGlobalToolObserver()
	if err != nil {
		return fmt.Errorf("initializing tool observability: %w", err)
	}
	observers := []tool.Observer{toolObserver}

	if withJournal && a.cfg.JournalEnabled() {
		store, err := openJournal(a.cfg, a.logger)
		if err != nil {
			return exitError(exitRuntime, "opening journal: %v", err)
		}
		a.journal = store
		observers = append(observers, store)
	}
	tool.SetObserver(tool.MultiObserver(observers...))
	return nil
}

func (a *app) upstreamStatus() string {
	if a.health == nil {
		return string(health.StatusUnknown)
	}
	return string(a.health.Status())
}

// Start begins background work.
func (a *app) Start(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	return a.health.Start(ctx)
}

// Close stops background work and flushes telemetry.
func (a *app) Close(ctx context.Context) {
	if a.health != nil {
		_ = a.health.Stop(ctx)
	}
	tool.SetObserver(nil)
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("closing journal", slog.String("error", err.Error()))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn("flushing traces", slog.String("error", err.Error()))
		}
	}
}

func openJournal(cfg config.Config, logger *slog.Logger) (*journal.Store, error) {
	path := strings.TrimSpace(cfg.Journal.Path)
	if path == "" {
		defaultPath, err := journal.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return journal.Open(journal.Config{
		DSN:            path,
		RetentionAge:   cfg.Journal.RetentionAge,
		RetentionCount: cfg.Journal.RetentionCount,
		Logger:         logger,
	})
}

func forwardRetry(o chartmogul.RetryObservation) {
	tool.EmitRetry(tool.RetryObservation{
		Method:     o.Method,
		Path:       o.Path,
		Attempt:    o.Attempt,
		StatusCode: o.StatusCode,
		ErrorType:  o.ErrorType,
	})
}

// upstreamExitCode maps a failed API call to a process exit code.
func upstreamExitCode(err error) int {
	if tool.ErrorType(err) == tool.ErrorTypeTimeout {
		return exitTimeout
	}
	return exitUpstream
}
