// Package health periodically pings the ChartMogul API and tracks whether the
// upstream is reachable with the configured credentials.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/petal-labs/chartmogul-mcp/tool"
)

// Status is the tracked upstream state.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const (
	defaultTarget             = "chartmogul"
	defaultTimeout            = 10 * time.Second
	defaultUnhealthyThreshold = 3
)

// Pinger is the single upstream call a health check makes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the outcome of one check.
type Report struct {
	Target         string
	Status         Status
	PreviousStatus Status
	FailureCount   int
	CheckedAt      time.Time
	Latency        time.Duration
	Err            error
}

// Healthy reports whether the check succeeded.
func (r Report) Healthy() bool { return r.Err == nil }

// EventHandler receives every report.
type EventHandler func(Report)

// Config controls scheduler behavior.
type Config struct {
	Pinger Pinger
	Target string

	// Schedule is a cron expression or descriptor (default DefaultSchedule).
	Schedule string

	// Timeout bounds a single ping (default 10s).
	Timeout time.Duration

	// UnhealthyThreshold is the number of consecutive failures before the
	// status flips from degraded to unhealthy (default 3).
	UnhealthyThreshold int

	Now     func() time.Time
	OnEvent EventHandler
	Logger  *slog.Logger
}

// Scheduler runs cron-driven upstream pings.
type Scheduler struct {
	pinger    Pinger
	target    string
	schedule  cron.Schedule
	timeout   time.Duration
	threshold int
	now       func() time.Time
	onEvent   EventHandler
	logger    *slog.Logger

	mu       sync.Mutex
	status   Status
	failures int
	last     Report
	cron     *cron.Cron
}

// NewScheduler validates cfg and returns a stopped scheduler.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Pinger == nil {
		return nil, errors.New("health: pinger is nil")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	if cfg.Target == "" {
		cfg.Target = defaultTarget
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UnhealthyThreshold <= 0 {
		cfg.UnhealthyThreshold = defaultUnhealthyThreshold
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(Report) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{
		pinger:    cfg.Pinger,
		target:    cfg.Target,
		schedule:  schedule,
		timeout:   cfg.Timeout,
		threshold: cfg.UnhealthyThreshold,
		now:       cfg.Now,
		onEvent:   cfg.OnEvent,
		logger:    cfg.Logger,
		status:    StatusUnknown,
	}, nil
}

// Start runs one check immediately, then follows the schedule. Calling Start
// on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("health: scheduler is nil")
	}

	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return nil
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		s.RunOnce(context.Background())
	}))
	s.cron = c
	s.mu.Unlock()

	s.RunOnce(ctx)
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running check to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single check and returns its report.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := s.now()
	err := s.pinger.Ping(pingCtx)
	latency := s.now().Sub(started)

	s.mu.Lock()
	previous := s.status
	if err == nil {
		s.failures = 0
		s.status = StatusHealthy
	} else {
		s.failures++
		if s.failures >= s.threshold {
			s.status = StatusUnhealthy
		} else {
			s.status = StatusDegraded
		}
	}
	report := Report{
		Target:         s.target,
		Status:         s.status,
		PreviousStatus: previous,
		FailureCount:   s.failures,
		CheckedAt:      started,
		Latency:        latency,
		Err:            err,
	}
	s.last = report
	s.mu.Unlock()

	s.logTransition(report)
	observation := tool.HealthObservation{
		Target:         report.Target,
		Healthy:        report.Healthy(),
		Status:         string(report.Status),
		PreviousStatus: string(report.PreviousStatus),
		FailureCount:   report.FailureCount,
		DurationMS:     latency.Milliseconds(),
	}
	if err != nil {
		observation.ErrorType = tool.ErrorType(err)
	}
	tool.EmitHealth(observation)
	s.onEvent(report)
	return report
}

// Status returns the current upstream status.
func (s *Scheduler) Status() Status {
	if s == nil {
		return StatusUnknown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Last returns the most recent report.
func (s *Scheduler) Last() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) logTransition(r Report) {
	if r.Status == r.PreviousStatus {
		return
	}
	attrs := []any{
		slog.String("target", r.Target),
		slog.String("status", string(r.Status)),
		slog.String("previous_status", string(r.PreviousStatus)),
		slog.Int("failure_count", r.FailureCount),
	}
	switch r.Status {
	case StatusHealthy:
		s.logger.Info("upstream healthy", attrs...)
	default:
		if r.Err != nil {
			attrs = append(attrs,
				slog.String("error_type", tool.ErrorType(r.Err)),
				slog.String("error", r.Err.Error()),
			)
		}
		s.logger.Warn("upstream check failed", attrs...)
	}
}
