// Package journal keeps a SQLite record of every tool invocation.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/petal-labs/chartmogul-mcp/tool"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

const (
	defaultDir           = ".chartmogul-mcp"
	defaultDB            = "journal.db"
	defaultPruneInterval = time.Hour
	recordTimeout        = 5 * time.Second
)

// DefaultPath returns ~/.chartmogul-mcp/journal.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("journal: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultDir, defaultDB), nil
}

// Config configures the journal store.
type Config struct {
	// DSN is a file path or a "file:" URI.
	DSN string

	// RetentionAge deletes entries older than this (0 = keep).
	RetentionAge time.Duration

	// RetentionCount keeps at most this many entries overall (0 = keep).
	RetentionCount int

	// PruneInterval is how often retention runs (default 1 hour).
	PruneInterval time.Duration

	Logger *slog.Logger
}

// Entry is one recorded invocation.
type Entry struct {
	RequestID    string
	Tool         string
	Operation    string
	StartedAt    time.Time
	Duration     time.Duration
	Success      bool
	ErrorType    string
	ErrorMessage string
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Tool         string
	FailuresOnly bool
	Since        time.Time
	Limit        int
}

// ToolStats aggregates entries per tool.
type ToolStats struct {
	Tool          string
	Calls         int
	Failures      int
	AvgDurationMS float64
	LastCalledAt  time.Time
}

// Store persists invocation entries. It implements tool.Observer so it can be
// installed with tool.SetObserver.
type Store struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
	stop   chan struct{}
	done   chan struct{}
}

var _ tool.Observer = (*Store)(nil)

// Open opens (or creates) the journal database.
func Open(cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("journal: dsn is required")
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = defaultPruneInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cfg.RetentionAge > 0 || cfg.RetentionCount > 0 {
		go s.pruneLoop()
	} else {
		close(s.done)
	}
	return s, nil
}

// Record stores one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.RequestID) == "" {
		return errors.New("journal: request id is required")
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (request_id, tool, operation, started_at, duration_ms, success, error_type, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID,
		e.Tool,
		e.Operation,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.Duration.Milliseconds(),
		boolToInt(e.Success),
		e.ErrorType,
		e.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT request_id, tool, operation, started_at, duration_ms, success, error_type, error_message
	          FROM invocations WHERE 1=1`
	var args []any
	if f.Tool != "" {
		query += " AND tool = ?"
		args = append(args, f.Tool)
	}
	if f.FailuresOnly {
		query += " AND success = 0"
	}
	if !f.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			startedAt  string
			durationMS int64
			success    int
		)
		if err := rows.Scan(&e.RequestID, &e.Tool, &e.Operation, &startedAt, &durationMS, &success, &e.ErrorType, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("journal: parse time %q: %w", startedAt, err)
		}
		e.StartedAt = t
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Success = success != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates calls, failures and mean latency per tool, ordered by name.
func (s *Store) Stats(ctx context.Context) ([]ToolStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), AVG(duration_ms), MAX(started_at)
		 FROM invocations GROUP BY tool ORDER BY tool`)
	if err != nil {
		return nil, fmt.Errorf("journal: stats: %w", err)
	}
	defer rows.Close()

	var out []ToolStats
	for rows.Next() {
		var (
			st   ToolStats
			last string
		)
		if err := rows.Scan(&st.Tool, &st.Calls, &st.Failures, &st.AvgDurationMS, &last); err != nil {
			return nil, fmt.Errorf("journal: scan stats: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, last); err == nil {
			st.LastCalledAt = t
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Prune runs a single retention pass.
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionAge > 0 {
		cutoff := time.Now().Add(-s.cfg.RetentionAge).UTC().Format(time.RFC3339Nano)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE started_at < ?`, cutoff); err != nil {
			return fmt.Errorf("journal: prune by age: %w", err)
		}
	}
	if s.cfg.RetentionCount > 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM invocations WHERE id NOT IN (
				SELECT id FROM invocations ORDER BY started_at DESC, id DESC LIMIT ?
			)`, s.cfg.RetentionCount,
		); err != nil {
			return fmt.Errorf("journal: prune by count: %w", err)
		}
	}
	return nil
}

// Close stops the pruner and closes the database.
func (s *Store) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return s.db.Close()
}

func (s *Store) pruneLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.Prune(context.Background()); err != nil {
				s.logger.Warn("journal prune failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ObserveInvoke records a wrapped operation call.
func (s *Store) ObserveInvoke(o tool.InvokeObservation) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	err := s.Record(ctx, Entry{
		RequestID:    o.RequestID,
		Tool:         o.Tool,
		Operation:    o.Operation,
		StartedAt:    o.StartedAt,
		Duration:     time.Duration(o.DurationMS) * time.Millisecond,
		Success:      o.Success,
		ErrorType:    o.ErrorType,
		ErrorMessage: o.ErrorMessage,
	})
	if err != nil {
		s.logger.Warn("journal record failed",
			slog.String("tool", o.Tool),
			slog.String("request_id", o.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) ObserveRetry(tool.RetryObservation)   {}
func (s *Store) ObserveHealth(tool.HealthObservation) {}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
