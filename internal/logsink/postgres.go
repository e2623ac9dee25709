package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists request-log events into the api_logs table. The pool
// re-establishes dropped connections on its own; a failed insert is retried
// exactly once and then dropped with a diagnostic, because request logging
// is best-effort, not at-least-once.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresSink connects to the database named by dsn and runs the
// idempotent schema migration for the api_logs table and its indexes.
func NewPostgresSink(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect log database: %w", err)
	}

	s := &PostgresSink{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate log database: %w", err)
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS api_logs (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP,
			level VARCHAR(50),
			event VARCHAR(100),
			request_id VARCHAR(100),
			method VARCHAR(10),
			path VARCHAR(500),
			status_code INTEGER,
			process_time_ms FLOAT,
			client_host VARCHAR(100),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_logs_timestamp ON api_logs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_api_logs_path ON api_logs(path)`,
		`CREATE INDEX IF NOT EXISTS idx_api_logs_status_code ON api_logs(status_code)`,
	}

	for _, q := range statements {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, q)
		}
	}
	return nil
}

// Write inserts one event. The first failure triggers a single retry on a
// fresh connection from the pool; a second failure drops the event.
func (s *PostgresSink) Write(ctx context.Context, ev Event) error {
	if err := s.insert(ctx, ev); err != nil {
		s.logger.Warn("log insert failed, retrying once", "error", err)
		if err := s.insert(ctx, ev); err != nil {
			return fmt.Errorf("log insert failed after retry, dropping event: %w", err)
		}
	}
	return nil
}

func (s *PostgresSink) insert(ctx context.Context, ev Event) error {
	// Bound each attempt so a wedged connection can't block request teardown.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ts, err := time.Parse("2006-01-02T15:04:05.000Z07:00", ev.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	const q = `INSERT INTO api_logs
		(timestamp, level, event, request_id, method, path, status_code, process_time_ms, client_host)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.pool.Exec(ctx, q,
		ts, ev.Level, ev.Event, ev.RequestID, ev.Method, ev.Path,
		ev.StatusCode, ev.ProcessTimeMs, ev.ClientHost)
	return err
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
