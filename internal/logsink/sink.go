package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Sink is a destination for request-log events. Implementations must be safe
// for concurrent use; Write errors are handled by the Fanout and never reach
// the request path.
type Sink interface {
	Write(ctx context.Context, ev Event) error
	Close() error
}

// Fanout delivers each event to every configured sink independently. A
// failure (error or panic) in one sink never prevents the others from
// receiving the event, and never propagates to the caller: request logging
// is best-effort by contract.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout creates a Fanout over the given sinks. logger receives one
// diagnostic line per failed sink write.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger}
}

// Emit writes the event to all sinks. It never returns an error and never
// panics.
func (f *Fanout) Emit(ctx context.Context, ev Event) {
	for _, s := range f.sinks {
		f.emitOne(ctx, s, ev)
	}
}

func (f *Fanout) emitOne(ctx context.Context, s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("log sink panicked", "panic", fmt.Sprint(r))
		}
	}()
	if err := s.Write(ctx, ev); err != nil {
		f.logger.Warn("log sink write failed", "error", err, "event", ev.Event, "request_id", ev.RequestID)
	}
}

// Close closes all sinks, returning the first error encountered.
func (f *Fanout) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// lineSink serializes events as newline-delimited JSON to a writer. It backs
// both the file and the console sinks.
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer // nil for writers we don't own
}

func (s *lineSink) Write(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (s *lineSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// NewFileSink opens (creating parent directories as needed) an append-only
// NDJSON log file at path.
func NewFileSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &lineSink{w: f, c: f}, nil
}

// NewConsoleSink returns a sink that writes NDJSON events to w, normally
// os.Stdout.
func NewConsoleSink(w io.Writer) Sink {
	return &lineSink{w: w}
}
