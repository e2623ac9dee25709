package logsink

import "time"

// Lifecycle event names. Every request emits exactly one EventStarted
// followed by exactly one of EventFinished or EventFailed.
const (
	EventStarted  = "request_started"
	EventFinished = "request_finished"
	EventFailed   = "request_failed"
)

// Event is one structured request-log record. It is what the line-oriented
// sinks serialize and what the durable sink maps into table columns.
// StatusCode and ProcessTimeMs are only present on terminal events;
// Exception only on request_failed.
type Event struct {
	RequestID     string   `json:"request_id"`
	Timestamp     string   `json:"timestamp"` // ISO-8601 / RFC 3339
	Level         string   `json:"level"`
	Event         string   `json:"event"`
	Method        string   `json:"method"`
	Path          string   `json:"path"`
	ClientHost    string   `json:"client_host"`
	StatusCode    *int     `json:"status_code,omitempty"`
	ProcessTimeMs *float64 `json:"process_time_ms,omitempty"`
	Exception     *string  `json:"exception,omitempty"`
}

// Stamp sets the event timestamp to now in UTC, RFC 3339 with millisecond
// precision.
func (e *Event) Stamp() {
	e.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
