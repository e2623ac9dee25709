package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/anibalssilva/tech-challenge-books-api/internal/logsink"
)

// statusClientClosedRequest is the synthetic status recorded when the client
// disconnects before a response was written.
const statusClientClosedRequest = 499

// RequestLogger is the observability pipeline. It wraps the whole handler
// chain: on entry it emits exactly one request_started event; on exit it
// emits exactly one terminal event, request_finished or request_failed,
// carrying the status code and the elapsed time in milliseconds rounded to
// two decimals. A panic in the handler is logged with its stack trace and
// then re-raised unchanged, so the recoverer above this middleware still
// produces the 500 response. Sink failures are absorbed by the fanout and
// can never fail the request.
func RequestLogger(sinks *logsink.Fanout) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			base := logsink.Event{
				RequestID:  GetRequestID(r.Context()),
				Level:      "info",
				Method:     r.Method,
				Path:       r.URL.Path,
				ClientHost: clientHost(r),
			}

			started := base
			started.Event = logsink.EventStarted
			started.Stamp()
			sinks.Emit(r.Context(), started)

			ww := &responseWriter{ResponseWriter: w}

			defer func() {
				elapsed := roundMillis(time.Since(start))

				if rec := recover(); rec != nil {
					// http.ErrAbortHandler is the stdlib's sentinel for an
					// aborted response; it still gets a terminal event.
					failed := base
					failed.Event = logsink.EventFailed
					failed.Level = "error"
					failed.Stamp()
					status := http.StatusInternalServerError
					failed.StatusCode = &status
					failed.ProcessTimeMs = &elapsed
					exc := fmt.Sprintf("%v\n%s", rec, debug.Stack())
					failed.Exception = &exc
					// Emit with a detached context: the request context may
					// already be cancelled.
					sinks.Emit(context.WithoutCancel(r.Context()), failed)
					panic(rec)
				}

				status := ww.status
				if status == 0 {
					if r.Context().Err() != nil {
						status = statusClientClosedRequest
					} else {
						status = http.StatusOK
					}
				}

				finished := base
				finished.Event = logsink.EventFinished
				finished.Level = levelForStatus(status)
				finished.Stamp()
				finished.StatusCode = &status
				finished.ProcessTimeMs = &elapsed
				sinks.Emit(context.WithoutCancel(r.Context()), finished)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func levelForStatus(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "warning"
	default:
		return "info"
	}
}

func roundMillis(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000.0
	return math.Round(ms*100) / 100
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWriter wraps http.ResponseWriter to capture the status code for
// the terminal log event. A zero status means the handler never wrote one.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter, required for http.Flusher
// and other interface assertions through middleware chains.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
