package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anibalssilva/tech-challenge-books-api/internal/auth"
	"github.com/anibalssilva/tech-challenge-books-api/internal/logsink"
	"github.com/anibalssilva/tech-challenge-books-api/internal/store"
)

// memorySink records every event it receives.
type memorySink struct {
	mu     sync.Mutex
	events []logsink.Event
}

func (s *memorySink) Write(_ context.Context, ev logsink.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) all() []logsink.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logsink.Event(nil), s.events...)
}

type brokenSink struct{}

func (brokenSink) Write(context.Context, logsink.Event) error { return errors.New("unavailable") }
func (brokenSink) Close() error                               { return nil }

func newTestFanout(sinks ...logsink.Sink) *logsink.Fanout {
	return logsink.NewFanout(slog.New(slog.NewTextHandler(io.Discard, nil)), sinks...)
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGenerated(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDUniquePerRequest(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		id := rr.Header().Get("X-Request-ID")
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger middleware tests
// ---------------------------------------------------------------------------

func TestRequestLoggerStartedAndFinished(t *testing.T) {
	sink := &memorySink{}
	handler := RequestID(RequestLogger(newTestFanout(sink))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(time.Millisecond)
			w.WriteHeader(http.StatusTeapot)
		})))

	req := httptest.NewRequest("GET", "/api/v1/books", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected exactly 2 events, got %d", len(events))
	}

	started, finished := events[0], events[1]
	if started.Event != logsink.EventStarted {
		t.Errorf("first event: got %q, want %q", started.Event, logsink.EventStarted)
	}
	if finished.Event != logsink.EventFinished {
		t.Errorf("second event: got %q, want %q", finished.Event, logsink.EventFinished)
	}
	if started.RequestID == "" || started.RequestID != finished.RequestID {
		t.Errorf("request IDs differ: started=%q finished=%q", started.RequestID, finished.RequestID)
	}
	if started.StatusCode != nil || started.ProcessTimeMs != nil {
		t.Error("started event must not carry terminal fields")
	}
	if finished.StatusCode == nil || *finished.StatusCode != http.StatusTeapot {
		t.Errorf("finished status: got %v, want 418", finished.StatusCode)
	}
	if finished.ProcessTimeMs == nil || *finished.ProcessTimeMs <= 0 {
		t.Errorf("finished process time: got %v, want > 0", finished.ProcessTimeMs)
	}
	if finished.Level != "warning" {
		t.Errorf("4xx level: got %q, want warning", finished.Level)
	}
	if started.Method != "GET" || started.Path != "/api/v1/books" || started.ClientHost != "10.0.0.1" {
		t.Errorf("context fields: %+v", started)
	}
}

func TestRequestLoggerNoStatusWrittenDefaultsTo200(t *testing.T) {
	sink := &memorySink{}
	handler := RequestID(RequestLogger(newTestFanout(sink))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handler returns without writing anything.
		})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].StatusCode == nil || *events[1].StatusCode != http.StatusOK {
		t.Errorf("implicit status: got %v, want 200", events[1].StatusCode)
	}
}

func TestRequestLoggerPanicEmitsFailedAndRethrows(t *testing.T) {
	sink := &memorySink{}
	inner := RequestID(RequestLogger(newTestFanout(sink))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/explode", nil)

	var recovered interface{}
	func() {
		defer func() { recovered = recover() }()
		inner.ServeHTTP(rr, req)
	}()

	if recovered != "boom" {
		t.Fatalf("panic not re-raised unchanged: got %v", recovered)
	}

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected exactly 2 events (started + failed), got %d", len(events))
	}
	failed := events[1]
	if failed.Event != logsink.EventFailed {
		t.Fatalf("terminal event: got %q, want %q", failed.Event, logsink.EventFailed)
	}
	if failed.Level != "error" {
		t.Errorf("failed level: got %q, want error", failed.Level)
	}
	if failed.Exception == nil {
		t.Fatal("failed event missing exception")
	}
	if got := *failed.Exception; got == "" || !containsAll(got, "boom", "goroutine") {
		t.Errorf("exception should carry message and stack trace, got %q", got)
	}
}

func TestRequestLoggerSinkOutageDoesNotAffectResponse(t *testing.T) {
	handler := RequestID(RequestLogger(newTestFanout(brokenSink{}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status changed by sink outage: got %d", rr.Code)
	}
	if rr.Body.String() != `{"status":"ok"}` {
		t.Errorf("body changed by sink outage: got %q", rr.Body.String())
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		found := false
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Auth middleware tests
// ---------------------------------------------------------------------------

func newTestAuth(t *testing.T) (*auth.Service, *store.Store) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	issuer, err := auth.NewTokenIssuer("test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return auth.NewService(st, issuer), st
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func protectedChain(svc *auth.Service) http.Handler {
	return Authenticate(svc)(RequireActive()(okHandler()))
}

func adminChain(svc *auth.Service) http.Handler {
	return Authenticate(svc)(RequireActive()(RequireAdmin()(okHandler())))
}

func TestAuthenticateMissingToken(t *testing.T) {
	svc, _ := newTestAuth(t)

	rr := httptest.NewRecorder()
	protectedChain(svc).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("expected WWW-Authenticate: Bearer challenge")
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	svc.Register(ctx, "alice", "secret123")
	token, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	protectedChain(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	svc.Register(ctx, "alice", "secret123")
	expired, err := svc.Tokens().Issue("alice", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rr := httptest.NewRecorder()
	protectedChain(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", rr.Code)
	}
	if body := rr.Body.String(); !containsAll(body, "expired") {
		t.Errorf("expected expired detail, got %s", body)
	}
}

func TestDisabledUserForbidden(t *testing.T) {
	svc, st := newTestAuth(t)
	ctx := context.Background()

	svc.Register(ctx, "alice", "secret123")
	token, _ := svc.Login(ctx, "alice", "secret123")
	st.SetDisabled(ctx, "alice", true)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	protectedChain(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for disabled user with valid token, got %d", rr.Code)
	}
}

func TestDisabledAdminRejectedForDisabledReason(t *testing.T) {
	svc, st := newTestAuth(t)
	ctx := context.Background()

	svc.Register(ctx, "root", "secret123")
	st.SetAdmin(ctx, "root", true)
	token, _ := svc.Login(ctx, "root", "secret123")
	st.SetDisabled(ctx, "root", true)

	req := httptest.NewRequest("PUT", "/auth/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	adminChain(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	// The disabled check runs before the admin check.
	if body := rr.Body.String(); !containsAll(body, "Inactive") {
		t.Errorf("expected inactive-user detail, got %s", body)
	}
}

func TestNonAdminForbidden(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	svc.Register(ctx, "alice", "secret123")
	token, _ := svc.Login(ctx, "alice", "secret123")

	req := httptest.NewRequest("PUT", "/auth/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	adminChain(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", rr.Code)
	}
}

func TestGetCurrentUserEmptyContext(t *testing.T) {
	if u := GetCurrentUser(context.Background()); u != nil {
		t.Errorf("expected nil user from bare context, got %+v", u)
	}
}
