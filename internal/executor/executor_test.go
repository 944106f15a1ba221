package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yeheng/monitor/internal/monitor"
	"github.com/yeheng/monitor/internal/scripting"
)

type memStore struct {
	mu      sync.Mutex
	results []*monitor.MonitorResult
}

func (s *memStore) InsertResult(_ context.Context, r *monitor.MonitorResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func baseMonitor(endpoint string) monitor.Monitor {
	return monitor.Monitor{
		ID:              uuid.New(),
		Name:            "test",
		Endpoint:        endpoint,
		Method:          "GET",
		ExpectedStatus:  http.StatusOK,
		TimeoutSeconds:  5,
		IntervalSeconds: 10,
		Enabled:         true,
	}
}

func TestRun_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	st := &memStore{}
	ex := New(srv.Client(), scripting.New(scripting.DefaultConfig()), st, nil)
	result := ex.Run(context.Background(), baseMonitor(srv.URL))

	if result.Status != monitor.StatusSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	if len(st.results) != 1 {
		t.Fatalf("expected exactly one persisted result, got %d", len(st.results))
	}
}

func TestRun_WrongStatusCodeIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := &memStore{}
	ex := New(srv.Client(), scripting.New(scripting.DefaultConfig()), st, nil)
	result := ex.Run(context.Background(), baseMonitor(srv.URL))

	if result.Status != monitor.StatusFailure {
		t.Fatalf("expected failure, got %s", result.Status)
	}
}

func TestRun_ConnectionErrorIsError(t *testing.T) {
	st := &memStore{}
	ex := New(http.DefaultClient, scripting.New(scripting.DefaultConfig()), st, nil)
	m := baseMonitor("http://127.0.0.1:1")
	result := ex.Run(context.Background(), m)

	if result.Status != monitor.StatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if result.ErrorMessage == nil {
		t.Fatal("expected an error message")
	}
}

func TestRun_ScriptOverridesStatusVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer srv.Close()

	st := &memStore{}
	ex := New(srv.Client(), scripting.New(scripting.DefaultConfig()), st, nil)
	m := baseMonitor(srv.URL)
	m.Script = `JSON.parse(context.body).status === "ok"`

	result := ex.Run(context.Background(), m)
	if result.Status != monitor.StatusFailure {
		t.Fatalf("expected script verdict to override status-code success, got %s", result.Status)
	}
}

func TestRun_CeilingElapsedReportsRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := &memStore{}
	ex := New(srv.Client(), scripting.New(scripting.DefaultConfig()), st, nil)
	m := baseMonitor(srv.URL)
	m.TimeoutSeconds = 1

	result := ex.Run(context.Background(), m)
	if result.Status != monitor.StatusTimeout {
		t.Fatalf("expected timeout status, got %s", result.Status)
	}
	if result.ErrorMessage == nil || *result.ErrorMessage != "Request timeout" {
		t.Fatalf("expected error_message %q, got %v", "Request timeout", result.ErrorMessage)
	}
}

func TestRun_PersistenceFailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ex := New(srv.Client(), scripting.New(scripting.DefaultConfig()), failingStore{}, nil)
	result := ex.Run(context.Background(), baseMonitor(srv.URL))
	if result == nil {
		t.Fatal("expected a result even when persistence fails")
	}
}

type failingStore struct{}

func (failingStore) InsertResult(context.Context, *monitor.MonitorResult) error {
	return context.DeadlineExceeded
}
