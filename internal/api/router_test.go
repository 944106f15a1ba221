package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yeheng/monitor/internal/monitor"
	"github.com/yeheng/monitor/internal/monitorerr"
	"github.com/yeheng/monitor/internal/scripting"
)

type fakeStore struct {
	mu       sync.Mutex
	monitors map[uuid.UUID]*monitor.Monitor
	results  map[uuid.UUID][]*monitor.MonitorResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		monitors: make(map[uuid.UUID]*monitor.Monitor),
		results:  make(map[uuid.UUID][]*monitor.MonitorResult),
	}
}

func (s *fakeStore) EnsureSchema(context.Context) error { return nil }

func (s *fakeStore) CreateMonitor(_ context.Context, m *monitor.Monitor) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitors[m.ID] = m
	return nil
}

func (s *fakeStore) GetMonitor(_ context.Context, id uuid.UUID) (*monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return nil, monitorerr.New(monitorerr.KindNotFound, "monitor not found")
	}
	return m, nil
}

func (s *fakeStore) ListMonitors(context.Context) ([]*monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*monitor.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeStore) ListEnabledMonitors(ctx context.Context) ([]*monitor.Monitor, error) {
	all, _ := s.ListMonitors(ctx)
	var out []*monitor.Monitor
	for _, m := range all {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateMonitor(_ context.Context, m *monitor.Monitor) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monitors[m.ID]; !ok {
		return monitorerr.New(monitorerr.KindNotFound, "monitor not found")
	}
	s.monitors[m.ID] = m
	return nil
}

func (s *fakeStore) DeleteMonitor(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monitors[id]; !ok {
		return monitorerr.New(monitorerr.KindNotFound, "monitor not found")
	}
	delete(s.monitors, id)
	return nil
}

func (s *fakeStore) InsertResult(_ context.Context, r *monitor.MonitorResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.MonitorID] = append(s.results[r.MonitorID], r)
	return nil
}

func (s *fakeStore) ListResults(_ context.Context, id uuid.UUID, limit int) ([]*monitor.MonitorResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.results[id]
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return rs, nil
}

func (s *fakeStore) Close() error { return nil }

func newTestRouter(t *testing.T) (*Router, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	r := NewRouter(Options{
		Store:  st,
		Engine: scripting.New(scripting.DefaultConfig()),
	})
	return r, st
}

func doRequest(r *Router, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateAndGetMonitor(t *testing.T) {
	r, _ := newTestRouter(t)
	in := map[string]any{
		"name":             "homepage",
		"endpoint":         "http://example.invalid",
		"method":           "GET",
		"expected_status":  200,
		"timeout_seconds":  5,
		"interval_seconds": 10,
		"enabled":          true,
	}
	rec := doRequest(r, http.MethodPost, "/monitors", in)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created monitor.Monitor
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created monitor: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected a generated ID")
	}

	rec = doRequest(r, http.MethodGet, "/monitors/"+created.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateMonitor_InvalidIntervalRejected(t *testing.T) {
	r, _ := newTestRouter(t)
	in := map[string]any{
		"name":             "bad",
		"endpoint":         "http://example.invalid",
		"timeout_seconds":  5,
		"interval_seconds": 0,
	}
	rec := doRequest(r, http.MethodPost, "/monitors", in)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetMonitor_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/monitors/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetMonitor_InvalidID(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/monitors/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteMonitor(t *testing.T) {
	r, st := newTestRouter(t)
	m := &monitor.Monitor{ID: uuid.New(), Name: "x", Endpoint: "http://example.invalid", TimeoutSeconds: 5, IntervalSeconds: 10}
	_ = st.CreateMonitor(context.Background(), m)

	rec := doRequest(r, http.MethodDelete, "/monitors/"+m.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, err := st.GetMonitor(context.Background(), m.ID); err == nil {
		t.Fatal("expected monitor to be deleted")
	}
}

func TestEvaluateScript(t *testing.T) {
	r, _ := newTestRouter(t)
	body := map[string]any{
		"script": "context.status_code === 200",
		"context": map[string]any{
			"status_code": 200,
		},
	}
	rec := doRequest(r, http.MethodPost, "/scripts/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var vr monitor.ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &vr); err != nil {
		t.Fatalf("decoding validation result: %v", err)
	}
}
