package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yeheng/monitor/internal/monitor"
)

type fakeStore struct {
	mu       sync.Mutex
	monitors []*monitor.Monitor
}

func (f *fakeStore) ListEnabledMonitors(context.Context) ([]*monitor.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*monitor.Monitor, len(f.monitors))
	copy(out, f.monitors)
	return out, nil
}

type countingRunner struct {
	mu    sync.Mutex
	count int
}

func (r *countingRunner) Run(context.Context, monitor.Monitor) *monitor.MonitorResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return &monitor.MonitorResult{}
}

func (r *countingRunner) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func newMonitor(name string, interval int) *monitor.Monitor {
	return &monitor.Monitor{
		ID:              uuid.New(),
		Name:            name,
		Endpoint:        "http://example.invalid",
		Method:          "GET",
		ExpectedStatus:  200,
		TimeoutSeconds:  5,
		IntervalSeconds: interval,
		Enabled:         true,
	}
}

func TestStart_SchedulesEnabledMonitors(t *testing.T) {
	st := &fakeStore{monitors: []*monitor.Monitor{newMonitor("a", 1), newMonitor("b", 1)}}
	runner := &countingRunner{}
	s := New(st, runner, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	names := s.ScheduledMonitors()
	if len(names) != 2 {
		t.Fatalf("expected 2 scheduled monitors, got %d", len(names))
	}
}

func TestStart_SkipsInvalidMonitor(t *testing.T) {
	bad := newMonitor("bad", 0) // invalid interval
	st := &fakeStore{monitors: []*monitor.Monitor{newMonitor("good", 1), bad}}
	runner := &countingRunner{}
	s := New(st, runner, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	names := s.ScheduledMonitors()
	if len(names) != 1 || names[0] != "good" {
		t.Fatalf("expected only the valid monitor scheduled, got %v", names)
	}
}

func TestStart_Twice(t *testing.T) {
	st := &fakeStore{monitors: []*monitor.Monitor{newMonitor("a", 1)}}
	s := New(st, &countingRunner{}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error starting an already-running scheduler")
	}
}

func TestFiresOnSchedule(t *testing.T) {
	st := &fakeStore{monitors: []*monitor.Monitor{newMonitor("a", 1)}}
	runner := &countingRunner{}
	s := New(st, runner, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if runner.Count() > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected at least one run within 3s of a 1s-interval monitor")
}

func TestRefresh_AddsAndRemoves(t *testing.T) {
	st := &fakeStore{monitors: []*monitor.Monitor{newMonitor("a", 1)}}
	s := New(st, &countingRunner{}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	st.mu.Lock()
	st.monitors = []*monitor.Monitor{newMonitor("b", 1)}
	st.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	names := s.ScheduledMonitors()
	if len(names) != 1 || names[0] != "b" {
		t.Fatalf("expected only monitor b scheduled after refresh, got %v", names)
	}
}
