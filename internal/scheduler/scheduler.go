// Package scheduler implements the Cron Dispatcher (spec.md §4.1): it
// loads enabled monitors from the store and runs one cron job per
// monitor, firing the Check Executor on each tick. Grounded on the
// teacher's internal/cronjob package: one robfig/cron.Cron scheduler
// per job, AddFunc/Start/Stop lifecycle, slog progress logging.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/yeheng/monitor/internal/metrics"
	"github.com/yeheng/monitor/internal/monitor"
)

// Store is the subset of store.Store the scheduler needs to discover
// work.
type Store interface {
	ListEnabledMonitors(ctx context.Context) ([]*monitor.Monitor, error)
}

// Runner fires one check for a monitor; executor.Executor satisfies
// this.
type Runner interface {
	Run(ctx context.Context, m monitor.Monitor) *monitor.MonitorResult
}

// Scheduler owns one cron.Cron instance per enabled monitor.
type Scheduler struct {
	store  Store
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	engines map[string]*cron.Cron // monitor name -> its cron instance
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New constructs a Scheduler. logger may be nil.
func New(st Store, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:   st,
		runner:  runner,
		logger:  logger,
		engines: make(map[string]*cron.Cron),
	}
}

// Start loads enabled monitors and schedules each one (spec §4.1's
// load_and_schedule). Calling Start twice is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	return s.loadAndScheduleLocked()
}

// Refresh re-reads the store and reconciles the scheduled set: removed
// or disabled monitors are unscheduled, and every still-enabled monitor
// is (re)scheduled from its current definition, so a changed interval,
// endpoint or script takes effect. This is a
// supplemented operation beyond spec §4.1's fixed load-once contract,
// exposed so an operator can push a monitor edit without a restart.
func (s *Scheduler) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("scheduler is not running")
	}

	monitors, err := s.store.ListEnabledMonitors(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled monitors: %w", err)
	}

	wanted := make(map[string]*monitor.Monitor, len(monitors))
	for _, m := range monitors {
		wanted[m.Name] = m
	}

	for name, eng := range s.engines {
		if _, ok := wanted[name]; !ok {
			eng.Stop()
			delete(s.engines, name)
			s.logger.Info("unscheduled monitor", "monitor", name)
		}
	}

	for name, m := range wanted {
		if eng, scheduled := s.engines[name]; scheduled {
			eng.Stop()
			delete(s.engines, name)
		}
		if err := s.scheduleLocked(*m); err != nil {
			s.logger.Error("failed to schedule monitor", "monitor", name, "error", err)
		}
	}

	metrics.SetScheduledMonitors(len(s.engines))
	return nil
}

func (s *Scheduler) loadAndScheduleLocked() error {
	monitors, err := s.store.ListEnabledMonitors(s.ctx)
	if err != nil {
		return fmt.Errorf("listing enabled monitors: %w", err)
	}

	for _, m := range monitors {
		if err := s.scheduleLocked(*m); err != nil {
			// Bad cron expression or invalid monitor: log and skip, rather
			// than aborting startup for every other monitor (spec §4.1).
			s.logger.Error("failed to schedule monitor", "monitor", m.Name, "error", err)
		}
	}
	metrics.SetScheduledMonitors(len(s.engines))
	return nil
}

// scheduleLocked adds one cron.Cron running m.IntervalSeconds-driven
// sub-minute schedule. Must be called with s.mu held.
func (s *Scheduler) scheduleLocked(m monitor.Monitor) error {
	if err := m.Validate(); err != nil {
		return err
	}

	expr, err := cronExpression(m.IntervalSeconds)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(expr, func() {
		// Overlap policy: no per-monitor mutex (spec §4.1) — a slow check
		// does not block the next tick from firing a concurrent run.
		s.runner.Run(s.ctx, m)
	})
	if err != nil {
		return fmt.Errorf("scheduling monitor %s: %w", m.Name, err)
	}
	c.Start()
	s.engines[m.Name] = c

	s.logger.Info("scheduled monitor", "monitor", m.Name, "interval_seconds", m.IntervalSeconds)
	return nil
}

// cronExpression builds the "0/N * * * * *" sub-minute form spec §4.1
// requires for 1 <= N <= 59.
func cronExpression(intervalSeconds int) (string, error) {
	if intervalSeconds < 1 || intervalSeconds > 59 {
		return "", fmt.Errorf("interval_seconds must satisfy 1 <= n <= 59, got %d", intervalSeconds)
	}
	return fmt.Sprintf("0/%d * * * * *", intervalSeconds), nil
}

// Stop cancels every scheduled monitor's cron instance.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	for name, eng := range s.engines {
		eng.Stop()
		delete(s.engines, name)
	}
	s.cancel()
	s.running = false
}

// ScheduledMonitors returns the names of monitors currently scheduled,
// for diagnostics and tests.
func (s *Scheduler) ScheduledMonitors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	return names
}
