package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/blobpipe/observe"
)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Timeout bounds one round of checks.
	// Default: 10 seconds
	Timeout time.Duration

	// Logger receives a warning for each endpoint that is not healthy.
	// Default: a no-op logger
	Logger observe.Logger
}

// Report is the outcome of one round of checks.
type Report struct {
	// Status is the worst required result. Optional endpoints can lower it
	// to degraded at most.
	Status Status

	// Results holds one entry per checker in registration order.
	Results []Result
}

// Result returns the named result.
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

type registration struct {
	checker  Checker
	required bool
}

// Monitor runs endpoint checkers concurrently and grades the account.
//
// Contract:
// - Concurrency: safe for concurrent use.
type Monitor struct {
	cfg MonitorConfig

	mu   sync.RWMutex
	regs []registration
}

// NewMonitor creates a Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Monitor{cfg: cfg}
}

// Register adds c. A checker registered again under the same name replaces
// the earlier one. A failing optional checker only degrades the report.
func (m *Monitor) Register(c Checker, required bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, reg := range m.regs {
		if reg.checker.Name() == c.Name() {
			m.regs[i] = registration{checker: c, required: required}
			return
		}
	}
	m.regs = append(m.regs, registration{checker: c, required: required})
}

// Names returns the registered checker names in order.
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.regs))
	for i, reg := range m.regs {
		names[i] = reg.checker.Name()
	}
	return names
}

// CheckOne runs the named checker alone.
func (m *Monitor) CheckOne(ctx context.Context, name string) (Result, error) {
	m.mu.RLock()
	var found Checker
	for _, reg := range m.regs {
		if reg.checker.Name() == name {
			found = reg.checker
		}
	}
	m.mu.RUnlock()
	if found == nil {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	return m.run(ctx, found), nil
}

// Check runs every checker concurrently. With no checkers registered the
// report is unhealthy.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.RLock()
	regs := append([]registration(nil), m.regs...)
	m.mu.RUnlock()

	if len(regs) == 0 {
		return Report{Status: StatusUnhealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	results := make([]Result, len(regs))
	var g errgroup.Group
	for i, reg := range regs {
		g.Go(func() error {
			results[i] = m.run(ctx, reg.checker)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusHealthy, Results: results}
	for i, res := range results {
		status := res.Status
		if !regs[i].required && status == StatusUnhealthy {
			status = StatusDegraded
		}
		if status > report.Status {
			report.Status = status
		}
		if res.Status != StatusHealthy {
			fields := []observe.Field{
				observe.F("check", res.Name),
				observe.F("status", res.Status.String()),
				observe.F("latency_ms", res.Latency.Milliseconds()),
			}
			if res.Err != nil {
				fields = append(fields, observe.F("error", res.Err.Error()))
			}
			m.cfg.Logger.Warn(ctx, "endpoint not healthy", fields...)
		}
	}
	return report
}

// run waits for c until ctx expires. A checker that ignores ctx is left to
// finish in the background.
func (m *Monitor) run(ctx context.Context, c Checker) Result {
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	select {
	case r := <-done:
		if r.Name == "" {
			r.Name = c.Name()
		}
		return r
	case <-ctx.Done():
		return Result{Name: c.Name(), Status: StatusUnhealthy, Err: ErrCheckTimeout}
	}
}
