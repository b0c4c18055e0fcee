package resilience

import (
	"context"
	"sync"
	"time"
)

// Attempt records one try of a retry-governed operation.
type Attempt struct {
	Number     int
	Host       string
	StatusCode int // 0 when no response was received
	Outcome    Outcome
	Err        error
	Delay      time.Duration // backoff slept after this attempt, 0 if none
}

// Diagnostics collects the attempts of the operations sent with its context.
// Recording never changes retry behavior.
type Diagnostics struct {
	mu       sync.Mutex
	attempts []Attempt
}

type diagnosticsKey struct{}

// WithDiagnostics returns a context that records retry attempts into the
// returned Diagnostics.
func WithDiagnostics(ctx context.Context) (context.Context, *Diagnostics) {
	d := &Diagnostics{}
	return context.WithValue(ctx, diagnosticsKey{}, d), d
}

// DiagnosticsFrom returns the Diagnostics attached to ctx, or nil.
func DiagnosticsFrom(ctx context.Context) *Diagnostics {
	d, _ := ctx.Value(diagnosticsKey{}).(*Diagnostics)
	return d
}

type attemptKey struct{}

// AttemptFrom returns the 1-based attempt number the retry policy assigned
// to the try carried by ctx. ok is false outside a retry policy.
func AttemptFrom(ctx context.Context) (n int, ok bool) {
	n, ok = ctx.Value(attemptKey{}).(int)
	return n, ok
}

func (d *Diagnostics) record(a Attempt) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, a)
}

// Attempts returns a copy of the recorded attempts in order.
func (d *Diagnostics) Attempts() []Attempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Attempt, len(d.attempts))
	copy(out, d.attempts)
	return out
}

// Count returns the number of recorded attempts.
func (d *Diagnostics) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attempts)
}

// Hosts returns the target host of every recorded attempt in order.
func (d *Diagnostics) Hosts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	hosts := make([]string, len(d.attempts))
	for i, a := range d.attempts {
		hosts[i] = a.Host
	}
	return hosts
}
