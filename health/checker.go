package health

import (
	"context"
	"time"
)

// Status represents the health of an endpoint.
type Status int

const (
	// StatusHealthy indicates the endpoint answered within its latency budget.
	StatusHealthy Status = iota
	// StatusDegraded indicates the endpoint answered slowly, or an optional
	// endpoint is down.
	StatusDegraded
	// StatusUnhealthy indicates the endpoint did not answer.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	// Name is the checker name.
	Name string

	// Status is the graded outcome.
	Status Status

	// Host is the endpoint that was probed, when known.
	Host string

	// Latency is how long the probe took.
	Latency time.Duration

	// CheckedAt is when the probe started.
	CheckedAt time.Time

	// Err is the probe error for unhealthy results.
	Err error
}

// Checker probes one endpoint.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the checker name.
func (f *CheckerFunc) Name() string { return f.name }

// Check calls the function.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	r := f.fn(ctx)
	if r.Name == "" {
		r.Name = f.name
	}
	return r
}
