package pipeline

import (
	"context"
	"net/http"

	"github.com/jonwraymond/blobpipe/observe"
)

// Policy is one node of the request chain.
//
// Contract:
// - Concurrency: a Policy is shared by every request sent through its
// Pipeline and must be safe for concurrent use.
// - State: policies must not retain requests across calls. Policies that keep
// shared state (rate limits, semaphores) document it.
// - Context: policies must not swallow cancellation. If ctx is done, the
// returned error must report it.
type Policy interface {
	Do(ctx context.Context, req *Request) (*http.Response, error)
}

// PolicyFunc adapts a function to a Policy.
type PolicyFunc func(ctx context.Context, req *Request) (*http.Response, error)

// Do calls f(ctx, req).
func (f PolicyFunc) Do(ctx context.Context, req *Request) (*http.Response, error) {
	return f(ctx, req)
}

// Factory creates a Policy that delegates to next.
type Factory interface {
	New(next Policy, opts *PolicyOptions) Policy
}

// FactoryFunc adapts a function to a Factory.
type FactoryFunc func(next Policy, opts *PolicyOptions) Policy

// New calls f(next, opts).
func (f FactoryFunc) New(next Policy, opts *PolicyOptions) Policy {
	return f(next, opts)
}

// PolicyOptions exposes pipeline-wide facilities to policies.
type PolicyOptions struct {
	logger observe.Logger
	level  observe.LogLevel
}

// ShouldLog reports whether an entry at level would be emitted.
func (o *PolicyOptions) ShouldLog(level observe.LogLevel) bool {
	return o != nil && o.level.Enabled(level)
}

// Log writes an entry at level to the pipeline logger when ShouldLog allows it.
func (o *PolicyOptions) Log(ctx context.Context, level observe.LogLevel, msg string, fields ...observe.Field) {
	if !o.ShouldLog(level) {
		return
	}
	switch level {
	case observe.LevelDebug:
		o.logger.Debug(ctx, msg, fields...)
	case observe.LevelInfo:
		o.logger.Info(ctx, msg, fields...)
	case observe.LevelWarn:
		o.logger.Warn(ctx, msg, fields...)
	default:
		o.logger.Error(ctx, msg, fields...)
	}
}

// Logger returns the pipeline logger. It is never nil.
func (o *PolicyOptions) Logger() observe.Logger {
	if o == nil || o.logger == nil {
		return observe.NopLogger()
	}
	return o.logger
}
