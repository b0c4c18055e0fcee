package pipeline

import (
	"context"
	"net/http"
	"slices"

	"github.com/jonwraymond/blobpipe/observe"
)

// Options configures the transport-level facilities of a Pipeline.
type Options struct {
	// HTTPClient executes requests at the end of the chain.
	// Default: DefaultHTTPClient()
	HTTPClient HTTPClient

	// Logger receives entries written through PolicyOptions.Log.
	// Default: a no-op logger
	Logger observe.Logger

	// LogLevel is the minimum level policies log at.
	// Default: LevelDebug (every entry is passed to Logger, which filters again)
	LogLevel observe.LogLevel
}

// Pipeline is an immutable ordered chain of policies ending in a transport.
//
// Contract:
// - Concurrency: safe for concurrent use; the chain is built once in New.
// - Ownership: New copies the factory slice; later changes to the caller's
// slice do not affect the Pipeline.
type Pipeline struct {
	factories []Factory
	opts      Options
	head      Policy
}

// New builds a Pipeline where factories[0] is outermost and the transport is
// innermost. Nil factories are skipped.
func New(factories []Factory, o Options) *Pipeline {
	if o.HTTPClient == nil {
		o.HTTPClient = DefaultHTTPClient()
	}
	if o.Logger == nil {
		o.Logger = observe.NopLogger()
	}

	kept := make([]Factory, 0, len(factories))
	for _, f := range factories {
		if f != nil {
			kept = append(kept, f)
		}
	}

	po := &PolicyOptions{logger: o.Logger, level: o.LogLevel}

	var next Policy = transportPolicy{client: o.HTTPClient}
	for i := len(kept) - 1; i >= 0; i-- {
		next = kept[i].New(next, po)
	}

	return &Pipeline{
		factories: kept,
		opts:      o,
		head:      next,
	}
}

// Do sends req through the chain.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if p == nil {
		return nil, ErrNilPipeline
	}
	if req == nil {
		return nil, ErrNilRequest
	}
	return p.head.Do(ctx, req)
}

// Factories returns a copy of the ordered factory list.
func (p *Pipeline) Factories() []Factory {
	return slices.Clone(p.factories)
}

// Options returns the options the Pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// With returns a new Pipeline with extra factories appended after the existing
// ones, directly in front of the transport. p is not modified.
func (p *Pipeline) With(extra ...Factory) *Pipeline {
	return New(append(p.Factories(), extra...), p.opts)
}
