package credential

import (
	"context"
	"net/http"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// Credential signs the requests of a pipeline.
//
// Contract:
// - Concurrency: a Credential is shared by every pipeline built with it and
// must be safe for concurrent use.
// - Placement: it must sit after the retry policy so each try is signed
// against its own host.
type Credential interface {
	pipeline.Factory

	// Scheme names the signing scheme, e.g. "SharedKey".
	Scheme() string
}

// Anonymous is a Credential that sends requests unsigned.
type Anonymous struct{}

// NewAnonymousCredential returns the anonymous credential.
func NewAnonymousCredential() Anonymous {
	return Anonymous{}
}

// New passes requests through unchanged.
func (Anonymous) New(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
	return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
		return next.Do(ctx, req)
	})
}

// Scheme returns "Anonymous".
func (Anonymous) Scheme() string { return "Anonymous" }
