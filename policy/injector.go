package policy

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// FaultFunc decides the fate of one try. try counts every request the
// injector has seen, starting at 1. A non-nil error fails the try without
// reaching the rest of the chain.
type FaultFunc func(try int, req *pipeline.Request) error

// Injector fails tries on demand. Append its factory last, just before the
// transport, to exercise retry behavior without a misbehaving server.
type Injector struct {
	fault    FaultFunc
	tries    atomic.Int64
	injected atomic.Int64
}

// NewInjector creates an Injector driven by fault.
func NewInjector(fault FaultFunc) *Injector {
	return &Injector{fault: fault}
}

// Factory returns the pipeline factory for the injector.
func (i *Injector) Factory() pipeline.Factory {
	return pipeline.FactoryFunc(func(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
		return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
			try := int(i.tries.Add(1))
			if i.fault != nil {
				if err := i.fault(try, req); err != nil {
					i.injected.Add(1)
					return nil, err
				}
			}
			return next.Do(ctx, req)
		})
	})
}

// Tries returns the number of tries the injector has seen.
func (i *Injector) Tries() int { return int(i.tries.Load()) }

// Injected returns the number of tries the injector failed.
func (i *Injector) Injected() int { return int(i.injected.Load()) }

// ServerError builds the error a service returns for status on req's host.
func ServerError(req *pipeline.Request, status int) *pipeline.ResponseError {
	return &pipeline.ResponseError{
		StatusCode: status,
		ErrorCode:  http.StatusText(status),
		Host:       req.URL.Host,
	}
}

// FailFirst fails the first n tries with status.
func FailFirst(n, status int) FaultFunc {
	return func(try int, req *pipeline.Request) error {
		if try <= n {
			return ServerError(req, status)
		}
		return nil
	}
}

// FailAlways fails every try with status.
func FailAlways(status int) FaultFunc {
	return func(_ int, req *pipeline.Request) error {
		return ServerError(req, status)
	}
}
