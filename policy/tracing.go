package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/blobpipe/observe"
	"github.com/jonwraymond/blobpipe/pipeline"
)

// NewTracingPolicyFactory returns a factory that opens one client span per
// operation and records request metrics through obs. Place it before the
// retry policy so a span covers every try of the operation.
func NewTracingPolicyFactory(obs observe.Observer) (pipeline.Factory, error) {
	if obs == nil {
		return nil, observe.ErrNilObserver
	}
	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewTracingPolicyFactoryFrom(observe.NewTracer(obs.Tracer()), metrics), nil
}

// NewTracingPolicyFactoryFrom builds the tracing policy from an explicit
// tracer and metrics pair. Nil arguments disable the respective signal.
func NewTracingPolicyFactoryFrom(tracer observe.Tracer, metrics observe.Metrics) pipeline.Factory {
	if tracer == nil {
		tracer = observe.NewTracer(nil)
	}
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	return pipeline.FactoryFunc(func(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
		return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
			meta := observe.RequestMeta{
				Operation: req.Operation(),
				Method:    req.Method,
				Host:      req.URL.Host,
				Path:      req.URL.Path,
				ReadOnly:  req.IsReadOnly(),
			}

			ctx, span := tracer.StartSpan(ctx, meta)
			start := time.Now()

			resp, err := next.Do(ctx, req)

			status := statusOf(resp, err)
			failure := err
			if failure == nil && status >= http.StatusBadRequest {
				failure = errors.New(http.StatusText(status))
			}
			tracer.EndSpan(span, status, failure)
			metrics.RecordRequest(ctx, meta, time.Since(start), status, failure)
			return resp, err
		})
	})
}

func statusOf(resp *http.Response, err error) int {
	if resp != nil {
		return resp.StatusCode
	}
	var re *pipeline.ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
