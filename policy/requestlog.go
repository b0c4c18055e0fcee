package policy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/blobpipe/observe"
	"github.com/jonwraymond/blobpipe/pipeline"
	"github.com/jonwraymond/blobpipe/resilience"
)

// DefaultSlowThreshold is the try duration above which a Warn entry is logged.
const DefaultSlowThreshold = 3 * time.Second

// RequestLogOptions configures the request log policy.
type RequestLogOptions struct {
	// SlowThreshold marks tries that take longer as slow.
	// Default: 3s. Negative disables slow-try logging.
	SlowThreshold time.Duration
}

// redactedQueryParams are query parameters whose values never reach the log.
var redactedQueryParams = []string{"sig", "signature"}

// RedactURL renders u with secret query values replaced by "REDACTED".
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for key := range q {
		for _, secret := range redactedQueryParams {
			if strings.EqualFold(key, secret) {
				q.Set(key, "REDACTED")
				changed = true
			}
		}
	}
	if !changed {
		return u.String()
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}

// NewRequestLogPolicyFactory returns a factory that logs every try. Each try
// is logged at Debug, failed tries at Error, and slow tries at Warn. The
// Authorization header is never logged.
func NewRequestLogPolicyFactory(o RequestLogOptions) pipeline.Factory {
	if o.SlowThreshold == 0 {
		o.SlowThreshold = DefaultSlowThreshold
	}
	return pipeline.FactoryFunc(func(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.Policy {
		return &requestLogPolicy{next: next, opts: o, po: po}
	})
}

type requestLogPolicy struct {
	next pipeline.Policy
	opts RequestLogOptions
	po   *pipeline.PolicyOptions
	seq  atomic.Int64
}

func (p *requestLogPolicy) Do(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
	target := RedactURL(req.URL)
	fields := []observe.Field{
		observe.F("seq", p.seq.Add(1)),
		observe.F("method", req.Method),
		observe.F("url", target),
	}
	if n, ok := resilience.AttemptFrom(ctx); ok {
		fields = append(fields, observe.F("attempt", n))
	}
	if op := req.Operation(); op != "" {
		fields = append(fields, observe.F("operation", op))
	}
	if id := RequestID(req); id != "" {
		fields = append(fields, observe.F("request_id", id))
	}

	p.po.Log(ctx, observe.LevelDebug, "sending request", fields...)

	start := time.Now()
	resp, err := p.next.Do(ctx, req)
	elapsed := time.Since(start)

	fields = append(fields, observe.F("duration_ms", float64(elapsed.Milliseconds())))
	if resp != nil {
		fields = append(fields, observe.F("status", resp.StatusCode))
	}

	switch {
	case err != nil:
		fields = append(fields, observe.F("error", err.Error()))
		level := observe.LevelError
		if errors.Is(err, context.Canceled) {
			level = observe.LevelWarn
		}
		p.po.Log(ctx, level, "request failed", fields...)
	case resp != nil && resp.StatusCode >= http.StatusBadRequest:
		p.po.Log(ctx, observe.LevelError, "request failed",
			append(fields, observe.F("error", fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))))...)
	case p.opts.SlowThreshold > 0 && elapsed > p.opts.SlowThreshold:
		p.po.Log(ctx, observe.LevelWarn, "slow request",
			append(fields, observe.F("threshold_ms", float64(p.opts.SlowThreshold.Milliseconds())))...)
	default:
		p.po.Log(ctx, observe.LevelDebug, "request completed", fields...)
	}
	return resp, err
}
