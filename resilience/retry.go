package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/jonwraymond/blobpipe/observe"
	"github.com/jonwraymond/blobpipe/pipeline"
)

// Retry defaults applied by NewRetryPolicyFactory.
const (
	DefaultMaxTries      = 4
	DefaultTryTimeout    = 60 * time.Second
	DefaultRetryDelay    = 4 * time.Second
	DefaultMaxRetryDelay = 120 * time.Second
)

// RetryOptions configures the retry/failover policy.
type RetryOptions struct {
	// MaxTries is the maximum number of attempts, including the first.
	// Default: 4
	MaxTries int

	// TryTimeout bounds each individual attempt.
	// Default: 60s
	TryTimeout time.Duration

	// RetryDelay is the base backoff. The delay before retry n is
	// RetryDelay * 2^(n-1), capped at MaxRetryDelay.
	// Default: 4s
	RetryDelay time.Duration

	// MaxRetryDelay caps the delay between attempts.
	// Default: 120s
	MaxRetryDelay time.Duration

	// SecondaryHost is a read-only replica host. When set, read-only
	// requests alternate between the primary and this host.
	SecondaryHost string

	// Jitter spreads each delay by up to 20% in either direction.
	Jitter bool

	// Clock drives backoff sleeps.
	// Default: quartz.NewReal()
	Clock quartz.Clock

	// OnRetry is called before each backoff sleep with the attempt that
	// failed, the host it targeted, its error and the delay about to be slept.
	OnRetry func(attempt int, host string, err error, delay time.Duration)
}

// Validate reports options that are set but out of range. Zero values are
// valid and select the defaults.
func (o RetryOptions) Validate() error {
	switch {
	case o.MaxTries < 0:
		return fmt.Errorf("%w: MaxTries must not be negative", ErrInvalidOptions)
	case o.TryTimeout < 0:
		return fmt.Errorf("%w: TryTimeout must not be negative", ErrInvalidOptions)
	case o.RetryDelay < 0:
		return fmt.Errorf("%w: RetryDelay must not be negative", ErrInvalidOptions)
	case o.MaxRetryDelay < 0:
		return fmt.Errorf("%w: MaxRetryDelay must not be negative", ErrInvalidOptions)
	}
	base, ceiling := o.RetryDelay, o.MaxRetryDelay
	if base == 0 {
		base = DefaultRetryDelay
	}
	if ceiling == 0 {
		ceiling = DefaultMaxRetryDelay
	}
	if base > ceiling {
		return fmt.Errorf("%w: RetryDelay %v exceeds MaxRetryDelay %v", ErrInvalidOptions, base, ceiling)
	}
	return nil
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxTries <= 0 {
		o.MaxTries = DefaultMaxTries
	}
	if o.TryTimeout <= 0 {
		o.TryTimeout = DefaultTryTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return o
}

// Delay returns the backoff slept after the failed attempt count (1-based),
// before jitter.
func (o RetryOptions) Delay(count int) time.Duration {
	o = o.withDefaults()
	if count < 1 {
		count = 1
	}
	delay := o.RetryDelay
	for i := 1; i < count; i++ {
		delay *= 2
		if delay >= o.MaxRetryDelay || delay <= 0 {
			return o.MaxRetryDelay
		}
	}
	if delay > o.MaxRetryDelay {
		delay = o.MaxRetryDelay
	}
	return delay
}

func (o RetryOptions) jittered(count int) time.Duration {
	delay := o.Delay(count)
	if o.Jitter && delay/5 > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		spread := time.Duration(rand.Int64N(int64(2*(delay/5)) + 1))
		delay = delay - delay/5 + spread
		if delay > o.MaxRetryDelay {
			delay = o.MaxRetryDelay
		}
	}
	return delay
}

// NewRetryPolicyFactory returns a factory for the retry/failover policy.
//
// The policy sends each attempt as a copy of the request addressed to the
// chosen host, so policies after it see every attempt separately. Failing
// status codes are returned as *pipeline.ResponseError and every error it
// returns is an *AttemptError.
func NewRetryPolicyFactory(o RetryOptions) pipeline.Factory {
	o = o.withDefaults()
	return pipeline.FactoryFunc(func(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.Policy {
		return &retryPolicy{next: next, opts: o, po: po}
	})
}

type retryPolicy struct {
	next pipeline.Policy
	opts RetryOptions
	po   *pipeline.PolicyOptions
}

func (p *retryPolicy) Do(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
	if req == nil {
		return nil, pipeline.ErrNilRequest
	}

	primary := req.URL.Host
	failover := p.opts.SecondaryHost != "" && req.IsReadOnly()
	diag := DiagnosticsFrom(ctx)
	host := primary

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &AttemptError{Host: host, Attempt: attempt, Err: err}
		}
		if err := req.RewindBody(); err != nil {
			return nil, &AttemptError{Host: host, Attempt: attempt, Err: err}
		}

		onSecondary := host != primary
		resp, cancel, err := p.try(ctx, attempt, req.WithHost(host))
		outcome := Classify(ctx, req, resp, err, onSecondary)

		if outcome == OutcomeSuccess {
			diag.record(Attempt{Number: attempt, Host: host, StatusCode: resp.StatusCode, Outcome: outcome})
			resp.Body = &cancelOnClose{ReadCloser: bodyOf(resp), cancel: cancel}
			return resp, nil
		}

		failure := err
		status := 0
		if resp != nil {
			status = resp.StatusCode
			if failure == nil {
				failure = pipeline.NewResponseError(resp)
			} else if resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		if failure == nil {
			failure = ErrNoResponse
		}
		cancel()

		if outcome == OutcomeCancelled {
			cause := ctx.Err()
			if cause == nil {
				cause = failure
			}
			diag.record(Attempt{Number: attempt, Host: host, StatusCode: status, Outcome: outcome, Err: cause})
			return nil, &AttemptError{Host: host, Attempt: attempt, Err: cause}
		}

		lastErr = &AttemptError{Host: host, Attempt: attempt, Err: failure}
		if !outcome.Retryable() || attempt >= p.opts.MaxTries {
			diag.record(Attempt{Number: attempt, Host: host, StatusCode: status, Outcome: outcome, Err: failure})
			return nil, lastErr
		}

		if onSecondary && status == http.StatusNotFound {
			failover = false
		}

		delay := p.opts.jittered(attempt)
		diag.record(Attempt{Number: attempt, Host: host, StatusCode: status, Outcome: outcome, Err: failure, Delay: delay})
		p.po.Log(ctx, observe.LevelWarn, "retrying request",
			observe.F("attempt", attempt),
			observe.F("host", host),
			observe.F("outcome", outcome.String()),
			observe.F("delay_ms", delay.Milliseconds()),
			observe.F("error", failure.Error()),
		)
		if p.opts.OnRetry != nil {
			p.opts.OnRetry(attempt, host, failure, delay)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return nil, &AttemptError{Host: host, Attempt: attempt, Err: err}
		}

		if failover && host == primary {
			host = p.opts.SecondaryHost
		} else {
			host = primary
		}
	}
}

// try sends one attempt under its own timeout. The returned cancel releases
// the attempt context and must be called once the response is done with.
func (p *retryPolicy) try(ctx context.Context, attempt int, req *pipeline.Request) (*http.Response, context.CancelFunc, error) {
	tryCtx, cancel := context.WithTimeout(context.WithValue(ctx, attemptKey{}, attempt), p.opts.TryTimeout)
	resp, err := p.next.Do(tryCtx, req)
	if err == nil && resp == nil {
		err = ErrNoResponse
	}
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil && tryCtx.Err() != nil {
		// A per-try deadline can surface as a plain cancellation from some
		// transports.
		err = fmt.Errorf("resilience: try timed out after %v: %w", p.opts.TryTimeout, context.DeadlineExceeded)
	}
	return resp, cancel, err
}

func (p *retryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := p.opts.Clock.NewTimer(d, "retry", "backoff")
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func bodyOf(resp *http.Response) io.ReadCloser {
	if resp.Body == nil {
		return http.NoBody
	}
	return resp.Body
}

// cancelOnClose releases a per-try context when the response body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
