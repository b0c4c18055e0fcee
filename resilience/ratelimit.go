package resilience

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/jonwraymond/blobpipe/observe"
	"github.com/jonwraymond/blobpipe/pipeline"
)

// ThrottleOptions configures the client-side request throttle.
type ThrottleOptions struct {
	// Rate is the number of requests allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// Wait makes requests wait for a token instead of failing with ErrThrottled.
	// Default: false
	Wait bool

	// MaxWait is the maximum time to wait for a token when Wait is set.
	// Default: 1s
	MaxWait time.Duration

	// Clock drives token refill and waits.
	// Default: quartz.NewReal()
	Clock quartz.Clock
}

// Validate reports options that are set but out of range.
func (o ThrottleOptions) Validate() error {
	switch {
	case o.Rate < 0:
		return fmt.Errorf("%w: Rate must not be negative", ErrInvalidOptions)
	case o.Burst < 0:
		return fmt.Errorf("%w: Burst must not be negative", ErrInvalidOptions)
	case o.MaxWait < 0:
		return fmt.Errorf("%w: MaxWait must not be negative", ErrInvalidOptions)
	}
	return nil
}

// Throttle is a token bucket shared by every request of the pipelines built
// with its factory.
type Throttle struct {
	opts ThrottleOptions

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewThrottle creates a full token bucket.
func NewThrottle(o ThrottleOptions) *Throttle {
	if o.Rate <= 0 {
		o.Rate = 100
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.MaxWait <= 0 {
		o.MaxWait = time.Second
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return &Throttle{
		opts:        o,
		tokens:      float64(o.Burst),
		lastRefresh: o.Clock.Now("throttle", "refill"),
	}
}

// Allow takes a token if one is available.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refillLocked()
	if t.tokens >= 1 {
		t.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is taken, MaxWait elapses or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Allow() {
		return nil
	}

	t.mu.Lock()
	wait := time.Duration((1 - t.tokens) / t.opts.Rate * float64(time.Second))
	t.mu.Unlock()
	if wait > t.opts.MaxWait {
		wait = t.opts.MaxWait
	}

	timer := t.opts.Clock.NewTimer(wait, "throttle", "wait")
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if t.Allow() {
			return nil
		}
		return ErrThrottled
	}
}

// Tokens returns the number of tokens currently available.
func (t *Throttle) Tokens() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refillLocked()
	return t.tokens
}

func (t *Throttle) refillLocked() {
	now := t.opts.Clock.Now("throttle", "refill")
	elapsed := now.Sub(t.lastRefresh)
	t.lastRefresh = now

	t.tokens += elapsed.Seconds() * t.opts.Rate
	if t.tokens > float64(t.opts.Burst) {
		t.tokens = float64(t.opts.Burst)
	}
}

// NewThrottlePolicyFactory returns a factory backed by a new Throttle.
func NewThrottlePolicyFactory(o ThrottleOptions) pipeline.Factory {
	return NewThrottle(o).Factory()
}

// Factory returns a pipeline factory whose policies share t's token bucket.
// Placed after the retry policy, every attempt takes a token.
func (t *Throttle) Factory() pipeline.Factory {
	return pipeline.FactoryFunc(func(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.Policy {
		return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
			if t.opts.Wait {
				if err := t.Wait(ctx); err != nil {
					po.Log(ctx, observe.LevelWarn, "request throttled", observe.F("host", req.URL.Host), observe.F("error", err.Error()))
					return nil, err
				}
			} else if !t.Allow() {
				po.Log(ctx, observe.LevelWarn, "request throttled", observe.F("host", req.URL.Host))
				return nil, ErrThrottled
			}
			return next.Do(ctx, req)
		})
	})
}
