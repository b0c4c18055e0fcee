package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// BulkheadOptions configures the concurrency limit.
type BulkheadOptions struct {
	// MaxConcurrent is the maximum number of requests in flight.
	// Default: 10
	MaxConcurrent int

	// MaxWait is the maximum time to wait for a slot.
	// Default: 0 (fail immediately with ErrBulkheadFull)
	MaxWait time.Duration
}

// Validate reports options that are set but out of range.
func (o BulkheadOptions) Validate() error {
	if o.MaxConcurrent < 0 {
		return fmt.Errorf("%w: MaxConcurrent must not be negative", ErrInvalidOptions)
	}
	if o.MaxWait < 0 {
		return fmt.Errorf("%w: MaxWait must not be negative", ErrInvalidOptions)
	}
	return nil
}

// Bulkhead limits the number of requests in flight.
type Bulkhead struct {
	opts BulkheadOptions
	sem  *semaphore.Weighted

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(o BulkheadOptions) *Bulkhead {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 10
	}
	return &Bulkhead{
		opts: o,
		sem:  semaphore.NewWeighted(int64(o.MaxConcurrent)),
	}
}

// Acquire takes a slot, waiting up to MaxWait.
// Returns ErrBulkheadFull if no slot became available.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		b.admit()
		return nil
	}
	if b.opts.MaxWait <= 0 {
		b.reject()
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.opts.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			b.reject()
			return ErrBulkheadFull
		}
		return err
	}
	b.admit()
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	b.sem.Release(1)
}

func (b *Bulkhead) admit() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

func (b *Bulkhead) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Metrics returns current bulkhead statistics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Available:     b.opts.MaxConcurrent - b.active,
		MaxConcurrent: b.opts.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

// NewBulkheadPolicyFactory returns a factory backed by a new Bulkhead.
func NewBulkheadPolicyFactory(o BulkheadOptions) pipeline.Factory {
	return NewBulkhead(o).Factory()
}

// Factory returns a pipeline factory whose policies share b. A slot is held
// until the response body is closed.
func (b *Bulkhead) Factory() pipeline.Factory {
	return pipeline.FactoryFunc(func(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
		return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
			if err := b.Acquire(ctx); err != nil {
				return nil, err
			}
			resp, err := next.Do(ctx, req)
			if err != nil || resp == nil || resp.Body == nil {
				b.Release()
				return resp, err
			}
			resp.Body = &releaseOnClose{ReadCloser: resp.Body, release: b.Release}
			return resp, nil
		})
	})
}

// releaseOnClose frees a bulkhead slot the first time the body is closed.
type releaseOnClose struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (r *releaseOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.release)
	return err
}
