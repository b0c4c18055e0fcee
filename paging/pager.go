package paging

import (
	"context"
	"fmt"
	"iter"
)

// Segment is one page of a listing.
type Segment interface {
	// ContinuationMarker returns the marker for the next segment, or "" when
	// this is the last segment.
	ContinuationMarker() string
}

// FetchFunc retrieves the segment that starts at marker. The first segment
// is fetched with an empty marker.
type FetchFunc[C any, S Segment, O any] func(ctx context.Context, container C, marker string, opts O) (S, error)

// ItemsFunc extracts the items of a segment. It must not perform I/O.
type ItemsFunc[S Segment, T any] func(segment S) []T

// Lister creates Pagers over listings of container C.
//
// Contract:
// - Concurrency: a Lister is immutable and safe for concurrent use. Pagers
// are not; each must be driven by one goroutine at a time.
type Lister[C any, S Segment, O any, T any] struct {
	fetch FetchFunc[C, S, O]
	items ItemsFunc[S, T]
}

// NewLister creates a Lister. It panics with ErrNilFunc if either function is nil.
func NewLister[C any, S Segment, O any, T any](fetch FetchFunc[C, S, O], items ItemsFunc[S, T]) *Lister[C, S, O, T] {
	if fetch == nil || items == nil {
		panic(ErrNilFunc)
	}
	return &Lister[C, S, O, T]{fetch: fetch, items: items}
}

// Pager returns a Pager positioned at the start of the listing.
func (l *Lister[C, S, O, T]) Pager(container C, opts O) *Pager[C, S, O, T] {
	return &Pager[C, S, O, T]{lister: l, container: container, opts: opts}
}

// Resume returns a Pager positioned at a marker saved from an earlier Pager.
// An empty marker starts from the beginning.
func (l *Lister[C, S, O, T]) Resume(container C, opts O, marker string) *Pager[C, S, O, T] {
	p := l.Pager(container, opts)
	p.marker = marker
	return p
}

// Segments returns the segments of a fresh listing.
func (l *Lister[C, S, O, T]) Segments(ctx context.Context, container C, opts O) iter.Seq2[S, error] {
	return l.Pager(container, opts).Segments(ctx)
}

// Items returns the items of a fresh listing.
func (l *Lister[C, S, O, T]) Items(ctx context.Context, container C, opts O) iter.Seq2[T, error] {
	return l.Pager(container, opts).Items(ctx)
}

// Collect fetches a fresh listing to completion.
func (l *Lister[C, S, O, T]) Collect(ctx context.Context, container C, opts O) ([]T, error) {
	return l.Pager(container, opts).Collect(ctx)
}

// Pager walks one listing.
//
// A Pager only moves forward. Once the last segment has been fetched,
// every mode yields nothing and reports no error. A failed fetch leaves the
// position unchanged, so driving the Pager again retries the failed segment.
type Pager[C any, S Segment, O any, T any] struct {
	lister    *Lister[C, S, O, T]
	container C
	opts      O

	marker  string
	done    bool
	fetches int
}

// More reports whether another segment may be fetched.
func (p *Pager[C, S, O, T]) More() bool {
	return !p.done
}

// Marker returns the marker of the next segment. It can be handed to
// Lister.Resume to continue the listing later.
func (p *Pager[C, S, O, T]) Marker() string {
	return p.marker
}

// Fetches returns the number of successful segment fetches.
func (p *Pager[C, S, O, T]) Fetches() int {
	return p.fetches
}

// NextSegment fetches the next segment. ctx is checked before the fetch; a
// cancelled ctx returns its error without fetching. After the final segment
// it returns ErrNoMorePages.
func (p *Pager[C, S, O, T]) NextSegment(ctx context.Context) (S, error) {
	var zero S
	if p.done {
		return zero, ErrNoMorePages
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	seg, err := p.lister.fetch(ctx, p.container, p.marker, p.opts)
	if err != nil {
		return zero, err
	}
	// A segment that arrives after cancellation is discarded.
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	p.fetches++

	next := seg.ContinuationMarker()
	if next != "" && next == p.marker {
		p.done = true
		return zero, fmt.Errorf("%w: %q", ErrMarkerRepeated, next)
	}
	p.marker = next
	if next == "" {
		p.done = true
	}
	return seg, nil
}

// Segments returns the remaining segments in order. A failure is yielded as
// the final element.
func (p *Pager[C, S, O, T]) Segments(ctx context.Context) iter.Seq2[S, error] {
	return func(yield func(S, error) bool) {
		for p.More() {
			seg, err := p.NextSegment(ctx)
			if err != nil {
				var zero S
				yield(zero, err)
				return
			}
			if !yield(seg, nil) {
				return
			}
		}
	}
}

// Items returns the items of the remaining segments in order. A failure is
// yielded as the final element. Stopping early discards the rest of the
// current segment.
func (p *Pager[C, S, O, T]) Items(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for seg, err := range p.Segments(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range p.lister.items(seg) {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect fetches the remaining segments and returns their items in order.
// On failure it returns the items gathered so far together with the error.
func (p *Pager[C, S, O, T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for seg, err := range p.Segments(ctx) {
		if err != nil {
			return all, err
		}
		all = append(all, p.lister.items(seg)...)
	}
	return all, nil
}
