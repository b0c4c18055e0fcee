package abort

import (
	"context"
	"errors"
	"time"
)

// Sentinel causes reported by Reason.
var (
	// ErrAborted is the cause recorded when Cancel is called.
	ErrAborted = errors.New("abort: operation aborted")

	// ErrTimeout is the cause recorded when an Aborter's timeout elapses.
	ErrTimeout = errors.New("abort: operation timed out")
)

// Aborter is a cancellation token that can be passed as a context.Context.
//
// Contract:
// - Concurrency: safe for concurrent use; Cancel may be called from any goroutine.
// - Ownership: a child holds a read-only link to its parent and never cancels it.
// - Errors: Err reports context.Canceled or context.DeadlineExceeded; Reason
// reports ErrAborted or ErrTimeout.
type Aborter struct {
	context.Context

	cancel context.CancelCauseFunc
	parent *Aborter
}

// None is an Aborter that is never cancelled. Calling Cancel on it is a no-op.
var None = &Aborter{Context: context.Background()}

// New creates a cancellable Aborter under parent. A nil parent behaves like None.
// If parent is itself an Aborter it is recorded as the Parent.
func New(parent context.Context) *Aborter {
	if parent == nil {
		parent = None
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &Aborter{Context: ctx, cancel: cancel, parent: asAborter(parent)}
}

// Timeout creates a root Aborter that cancels itself after d.
func Timeout(d time.Duration) *Aborter {
	return None.WithTimeout(d)
}

// WithTimeout creates a child Aborter that is cancelled when a is cancelled
// or when d elapses, whichever happens first.
func (a *Aborter) WithTimeout(d time.Duration) *Aborter {
	child := New(a)
	timed, stop := context.WithTimeoutCause(child.Context, d, ErrTimeout)
	child.Context = timed
	parentCancel := child.cancel
	child.cancel = func(cause error) {
		parentCancel(cause)
		stop()
	}
	return child
}

// Cancel aborts a and every Aborter derived from it.
func (a *Aborter) Cancel() {
	if a == nil || a.cancel == nil {
		return
	}
	a.cancel(ErrAborted)
}

// Cancelled reports whether a has been cancelled, directly or through an ancestor.
func (a *Aborter) Cancelled() bool {
	return a.Err() != nil
}

// Reason returns the cause of cancellation, or nil while a is active.
func (a *Aborter) Reason() error {
	if a.Err() == nil {
		return nil
	}
	return context.Cause(a.Context)
}

// Parent returns the Aborter a was derived from. Aborters made by Timeout or
// by New with a nil parent report None; one made by New from a context that
// is not an Aborter reports nil.
func (a *Aborter) Parent() *Aborter {
	return a.parent
}

func asAborter(ctx context.Context) *Aborter {
	if a, ok := ctx.(*Aborter); ok {
		return a
	}
	return nil
}
