package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrInvalidOptions is returned by Validate for out-of-range options.
	ErrInvalidOptions = errors.New("resilience: invalid options")

	// ErrNoResponse is recorded when a policy returns neither a response nor an error.
	ErrNoResponse = errors.New("resilience: no response")

	// ErrThrottled is returned when the request rate limit is exceeded.
	ErrThrottled = errors.New("resilience: request rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)

// AttemptError reports the failure of a retry-governed operation together
// with the attempt that produced it.
type AttemptError struct {
	// Host is the host the failing attempt was sent to.
	Host string

	// Attempt is the 1-based number of the failing attempt.
	Attempt int

	// Err is the underlying failure.
	Err error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("resilience: attempt %d against %s: %v", e.Attempt, e.Host, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable. Policies below the retry policy use it
// for failures that another attempt cannot fix, such as a signing error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
