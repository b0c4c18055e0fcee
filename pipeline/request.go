package pipeline

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Request is an outbound request travelling through a Pipeline.
//
// It wraps *http.Request and keeps the body as an io.ReadSeeker so the
// request can be replayed by retrying policies. The context is not stored on
// the request; it travels alongside it through Policy.Do.
type Request struct {
	*http.Request

	body      io.ReadSeeker
	operation string
}

// NewRequest creates a Request for method and rawURL with an optional body.
func NewRequest(method, rawURL string, body io.ReadSeeker) (*Request, error) {
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build request: %w", err)
	}
	r := &Request{Request: req}
	if body != nil {
		if err := r.SetBody(body); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetBody replaces the request body and sets Content-Length from its size.
func (r *Request) SetBody(body io.ReadSeeker) error {
	size, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBodyNotRewindable, err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrBodyNotRewindable, err)
	}

	r.body = body
	r.ContentLength = size
	r.Header.Set("Content-Length", strconv.FormatInt(size, 10))
	if size == 0 {
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return nil
	}
	r.Body = io.NopCloser(body)
	r.GetBody = func() (io.ReadCloser, error) {
		if err := r.RewindBody(); err != nil {
			return nil, err
		}
		return io.NopCloser(body), nil
	}
	return nil
}

// RewindBody seeks the body back to its start. It is a no-op without a body.
func (r *Request) RewindBody() error {
	if r.body == nil {
		return nil
	}
	if _, err := r.body.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrBodyNotRewindable, err)
	}
	return nil
}

// Copy returns a copy with its own URL and headers. The body reader is shared,
// so copies must not be sent concurrently.
func (r *Request) Copy() *Request {
	hr := *r.Request
	u := *r.URL
	hr.URL = &u
	hr.Header = r.Header.Clone()
	return &Request{Request: &hr, body: r.body, operation: r.operation}
}

// WithHost returns a copy of r addressed to host.
func (r *Request) WithHost(host string) *Request {
	c := r.Copy()
	c.URL.Host = host
	c.Host = ""
	return c
}

// IsReadOnly reports whether the request cannot change service state.
// Only read-only requests may be served by a secondary host.
func (r *Request) IsReadOnly() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// SetOperation names the logical operation for logs and telemetry.
func (r *Request) SetOperation(name string) {
	r.operation = name
}

// Operation returns the logical operation name, or "" if none was set.
func (r *Request) Operation() string {
	return r.operation
}
