package pipeline

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for pipeline operations.
var (
	// ErrNilPipeline is returned when Do is called on a nil Pipeline.
	ErrNilPipeline = errors.New("pipeline: pipeline is nil")

	// ErrNilRequest is returned when a nil Request is sent.
	ErrNilRequest = errors.New("pipeline: request is nil")

	// ErrBodyNotRewindable is returned when a body must be replayed but cannot seek.
	ErrBodyNotRewindable = errors.New("pipeline: request body is not rewindable")
)

// ErrorCodeHeader carries the service's machine readable error code.
const ErrorCodeHeader = "x-ms-error-code"

// maxErrorBody bounds how much of an error response body is retained.
const maxErrorBody = 4 << 10

// ResponseError reports a response whose status code indicates failure.
type ResponseError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// ErrorCode is the service error code, when the service sent one.
	ErrorCode string

	// Host is the host that produced the response.
	Host string

	// Body holds the first bytes of the response body.
	Body []byte

	// Response is the failed response. Its body has been consumed and closed.
	Response *http.Response
}

// NewResponseError builds a ResponseError from resp, draining and closing its body.
func NewResponseError(resp *http.Response) *ResponseError {
	re := &ResponseError{
		StatusCode: resp.StatusCode,
		ErrorCode:  resp.Header.Get(ErrorCodeHeader),
		Response:   resp,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		re.Host = resp.Request.URL.Host
	}
	if resp.Body != nil {
		re.Body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		resp.Body = http.NoBody
	}
	return re
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("pipeline: %s returned %d %s", e.Host, e.StatusCode, http.StatusText(e.StatusCode))
	if e.ErrorCode != "" {
		msg += " (" + e.ErrorCode + ")"
	}
	return msg
}

// IsStatus reports whether err wraps a ResponseError with the given status code.
func IsStatus(err error, code int) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.StatusCode == code
}
