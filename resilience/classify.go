package resilience

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// Outcome is the classification of one attempt.
type Outcome int

const (
	// OutcomeSuccess ends the operation successfully.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryableNetwork is a transport failure or per-try timeout.
	OutcomeRetryableNetwork
	// OutcomeRetryableServer is a transient status such as 500, 503 or 429.
	OutcomeRetryableServer
	// OutcomePermanent is a failure another attempt cannot fix.
	OutcomePermanent
	// OutcomeCancelled means the caller cancelled the operation.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableNetwork:
		return "retryable-network"
	case OutcomeRetryableServer:
		return "retryable-server"
	case OutcomePermanent:
		return "permanent"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
func (o Outcome) Retryable() bool {
	return o == OutcomeRetryableNetwork || o == OutcomeRetryableServer
}

// conditionalHeaders make a request conditional on the resource's state.
var conditionalHeaders = []string{
	"If-Match",
	"If-None-Match",
	"If-Modified-Since",
	"If-Unmodified-Since",
}

// Classify decides the outcome of one attempt of req.
//
// ctx is the operation's context, not the per-try context: a per-try timeout
// with ctx still alive is a retryable network failure, while a done ctx is a
// cancellation. onSecondary reports whether the attempt targeted the
// secondary host.
func Classify(ctx context.Context, req *pipeline.Request, resp *http.Response, err error, onSecondary bool) Outcome {
	if ctx.Err() != nil {
		return OutcomeCancelled
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return OutcomeCancelled
		}
		if IsPermanent(err) || errors.Is(err, pipeline.ErrBodyNotRewindable) {
			return OutcomePermanent
		}
		var re *pipeline.ResponseError
		if errors.As(err, &re) {
			return classifyStatus(req, re.StatusCode, onSecondary)
		}
		return OutcomeRetryableNetwork
	}

	if resp == nil {
		return OutcomeRetryableNetwork
	}
	return classifyStatus(req, resp.StatusCode, onSecondary)
}

func classifyStatus(req *pipeline.Request, code int, onSecondary bool) Outcome {
	switch {
	case code < 400:
		return OutcomeSuccess
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return OutcomeRetryableServer
	case code == http.StatusNotFound && onSecondary:
		// The secondary may lag behind the primary.
		return OutcomeRetryableServer
	case code == http.StatusNotImplemented, code == http.StatusHTTPVersionNotSupported:
		return OutcomePermanent
	case code >= 500:
		if isConditional(req) && code != http.StatusInternalServerError && code != http.StatusServiceUnavailable {
			return OutcomePermanent
		}
		return OutcomeRetryableServer
	default:
		return OutcomePermanent
	}
}

func isConditional(req *pipeline.Request) bool {
	if req == nil {
		return false
	}
	for _, h := range conditionalHeaders {
		if req.Header.Get(h) != "" {
			return true
		}
	}
	return false
}
