package policy

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// RequestIDHeader carries the client-generated request ID.
const RequestIDHeader = "x-ms-client-request-id"

// NewUniqueRequestIDPolicyFactory returns a factory that stamps a random UUID
// into RequestIDHeader unless the caller set one. Placed before the retry
// policy, every try of an operation shares the ID.
func NewUniqueRequestIDPolicyFactory() pipeline.Factory {
	return pipeline.FactoryFunc(func(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
		return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) == "" {
				req.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return next.Do(ctx, req)
		})
	})
}

// RequestID returns the client request ID of req, or "".
func RequestID(req *pipeline.Request) string {
	return req.Header.Get(RequestIDHeader)
}
