package policy

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// Version is the library version reported in the User-Agent header.
const Version = "0.3.0"

// TelemetryOptions configures the User-Agent telemetry tag.
type TelemetryOptions struct {
	// Value is an application prefix, e.g. "backup-agent/1.2".
	Value string
}

// UserAgent returns the User-Agent value the telemetry policy sends.
func (o TelemetryOptions) UserAgent() string {
	parts := make([]string, 0, 3)
	if v := strings.TrimSpace(o.Value); v != "" {
		parts = append(parts, v)
	}
	parts = append(parts,
		"blobpipe/"+Version,
		fmt.Sprintf("(%s; %s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	)
	return strings.Join(parts, " ")
}

// NewTelemetryPolicyFactory returns a factory that sets the User-Agent header
// on requests that do not already carry one.
func NewTelemetryPolicyFactory(o TelemetryOptions) pipeline.Factory {
	ua := o.UserAgent()
	return pipeline.FactoryFunc(func(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
		return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
			if req.Header.Get("User-Agent") == "" {
				req.Header.Set("User-Agent", ua)
			}
			return next.Do(ctx, req)
		})
	})
}
