package blob

import (
	"fmt"

	"github.com/jonwraymond/blobpipe/credential"
	"github.com/jonwraymond/blobpipe/observe"
	"github.com/jonwraymond/blobpipe/pipeline"
	"github.com/jonwraymond/blobpipe/policy"
	"github.com/jonwraymond/blobpipe/resilience"
)

// PipelineOptions configures NewPipeline.
type PipelineOptions struct {
	// Retry configures the retry/failover policy.
	Retry resilience.RetryOptions

	// Telemetry sets the User-Agent prefix.
	Telemetry policy.TelemetryOptions

	// RequestLog configures per-try logging.
	RequestLog policy.RequestLogOptions

	// Throttle adds a client-side rate limit when set.
	Throttle *resilience.ThrottleOptions

	// Bulkhead adds a concurrency limit when set.
	Bulkhead *resilience.BulkheadOptions

	// Observer adds tracing and request metrics when set.
	Observer observe.Observer

	// Logger receives policy log entries.
	// Default: Observer.Logger() if Observer is set, otherwise a no-op logger
	Logger observe.Logger

	// LogLevel is the minimum level policies log at.
	LogLevel observe.LogLevel

	// HTTPClient sends requests.
	// Default: pipeline.DefaultHTTPClient()
	HTTPClient pipeline.HTTPClient
}

// Validate checks the nested option structs.
func (o PipelineOptions) Validate() error {
	if err := o.Retry.Validate(); err != nil {
		return fmt.Errorf("blob: retry options: %w", err)
	}
	if o.Throttle != nil {
		if err := o.Throttle.Validate(); err != nil {
			return fmt.Errorf("blob: throttle options: %w", err)
		}
	}
	if o.Bulkhead != nil {
		if err := o.Bulkhead.Validate(); err != nil {
			return fmt.Errorf("blob: bulkhead options: %w", err)
		}
	}
	return nil
}

// NewPipeline builds the default pipeline. Policies run in this order:
// telemetry, request ID, tracing (with Observer), retry, throttle, bulkhead,
// credential, request log. Everything after retry runs once per try, so each
// try is signed for its own host. A nil cred sends requests anonymously.
func NewPipeline(cred credential.Credential, o PipelineOptions) (*pipeline.Pipeline, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if cred == nil {
		cred = credential.NewAnonymousCredential()
	}

	factories := []pipeline.Factory{
		policy.NewTelemetryPolicyFactory(o.Telemetry),
		policy.NewUniqueRequestIDPolicyFactory(),
	}
	if o.Observer != nil {
		tracing, err := policy.NewTracingPolicyFactory(o.Observer)
		if err != nil {
			return nil, fmt.Errorf("blob: tracing policy: %w", err)
		}
		factories = append(factories, tracing)
	}
	factories = append(factories, resilience.NewRetryPolicyFactory(o.Retry))
	if o.Throttle != nil {
		factories = append(factories, resilience.NewThrottlePolicyFactory(*o.Throttle))
	}
	if o.Bulkhead != nil {
		factories = append(factories, resilience.NewBulkheadPolicyFactory(*o.Bulkhead))
	}
	factories = append(factories, cred, policy.NewRequestLogPolicyFactory(o.RequestLog))

	logger := o.Logger
	if logger == nil && o.Observer != nil {
		logger = o.Observer.Logger()
	}
	return pipeline.New(factories, pipeline.Options{
		HTTPClient: o.HTTPClient,
		Logger:     logger,
		LogLevel:   o.LogLevel,
	}), nil
}
