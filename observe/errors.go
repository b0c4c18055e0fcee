package observe

import "errors"

// Configuration errors. Config.Validate joins every problem it finds.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSampleRatio indicates Config.SampleRatio is outside [0, 1].
	ErrInvalidSampleRatio = errors.New("observe: sample ratio must be within [0, 1]")

	// ErrInvalidExporter indicates an exporter name that is not supported
	// for its signal.
	ErrInvalidExporter = errors.New("observe: invalid exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")
)

// ErrNilObserver indicates a nil Observer was provided.
var ErrNilObserver = errors.New("observe: observer is nil")

// RedactedFields lists field keys whose values are never written.
// Matching is case-insensitive.
var RedactedFields = []string{
	"authorization",
	"signature",
	"sig",
	"token",
	"account_key",
	"accountKey",
	"password",
	"secret",
	"credential",
}
