package blob

import "errors"

// Sentinel errors for blob operations.
var (
	// ErrInvalidURL is returned when a handle URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("blob: invalid URL")

	// ErrEmptyName is returned when a container or blob name is empty.
	ErrEmptyName = errors.New("blob: name is required")

	// ErrNilPipeline is returned when a handle is created without a pipeline.
	ErrNilPipeline = errors.New("blob: pipeline is required")

	// ErrInvalidRange is returned for a negative download offset or count.
	ErrInvalidRange = errors.New("blob: invalid range")
)
