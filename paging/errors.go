package paging

import "errors"

// Sentinel errors for paging operations.
var (
	// ErrNoMorePages is returned by NextSegment once the listing is complete.
	ErrNoMorePages = errors.New("paging: no more pages")

	// ErrMarkerRepeated is returned when the service answers a marker with
	// the same marker, which would otherwise loop forever.
	ErrMarkerRepeated = errors.New("paging: continuation marker repeated")

	// ErrNilFunc is the panic value when NewLister is given a nil function.
	ErrNilFunc = errors.New("paging: fetch and items functions are required")
)
