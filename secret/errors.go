package secret

import "errors"

// Sentinel errors for secret resolution.
var (
	// ErrUnknownSource is returned for a reference to an unregistered Source.
	ErrUnknownSource = errors.New("secret: unknown source")

	// ErrNotFound is returned when a Source has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty is returned by a strict Resolver when a value resolves to "".
	ErrEmpty = errors.New("secret: empty value")

	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrInvalidRef is returned for a malformed reference.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
