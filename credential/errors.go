package credential

import "errors"

// Sentinel errors for credential operations.
var (
	// ErrMissingAccount is returned when a shared key credential has no account name.
	ErrMissingAccount = errors.New("credential: account name is required")

	// ErrInvalidKey is returned when an account key is empty or not base64.
	ErrInvalidKey = errors.New("credential: invalid account key")

	// ErrMissingSecret is returned when a token credential has no signing secret.
	ErrMissingSecret = errors.New("credential: signing secret is required")

	// ErrSigning is returned when a request could not be signed.
	ErrSigning = errors.New("credential: signing failed")
)
