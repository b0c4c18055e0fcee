package credential

import (
	"context"
	"fmt"

	"github.com/jonwraymond/blobpipe/secret"
)

// NewSharedKeyCredentialFromSecret resolves keyRef with r and creates a
// SharedKeyCredential from the result. keyRef is any value r accepts, such
// as "keyref:env:STORAGE_ACCOUNT_KEY".
func NewSharedKeyCredentialFromSecret(ctx context.Context, r *secret.Resolver, account, keyRef string) (*SharedKeyCredential, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil resolver", ErrInvalidKey)
	}
	key, err := r.Resolve(ctx, keyRef)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve key for %s: %w", ErrInvalidKey, account, err)
	}
	return NewSharedKeyCredential(account, key)
}

// TokenSecret resolves secretRef with r into a TokenOptions.Secret value.
func TokenSecret(ctx context.Context, r *secret.Resolver, secretRef string) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil resolver", ErrMissingSecret)
	}
	v, err := r.Resolve(ctx, secretRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingSecret, err)
	}
	if v == "" {
		return nil, ErrMissingSecret
	}
	return []byte(v), nil
}
