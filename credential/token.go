package credential

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/blobpipe/pipeline"
	"github.com/jonwraymond/blobpipe/resilience"
)

// TokenOptions configures a TokenCredential.
type TokenOptions struct {
	// Secret is the HS256 signing key. Required.
	Secret []byte

	// Issuer is the "iss" claim.
	Issuer string

	// Subject is the "sub" claim.
	Subject string

	// Scope is an optional "scp" claim.
	Scope string

	// TTL is the lifetime of each token.
	// Default: 5 minutes
	TTL time.Duration

	// RefreshSkew renews a cached token this long before it expires.
	// Default: 30 seconds
	RefreshSkew time.Duration

	// Clock stamps issue and expiry times.
	// Default: quartz.NewReal()
	Clock quartz.Clock
}

// TokenClaims are the claims of tokens minted by TokenCredential.
type TokenClaims struct {
	Scope string `json:"scp,omitempty"`
	jwt.RegisteredClaims
}

type cachedToken struct {
	raw     string
	renewAt time.Time
}

// TokenCredential attaches a bearer token whose audience is the request host.
// Tokens are cached per host; concurrent requests to a host share one mint.
type TokenCredential struct {
	opts TokenOptions

	mu     sync.Mutex
	cache  map[string]cachedToken
	group  singleflight.Group
	minted atomic.Int64
}

// NewTokenCredential creates a TokenCredential.
func NewTokenCredential(o TokenOptions) (*TokenCredential, error) {
	if len(o.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.RefreshSkew <= 0 {
		o.RefreshSkew = 30 * time.Second
	}
	if o.RefreshSkew >= o.TTL {
		o.RefreshSkew = o.TTL / 2
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return &TokenCredential{opts: o, cache: make(map[string]cachedToken)}, nil
}

// Scheme returns "Bearer".
func (c *TokenCredential) Scheme() string { return "Bearer" }

// Minted returns how many tokens have been signed.
func (c *TokenCredential) Minted() int { return int(c.minted.Load()) }

// New returns a policy that sets the Authorization header for the host each
// request is addressed to.
func (c *TokenCredential) New(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
	return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
		token, err := c.Token(ctx, req.URL.Host)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return next.Do(ctx, req)
	})
}

// Token returns a valid token for host, minting one if needed.
func (c *TokenCredential) Token(ctx context.Context, host string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	host = strings.ToLower(host)
	now := c.opts.Clock.Now("credential", "token")

	c.mu.Lock()
	cached, ok := c.cache[host]
	c.mu.Unlock()
	if ok && now.Before(cached.renewAt) {
		return cached.raw, nil
	}

	v, err, _ := c.group.Do(host, func() (any, error) {
		return c.mint(host)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *TokenCredential) mint(host string) (string, error) {
	now := c.opts.Clock.Now("credential", "token")
	expires := now.Add(c.opts.TTL)
	claims := TokenClaims{
		Scope: c.opts.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.opts.Issuer,
			Subject:   c.opts.Subject,
			Audience:  jwt.ClaimStrings{host},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	c.minted.Add(1)

	c.mu.Lock()
	c.cache[host] = cachedToken{raw: raw, renewAt: expires.Add(-c.opts.RefreshSkew)}
	c.mu.Unlock()
	return raw, nil
}
