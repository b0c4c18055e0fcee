package credential

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/coder/quartz"

	"github.com/jonwraymond/blobpipe/pipeline"
	"github.com/jonwraymond/blobpipe/resilience"
)

// Headers set by the shared key credential.
const (
	DateHeader    = "x-ms-date"
	VersionHeader = "x-ms-version"

	// ServiceVersion is the service API version requests are signed for.
	ServiceVersion = "2020-10-02"
)

// signedHeaders are the standard headers included in the string to sign, in order.
var signedHeaders = []string{
	"Content-Encoding",
	"Content-Language",
	"Content-Length",
	"Content-MD5",
	"Content-Type",
	"If-Modified-Since",
	"If-Match",
	"If-None-Match",
	"If-Unmodified-Since",
	"Range",
}

// SharedKeyCredential signs requests with an account name and key.
type SharedKeyCredential struct {
	account string
	key     []byte
	clock   quartz.Clock
}

// NewSharedKeyCredential creates a credential from an account name and its
// base64 encoded key.
func NewSharedKeyCredential(account, accountKey string) (*SharedKeyCredential, error) {
	if strings.TrimSpace(account) == "" {
		return nil, ErrMissingAccount
	}
	key, err := base64.StdEncoding.DecodeString(accountKey)
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &SharedKeyCredential{account: account, key: key, clock: quartz.NewReal()}, nil
}

// WithClock returns a copy of c that stamps x-ms-date from clock.
func (c *SharedKeyCredential) WithClock(clock quartz.Clock) *SharedKeyCredential {
	cp := *c
	cp.clock = clock
	return &cp
}

// AccountName returns the account the credential signs for.
func (c *SharedKeyCredential) AccountName() string { return c.account }

// Scheme returns "SharedKey".
func (c *SharedKeyCredential) Scheme() string { return "SharedKey" }

// New returns a policy that signs each request passing through it.
func (c *SharedKeyCredential) New(next pipeline.Policy, _ *pipeline.PolicyOptions) pipeline.Policy {
	return pipeline.PolicyFunc(func(ctx context.Context, req *pipeline.Request) (*http.Response, error) {
		if err := c.Sign(req); err != nil {
			return nil, resilience.Permanent(err)
		}
		return next.Do(ctx, req)
	})
}

// Sign stamps the date and version headers and sets the Authorization header.
func (c *SharedKeyCredential) Sign(req *pipeline.Request) error {
	if req == nil || req.URL == nil {
		return fmt.Errorf("%w: request has no URL", ErrSigning)
	}
	req.Header.Set(DateHeader, c.clock.Now("credential", "sign").UTC().Format(http.TimeFormat))
	if req.Header.Get(VersionHeader) == "" {
		req.Header.Set(VersionHeader, ServiceVersion)
	}

	sts, err := c.StringToSign(req)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "SharedKey "+c.account+":"+c.ComputeHMACSHA256(sts))
	return nil
}

// ComputeHMACSHA256 returns the base64 HMAC-SHA256 of message under the account key.
func (c *SharedKeyCredential) ComputeHMACSHA256(message string) string {
	h := hmac.New(sha256.New, c.key)
	_, _ = h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// StringToSign builds the canonical form of req that is signed. The target
// host is part of it, so a request re-addressed to a secondary host must be
// signed again.
func (c *SharedKeyCredential) StringToSign(req *pipeline.Request) (string, error) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(req.Method))
	b.WriteByte('\n')
	b.WriteString(strings.ToLower(req.URL.Host))
	b.WriteByte('\n')
	for _, h := range signedHeaders {
		v := req.Header.Get(h)
		if h == "Content-Length" && v == "0" {
			v = ""
		}
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteString(canonicalHeaders(req.Header))

	resource, err := c.canonicalResource(req.URL)
	if err != nil {
		return "", err
	}
	b.WriteString(resource)
	return b.String(), nil
}

func canonicalHeaders(h http.Header) string {
	var keys []string
	for k := range h {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "x-ms-") {
			keys = append(keys, lk)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strings.Join(h.Values(k), ","))
		b.WriteByte('\n')
	}
	return b.String()
}

func (c *SharedKeyCredential) canonicalResource(u *url.URL) (string, error) {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(c.account)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	b.WriteString(path)

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: parse query: %v", ErrSigning, err)
	}
	keys := make([]string, 0, len(q))
	lower := make(map[string][]string, len(q))
	for k, v := range q {
		lk := strings.ToLower(k)
		if _, seen := lower[lk]; !seen {
			keys = append(keys, lk)
		}
		lower[lk] = append(lower[lk], v...)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := append([]string(nil), lower[k]...)
		sort.Strings(vals)
		b.WriteByte('\n')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String(), nil
}

