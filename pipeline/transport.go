package pipeline

import (
	"context"
	"net"
	"net/http"
	"time"
)

// HTTPClient sends a fully formed request. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClientFunc adapts a function to an HTTPClient.
type HTTPClientFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f HTTPClientFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

var defaultHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	},
	// Redirects are surfaced to policies instead of being followed.
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// DefaultHTTPClient returns the shared client used when Options.HTTPClient is nil.
func DefaultHTTPClient() *http.Client {
	return defaultHTTPClient
}

// transportPolicy is the terminal node of every chain.
type transportPolicy struct {
	client HTTPClient
}

func (t transportPolicy) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req.Request.WithContext(ctx))
	if err != nil {
		// Report cancellation rather than the transport's rendering of it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return resp, nil
}
