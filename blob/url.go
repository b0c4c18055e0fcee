package blob

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonwraymond/blobpipe/pipeline"
)

// SecondaryHost returns the read-only secondary host for the account in
// rawURL by appending suffix to the account label, e.g.
// "acct.blob.example.net" becomes "acct-secondary.blob.example.net".
func SecondaryHost(rawURL, suffix string) (string, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return "", err
	}
	if suffix == "" {
		suffix = "-secondary"
	}
	host := u.Host
	account, rest, found := strings.Cut(host, ".")
	if !found {
		return account + suffix, nil
	}
	return account + suffix + "." + rest, nil
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// storageURL is the state shared by every handle: an immutable URL and the
// pipeline requests are sent through.
type storageURL struct {
	u *url.URL
	p *pipeline.Pipeline
}

func newStorageURL(rawURL string, p *pipeline.Pipeline) (storageURL, error) {
	if p == nil {
		return storageURL{}, ErrNilPipeline
	}
	u, err := parseURL(rawURL)
	if err != nil {
		return storageURL{}, err
	}
	return storageURL{u: u, p: p}, nil
}

// child returns the URL of a named resource below s.
func (s storageURL) child(name string) (*url.URL, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	c := *s.u
	c.Path = strings.TrimSuffix(c.Path, "/") + "/" + name
	c.RawPath = ""
	return &c, nil
}

// operation describes one request sent by a handle.
type operation struct {
	name    string
	method  string
	query   url.Values
	header  http.Header
	body    io.ReadSeeker
	success []int
}

// send issues op against s and returns the response when its status is one
// of op.success. Any other status is returned as *pipeline.ResponseError.
func (s storageURL) send(ctx context.Context, op operation) (*http.Response, error) {
	u := *s.u
	q := u.Query()
	for k, vs := range op.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := pipeline.NewRequest(op.method, u.String(), op.body)
	if err != nil {
		return nil, err
	}
	req.SetOperation(op.name)
	for k, vs := range op.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.p.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, code := range op.success {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	return nil, pipeline.NewResponseError(resp)
}

// sendNoBody sends op and discards the response body.
func (s storageURL) sendNoBody(ctx context.Context, op operation) (*http.Response, error) {
	resp, err := s.send(ctx, op)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp, nil
}

// sendXML sends op and decodes the response body into out.
func (s storageURL) sendXML(ctx context.Context, op operation, out any) (*http.Response, error) {
	resp, err := s.send(ctx, op)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("blob: decode %s response: %w", op.name, err)
	}
	return resp, nil
}
