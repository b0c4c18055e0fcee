package credential

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/blobpipe/pipeline"
	"github.com/jonwraymond/blobpipe/resilience"
)

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

type headerClient struct {
	mu    sync.Mutex
	seen  []http.Header
	hosts []string
	fail  int
}

func (c *headerClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, req.Header.Clone())
	c.hosts = append(c.hosts, req.URL.Host)
	status := http.StatusOK
	if len(c.hosts) <= c.fail {
		status = http.StatusServiceUnavailable
	}
	return &http.Response{StatusCode: status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("")), Request: req}, nil
}

func newRequest(t *testing.T, method, rawURL string) *pipeline.Request {
	t.Helper()
	req, err := pipeline.NewRequest(method, rawURL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	return req
}

func TestAnonymous(t *testing.T) {
	client := &headerClient{}
	p := pipeline.New([]pipeline.Factory{NewAnonymousCredential()}, pipeline.Options{HTTPClient: client})

	if _, err := p.Do(context.Background(), newRequest(t, http.MethodGet, "https://acct.blob.example.net/public/b")); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got := client.seen[0].Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
	if got := NewAnonymousCredential().Scheme(); got != "Anonymous" {
		t.Errorf("Scheme() = %q", got)
	}
}

func TestNewSharedKeyCredential_Errors(t *testing.T) {
	if _, err := NewSharedKeyCredential("", testKey); !errors.Is(err, ErrMissingAccount) {
		t.Errorf("empty account error = %v, want ErrMissingAccount", err)
	}
	if _, err := NewSharedKeyCredential("acct", "not base64!"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("bad key error = %v, want ErrInvalidKey", err)
	}
	if _, err := NewSharedKeyCredential("acct", ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty key error = %v, want ErrInvalidKey", err)
	}
}

func TestSharedKeyCredential_StringToSign(t *testing.T) {
	mClock := quartz.NewMock(t)
	cred, err := NewSharedKeyCredential("acct", testKey)
	if err != nil {
		t.Fatalf("NewSharedKeyCredential() error = %v", err)
	}
	cred = cred.WithClock(mClock)

	req := newRequest(t, http.MethodGet, "https://acct.blob.example.net/c?restype=container&comp=list")
	if err := cred.Sign(req); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	date := mClock.Now().UTC().Format(http.TimeFormat)
	if got := req.Header.Get(DateHeader); got != date {
		t.Errorf("%s = %q, want %q", DateHeader, got, date)
	}

	want := "GET\nacct.blob.example.net\n" + strings.Repeat("\n", 10) +
		"x-ms-date:" + date + "\n" +
		"x-ms-version:" + ServiceVersion + "\n" +
		"/acct/c\ncomp:list\nrestype:container"
	got, err := cred.StringToSign(req)
	if err != nil {
		t.Fatalf("StringToSign() error = %v", err)
	}
	if got != want {
		t.Errorf("StringToSign() =\n%q\nwant\n%q", got, want)
	}

	wantAuth := "SharedKey acct:" + cred.ComputeHMACSHA256(want)
	if auth := req.Header.Get("Authorization"); auth != wantAuth {
		t.Errorf("Authorization = %q, want %q", auth, wantAuth)
	}
}

func TestSharedKeyCredential_ResignsPerHost(t *testing.T) {
	cred, err := NewSharedKeyCredential("acct", testKey)
	if err != nil {
		t.Fatalf("NewSharedKeyCredential() error = %v", err)
	}
	cred = cred.WithClock(quartz.NewMock(t))

	client := &headerClient{fail: 1}
	p := pipeline.New([]pipeline.Factory{
		resilience.NewRetryPolicyFactory(resilience.RetryOptions{
			MaxTries:      2,
			RetryDelay:    time.Millisecond,
			MaxRetryDelay: time.Millisecond,
			SecondaryHost: "acct-secondary.blob.example.net",
		}),
		cred,
	}, pipeline.Options{HTTPClient: client})

	resp, err := p.Do(context.Background(), newRequest(t, http.MethodGet, "https://acct.blob.example.net/c/b"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	_ = resp.Body.Close()

	if len(client.seen) != 2 {
		t.Fatalf("tries = %d, want 2", len(client.seen))
	}
	first, second := client.seen[0].Get("Authorization"), client.seen[1].Get("Authorization")
	if first == "" || second == "" || first == second {
		t.Errorf("Authorization per host = %q, %q; want distinct signatures", first, second)
	}
	if client.hosts[1] != "acct-secondary.blob.example.net" {
		t.Errorf("second host = %q", client.hosts[1])
	}
}

func TestNewTokenCredential_RequiresSecret(t *testing.T) {
	if _, err := NewTokenCredential(TokenOptions{}); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("error = %v, want ErrMissingSecret", err)
	}
}

func TestTokenCredential_AudienceIsHost(t *testing.T) {
	mClock := quartz.NewMock(t)
	secret := []byte("token-secret")
	cred, err := NewTokenCredential(TokenOptions{Secret: secret, Issuer: "blobpipe", Subject: "svc", Scope: "blob.read", Clock: mClock})
	if err != nil {
		t.Fatalf("NewTokenCredential() error = %v", err)
	}

	client := &headerClient{}
	p := pipeline.New([]pipeline.Factory{cred}, pipeline.Options{HTTPClient: client})
	if _, err := p.Do(context.Background(), newRequest(t, http.MethodGet, "https://acct.blob.example.net/c")); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	auth := client.seen[0].Get("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		t.Fatalf("Authorization = %q, want bearer", auth)
	}

	claims := &TokenClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithAudience("acct.blob.example.net"),
		jwt.WithIssuer("blobpipe"),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return mClock.Now() }),
	)
	if err != nil {
		t.Fatalf("ParseWithClaims() error = %v", err)
	}
	if claims.Subject != "svc" || claims.Scope != "blob.read" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenCredential_CachesPerHost(t *testing.T) {
	mClock := quartz.NewMock(t)
	cred, err := NewTokenCredential(TokenOptions{Secret: []byte("s"), TTL: time.Minute, RefreshSkew: 10 * time.Second, Clock: mClock})
	if err != nil {
		t.Fatalf("NewTokenCredential() error = %v", err)
	}
	ctx := context.Background()

	a1, _ := cred.Token(ctx, "a.example.net")
	a2, _ := cred.Token(ctx, "A.example.net")
	b1, _ := cred.Token(ctx, "b.example.net")
	if a1 != a2 {
		t.Error("token for the same host was minted twice")
	}
	if a1 == b1 {
		t.Error("hosts share a token")
	}
	if cred.Minted() != 2 {
		t.Errorf("Minted() = %d, want 2", cred.Minted())
	}

	mClock.Advance(51 * time.Second)
	a3, _ := cred.Token(ctx, "a.example.net")
	if a3 == a1 {
		t.Error("token not renewed inside the refresh window")
	}
	if cred.Minted() != 3 {
		t.Errorf("Minted() = %d, want 3", cred.Minted())
	}
}

func TestTokenCredential_ConcurrentMintsShared(t *testing.T) {
	cred, err := NewTokenCredential(TokenOptions{Secret: []byte("s")})
	if err != nil {
		t.Fatalf("NewTokenCredential() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cred.Token(context.Background(), "acct.blob.example.net"); err != nil {
				t.Errorf("Token() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// A caller that read the cache before the first mint finished may mint again.
	if got := cred.Minted(); got < 1 || got > 32 {
		t.Errorf("Minted() = %d", got)
	}
	if _, err := cred.Token(context.Background(), "acct.blob.example.net"); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
}

func TestTokenCredential_CancelledContext(t *testing.T) {
	cred, _ := NewTokenCredential(TokenOptions{Secret: []byte("s")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cred.Token(ctx, "h"); !errors.Is(err, context.Canceled) {
		t.Errorf("Token() error = %v, want context.Canceled", err)
	}
}
