package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/blobpipe/observe"
)

// okClient answers every request with 200 and records what it saw.
type okClient struct {
	mu    sync.Mutex
	calls []*http.Request
}

func (c *okClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

// traceFactory appends name to a shared trace on the way in and out.
func traceFactory(name string, trace *[]string, mu *sync.Mutex) Factory {
	return FactoryFunc(func(next Policy, _ *PolicyOptions) Policy {
		return PolicyFunc(func(ctx context.Context, req *Request) (*http.Response, error) {
			mu.Lock()
			*trace = append(*trace, "in:"+name)
			mu.Unlock()
			req.Header.Add("X-Trace", name)

			resp, err := next.Do(ctx, req)

			mu.Lock()
			*trace = append(*trace, "out:"+name)
			mu.Unlock()
			return resp, err
		})
	})
}

func TestNew_OrdersFactoriesOutermostFirst(t *testing.T) {
	var trace []string
	var mu sync.Mutex
	client := &okClient{}

	p := New([]Factory{
		traceFactory("a", &trace, &mu),
		traceFactory("b", &trace, &mu),
		traceFactory("c", &trace, &mu),
	}, Options{HTTPClient: client})

	req, err := NewRequest(http.MethodGet, "https://acct.blob.example.net/c", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if _, err := p.Do(context.Background(), req); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	want := []string{"in:a", "in:b", "in:c", "out:c", "out:b", "out:a"}
	if strings.Join(trace, ",") != strings.Join(want, ",") {
		t.Errorf("trace = %v, want %v", trace, want)
	}
	if len(client.calls) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(client.calls))
	}
	if got := client.calls[0].Header.Values("X-Trace"); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("X-Trace = %v, want [a b c]", got)
	}
}

func TestNew_CopiesFactorySlice(t *testing.T) {
	var trace []string
	var mu sync.Mutex
	factories := []Factory{traceFactory("a", &trace, &mu)}

	p := New(factories, Options{HTTPClient: &okClient{}})
	factories[0] = traceFactory("mutated", &trace, &mu)

	got := p.Factories()
	if len(got) != 1 {
		t.Fatalf("Factories() len = %d, want 1", len(got))
	}
	got[0] = nil
	if p.Factories()[0] == nil {
		t.Error("Factories() exposed internal slice")
	}

	req, _ := NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	_, _ = p.Do(context.Background(), req)
	if len(trace) == 0 || trace[0] != "in:a" {
		t.Errorf("trace = %v, want the original factory to run", trace)
	}
}

func TestPipeline_WithLeavesOriginalUntouched(t *testing.T) {
	var trace []string
	var mu sync.Mutex
	client := &okClient{}

	base := New([]Factory{traceFactory("base", &trace, &mu)}, Options{HTTPClient: client})
	injected := base.With(traceFactory("inject", &trace, &mu))

	if len(base.Factories()) != 1 {
		t.Errorf("base factories = %d, want 1", len(base.Factories()))
	}
	if len(injected.Factories()) != 2 {
		t.Errorf("injected factories = %d, want 2", len(injected.Factories()))
	}

	req, _ := NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	_, _ = base.Do(context.Background(), req)
	if strings.Join(trace, ",") != "in:base,out:base" {
		t.Errorf("base trace = %v", trace)
	}

	trace = nil
	req, _ = NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	_, _ = injected.Do(context.Background(), req)
	if strings.Join(trace, ",") != "in:base,in:inject,out:inject,out:base" {
		t.Errorf("injected trace = %v", trace)
	}
}

func TestNew_SkipsNilFactories(t *testing.T) {
	p := New([]Factory{nil, nil}, Options{HTTPClient: &okClient{}})
	if len(p.Factories()) != 0 {
		t.Errorf("Factories() = %d, want 0", len(p.Factories()))
	}
	req, _ := NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	if _, err := p.Do(context.Background(), req); err != nil {
		t.Errorf("Do() error = %v", err)
	}
}

func TestPipeline_DoNilGuards(t *testing.T) {
	var p *Pipeline
	req, _ := NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	if _, err := p.Do(context.Background(), req); !errors.Is(err, ErrNilPipeline) {
		t.Errorf("nil pipeline error = %v, want ErrNilPipeline", err)
	}

	p = New(nil, Options{HTTPClient: &okClient{}})
	if _, err := p.Do(context.Background(), nil); !errors.Is(err, ErrNilRequest) {
		t.Errorf("nil request error = %v, want ErrNilRequest", err)
	}
}

func TestTransport_ObservesCancellationBeforeDispatch(t *testing.T) {
	client := &okClient{}
	p := New(nil, Options{HTTPClient: client})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	_, err := p.Do(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("transport called %d times after cancellation", len(client.calls))
	}
}

func TestTransport_ReportsCancellationOverClientError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := HTTPClientFunc(func(req *http.Request) (*http.Response, error) {
		cancel()
		return nil, errors.New("net/http: request canceled")
	})

	p := New(nil, Options{HTTPClient: client})
	req, _ := NewRequest(http.MethodGet, "https://acct.blob.example.net/", nil)
	if _, err := p.Do(ctx, req); !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestPolicyOptions_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("debug", &buf)

	var seen *PolicyOptions
	capture := FactoryFunc(func(next Policy, opts *PolicyOptions) Policy {
		seen = opts
		return next
	})
	New([]Factory{capture}, Options{HTTPClient: &okClient{}, Logger: logger, LogLevel: observe.LevelWarn})

	if seen == nil {
		t.Fatal("factory did not receive PolicyOptions")
	}
	if seen.ShouldLog(observe.LevelInfo) {
		t.Error("ShouldLog(info) = true for a warn pipeline")
	}
	seen.Log(context.Background(), observe.LevelInfo, "dropped")
	seen.Log(context.Background(), observe.LevelError, "kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("log output = %q", out)
	}
}

func TestPolicyOptions_NilSafe(t *testing.T) {
	var o *PolicyOptions
	if o.ShouldLog(observe.LevelError) {
		t.Error("nil options should not log")
	}
	o.Log(context.Background(), observe.LevelError, "ignored")
	if o.Logger() == nil {
		t.Error("Logger() returned nil")
	}
}

func TestResponseError(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://acct-secondary.blob.example.net/c", nil)
	h := http.Header{}
	h.Set(ErrorCodeHeader, "ServerBusy")
	resp := &http.Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader("<Error><Code>ServerBusy</Code></Error>")),
		Request:    req,
	}

	re := NewResponseError(resp)
	if re.Host != "acct-secondary.blob.example.net" {
		t.Errorf("Host = %q", re.Host)
	}
	if re.ErrorCode != "ServerBusy" {
		t.Errorf("ErrorCode = %q, want ServerBusy", re.ErrorCode)
	}
	if !strings.Contains(string(re.Body), "ServerBusy") {
		t.Errorf("Body = %q", re.Body)
	}
	if !strings.Contains(re.Error(), "503") {
		t.Errorf("Error() = %q, want status code", re.Error())
	}

	var err error = re
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Error("IsStatus(503) = false")
	}
	if IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus(404) = true")
	}
}
