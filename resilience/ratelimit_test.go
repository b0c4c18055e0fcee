package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jonwraymond/blobpipe/pipeline"
)

func TestNewThrottle_Defaults(t *testing.T) {
	th := NewThrottle(ThrottleOptions{})

	if th.opts.Rate != 100 {
		t.Errorf("Rate = %f, want 100", th.opts.Rate)
	}
	if th.opts.Burst != 10 {
		t.Errorf("Burst = %d, want 10", th.opts.Burst)
	}
	if th.opts.MaxWait != time.Second {
		t.Errorf("MaxWait = %v, want 1s", th.opts.MaxWait)
	}
}

func TestThrottleOptions_Validate(t *testing.T) {
	if err := (ThrottleOptions{}).Validate(); err != nil {
		t.Errorf("Validate() zero = %v", err)
	}
	for _, o := range []ThrottleOptions{{Rate: -1}, {Burst: -1}, {MaxWait: -time.Second}} {
		if err := o.Validate(); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidOptions", o, err)
		}
	}
}

func TestThrottle_AllowAndRefill(t *testing.T) {
	mClock := quartz.NewMock(t)
	th := NewThrottle(ThrottleOptions{Rate: 10, Burst: 2, Clock: mClock})

	if !th.Allow() || !th.Allow() {
		t.Fatal("Allow() = false within burst")
	}
	if th.Allow() {
		t.Fatal("Allow() = true after burst exhausted")
	}

	mClock.Advance(100 * time.Millisecond)
	if !th.Allow() {
		t.Error("Allow() = false after refill")
	}
	if th.Allow() {
		t.Error("Allow() = true, want one token per 100ms")
	}

	mClock.Advance(time.Minute)
	if got := th.Tokens(); got != 2 {
		t.Errorf("Tokens() = %f, want burst 2", got)
	}
}

func TestThrottle_Wait(t *testing.T) {
	th := NewThrottle(ThrottleOptions{Rate: 1000, Burst: 1})

	ctx := context.Background()
	if err := th.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if err := th.Wait(ctx); err != nil {
		t.Errorf("Wait() after refill error = %v", err)
	}
}

func TestThrottle_WaitCancelled(t *testing.T) {
	th := NewThrottle(ThrottleOptions{Rate: 0.001, Burst: 1, MaxWait: time.Minute})
	th.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := th.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestThrottlePolicy_Rejects(t *testing.T) {
	mClock := quartz.NewMock(t)
	client := &scriptClient{statuses: []int{http.StatusOK}}
	p := pipeline.New([]pipeline.Factory{
		NewThrottlePolicyFactory(ThrottleOptions{Rate: 1, Burst: 1, Clock: mClock}),
	}, pipeline.Options{HTTPClient: client})

	resp, err := p.Do(context.Background(), mustRequest(t, http.MethodGet, nil))
	if err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	_ = resp.Body.Close()

	if _, err := p.Do(context.Background(), mustRequest(t, http.MethodGet, nil)); !errors.Is(err, ErrThrottled) {
		t.Errorf("second Do() error = %v, want ErrThrottled", err)
	}
	if got := len(client.Hosts()); got != 1 {
		t.Errorf("transport calls = %d, want 1", got)
	}
}
