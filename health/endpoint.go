package health

import (
	"context"
	"time"

	"github.com/coder/quartz"

	"github.com/jonwraymond/blobpipe/blob"
)

// DefaultSlowThreshold is the latency above which an endpoint is degraded.
const DefaultSlowThreshold = 2 * time.Second

// EndpointConfig configures an EndpointChecker.
type EndpointConfig struct {
	// Name identifies the checker in reports.
	// Default: the service host
	Name string

	// SlowThreshold grades slower answers as degraded.
	// Default: 2s
	SlowThreshold time.Duration

	// Clock measures latency.
	// Default: quartz.NewReal()
	Clock quartz.Clock
}

// EndpointChecker probes a storage account endpoint with GetAccountInfo.
type EndpointChecker struct {
	svc  blob.ServiceURL
	host string
	cfg  EndpointConfig
}

// NewEndpointChecker creates a checker for svc. Give svc a pipeline with a
// small retry budget so a dead endpoint is reported promptly.
func NewEndpointChecker(svc blob.ServiceURL, cfg EndpointConfig) *EndpointChecker {
	u := svc.URL()
	if cfg.Name == "" {
		cfg.Name = u.Host
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &EndpointChecker{svc: svc, host: u.Host, cfg: cfg}
}

// Name returns the configured name.
func (c *EndpointChecker) Name() string { return c.cfg.Name }

// Check sends one probe.
func (c *EndpointChecker) Check(ctx context.Context) Result {
	start := c.cfg.Clock.Now("health", "probe")
	_, err := c.svc.GetAccountInfo(ctx)
	latency := c.cfg.Clock.Since(start, "health", "probe")

	r := Result{Name: c.cfg.Name, Host: c.host, Latency: latency, CheckedAt: start, Status: StatusHealthy}
	switch {
	case err != nil:
		r.Status, r.Err = StatusUnhealthy, err
	case latency > c.cfg.SlowThreshold:
		r.Status = StatusDegraded
	}
	return r
}
