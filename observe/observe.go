package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/blobpipe/observe/exporters"
)

// Config selects the telemetry a storage client emits. Signals whose
// exporter is empty are disabled and served by no-op implementations.
type Config struct {
	// ServiceName is the service.name resource attribute. Required.
	ServiceName string

	// Version is the service.version resource attribute.
	Version string

	// Account is the storage account, recorded as the storage.account
	// resource attribute when set.
	Account string

	// TraceExporter is one of none, stdout or otlp. "none" records spans
	// without sending them.
	TraceExporter string

	// SampleRatio is the fraction of root spans sampled.
	// Default: 1 (zero also means every span)
	SampleRatio float64

	// MetricExporter is one of none, stdout, otlp or prometheus.
	MetricExporter string

	// MetricInterval is the export interval for push exporters.
	// Default: the SDK default
	MetricInterval time.Duration

	// LogLevel is one of debug, info, warn, error or off. Empty disables logging.
	LogLevel string

	// LogWriter receives log entries.
	// Default: os.Stderr
	LogWriter io.Writer

	// ExportWriter receives stdout exporter output.
	// Default: os.Stdout
	ExportWriter io.Writer

	// SetGlobal installs the providers as the otel globals.
	SetGlobal bool
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidSampleRatio, c.SampleRatio))
	}
	if !exporters.ValidTrace(c.TraceExporter) {
		errs = append(errs, fmt.Errorf("%w: trace exporter %q", ErrInvalidExporter, c.TraceExporter))
	}
	if !exporters.ValidMetric(c.MetricExporter) {
		errs = append(errs, fmt.Errorf("%w: metric exporter %q", ErrInvalidExporter, c.MetricExporter))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error", "off":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel))
	}
	return errors.Join(errs...)
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown is idempotent; later calls return the first result.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// Shutdown flushes and stops the providers the Observer owns.
	Shutdown(ctx context.Context) error
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	once        sync.Once
	shutdownErr error
}

// NewObserver builds the providers cfg asks for.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttrs(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}
	expOpts := exporters.Options{Writer: cfg.ExportWriter, Interval: cfg.MetricInterval}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}

	if cfg.TraceExporter != "" {
		exp, err := exporters.SpanExporter(ctx, cfg.TraceExporter, expOpts)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRatio))),
		}
		if exp != nil {
			opts = append(opts, sdktrace.WithBatcher(exp))
		}
		obs.tp = sdktrace.NewTracerProvider(opts...)
		obs.tracer = obs.tp.Tracer(cfg.ServiceName)
	}

	if cfg.MetricExporter != "" {
		reader, err := exporters.MetricReader(ctx, cfg.MetricExporter, expOpts)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		obs.mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		obs.meter = obs.mp.Meter(cfg.ServiceName)
	}

	if cfg.LogLevel != "" {
		w := cfg.LogWriter
		if w == nil {
			w = os.Stderr
		}
		fields := []Field{F("service", cfg.ServiceName)}
		if cfg.Account != "" {
			fields = append(fields, F("account", cfg.Account))
		}
		obs.logger = NewLoggerWithWriter(cfg.LogLevel, w).With(fields...)
	}

	if cfg.SetGlobal {
		if obs.tp != nil {
			otel.SetTracerProvider(obs.tp)
		}
		if obs.mp != nil {
			otel.SetMeterProvider(obs.mp)
		}
	}
	return obs, nil
}

func resourceAttrs(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	if cfg.Account != "" {
		attrs = append(attrs, attribute.String("storage.account", cfg.Account))
	}
	return attrs
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio == 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.TraceIDRatioBased(ratio)
}

// NewObserverFromProviders builds an Observer around existing providers.
// Either provider may be nil, in which case a no-op is used. The returned
// Observer does not own the providers: Shutdown is a no-op.
func NewObserverFromProviders(tp trace.TracerProvider, mp metric.MeterProvider, logger Logger, name string) Observer {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &observer{
		tracer: tp.Tracer(name),
		meter:  mp.Meter(name),
		logger: logger,
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }

func (o *observer) Meter() metric.Meter { return o.meter }

func (o *observer) Logger() Logger { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	o.once.Do(func() {
		var errs []error
		if o.tp != nil {
			if err := o.tp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("observe: tracer shutdown: %w", err))
			}
		}
		if o.mp != nil {
			if err := o.mp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("observe: meter shutdown: %w", err))
			}
		}
		o.shutdownErr = errors.Join(errs...)
	})
	return o.shutdownErr
}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}
