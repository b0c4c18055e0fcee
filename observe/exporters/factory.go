// Package exporters builds the OpenTelemetry exporters an observe.Config names.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names.
const (
	None       = "none"
	Stdout     = "stdout"
	OTLP       = "otlp"
	Prometheus = "prometheus"
)

var (
	// ErrEndpointNotConfigured indicates no OTLP endpoint variable is set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	// ErrUnknownExporter indicates an exporter name this package does not build.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)

// Options tune the exporters.
type Options struct {
	// Writer receives stdout exporter output.
	// Default: os.Stdout
	Writer io.Writer

	// Interval is how often a periodic metric reader exports.
	// Default: the SDK default
	Interval time.Duration
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stdout
	}
	return o.Writer
}

// ValidTrace reports whether name is a trace exporter. Empty means none.
func ValidTrace(name string) bool {
	switch name {
	case "", None, Stdout, OTLP:
		return true
	}
	return false
}

// ValidMetric reports whether name is a metric exporter. Empty means none.
func ValidMetric(name string) bool {
	return ValidTrace(name) || name == Prometheus
}

func requireEndpoint(signalVar string) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv(signalVar) != "" {
		return nil
	}
	return fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or %s", ErrEndpointNotConfigured, signalVar)
}

// SpanExporter returns the span exporter called name. None, or an empty
// name, returns a nil exporter: spans are sampled and recorded but not sent.
func SpanExporter(ctx context.Context, name string, o Options) (sdktrace.SpanExporter, error) {
	switch name {
	case "", None:
		return nil, nil
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(o.writer()))
	case OTLP:
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	}
	return nil, fmt.Errorf("%w: trace exporter %q", ErrUnknownExporter, name)
}

// MetricReader returns the reader for the metric exporter called name. None,
// or an empty name, returns a manual reader that is only read on demand.
func MetricReader(ctx context.Context, name string, o Options) (sdkmetric.Reader, error) {
	var exp sdkmetric.Exporter
	var err error
	switch name {
	case "", None:
		return sdkmetric.NewManualReader(), nil
	case Prometheus:
		reader, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("exporters: prometheus: %w", err)
		}
		return reader, nil
	case Stdout:
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(o.writer()))
	case OTLP:
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err = otlpmetricgrpc.New(ctx)
	default:
		return nil, fmt.Errorf("%w: metric exporter %q", ErrUnknownExporter, name)
	}
	if err != nil {
		return nil, fmt.Errorf("exporters: %s metrics: %w", name, err)
	}

	var opts []sdkmetric.PeriodicReaderOption
	if o.Interval > 0 {
		opts = append(opts, sdkmetric.WithInterval(o.Interval))
	}
	return sdkmetric.NewPeriodicReader(exp, opts...), nil
}
