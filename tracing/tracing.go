// Package tracing exports the spans of the relay over OTLP/gRPC. Without an
// endpoint the global no-op provider stays in place.
package tracing

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthdm/relay/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

type Config struct {
	// Endpoint is the host:port of an OTLP gRPC collector, for example
	// "localhost:4317". Empty disables tracing.
	Endpoint string
	// Insecure talks to the collector without TLS.
	Insecure    bool
	ServiceName string
	// SampleRatio is the share of root spans that are recorded.
	SampleRatio float64
}

func (c Config) Validate() error {
	var errs []error
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("sample ratio must be within [0, 1], got %v", c.SampleRatio))
	}
	if c.Endpoint != "" && c.ServiceName == "" {
		errs = append(errs, errors.New("service name must not be empty when tracing is enabled"))
	}
	return errors.Join(errs...)
}

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(context.Context) error

// Setup installs a global tracer provider that batches spans to
// cfg.Endpoint.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	tp := NewProvider(cfg, sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	log.Infow("[TRACING] exporting spans", log.M{
		"endpoint": cfg.Endpoint,
		"ratio":    cfg.SampleRatio,
	})
	return tp.Shutdown, nil
}

// NewProvider returns a tracer provider that names the service and samples
// root spans by cfg.SampleRatio. opts add the exporters or span processors.
func NewProvider(cfg Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName))
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}
