// Package telemetry wires optional OTLP trace export around the
// analysis phases. Spans cover load, compute and export; a CLI
// invocation is one trace.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "tracelens"

// Config controls the OTLP gRPC trace exporter.
type Config struct {
	Endpoint       string            // collector address, host:port
	ServiceVersion string            // binary version stamped on spans
	Environment    string            // deployment.environment resource value
	Headers        map[string]string // extra request headers (auth)
	Insecure       bool              // plaintext gRPC, local collectors
	SampleRatio    float64           // fraction of traces kept, 1.0 = all
	FlushTimeout   time.Duration     // per-batch export deadline
}

// DefaultConfig targets a local collector and samples everything. Batch
// runs are short; dropping spans to sampling would lose whole
// invocations.
func DefaultConfig() Config {
	return Config{
		Endpoint:     "localhost:4317",
		Environment:  "development",
		Insecure:     true,
		SampleRatio:  1.0,
		FlushTimeout: 30 * time.Second,
	}
}

// Init installs a global tracer provider exporting to cfg.Endpoint and
// returns a shutdown func that flushes pending spans. Call the shutdown
// before process exit or short runs lose their trace.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(cfg.FlushTimeout),
	}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(cfg.FlushTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// StartSpan starts a span on the global tracer. A no-op span when Init
// has not run.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(serviceName).Start(ctx, name, opts...)
}

// RecordError records err on the span in ctx, if any.
func RecordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}

// AnnotateLog stamps loaded-log dimensions on the span in ctx.
func AnnotateLog(ctx context.Context, cases, events int) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("log.cases", cases),
		attribute.Int("log.events", events),
	)
}
