// Trace pipeline setup for the task runtime.
package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/asynckit/asynckit/config"
	"github.com/asynckit/asynckit/errors"
)

// Provider owns the OTLP trace pipeline and the tracer that instruments
// tasks running in this process.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer *Tracer
}

// Init builds the trace pipeline from the runtime's telemetry
// configuration and installs its tracer globally, so TaskHooks anywhere
// in the process export through it. serviceName identifies the process
// in exported spans; empty defaults to "asynckit". Configuration
// problems are reported as INVALID_CONFIG errors.
func Init(ctx context.Context, serviceName string, cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return nil, errors.New(errors.CodeInvalidConfig, "telemetry is not enabled")
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "telemetry.endpoint is required")
	}
	if serviceName == "" {
		serviceName = "asynckit"
	}

	exporter, err := newExporter(ctx, endpoint, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "building trace resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer := NewTracer(serviceName)
	SetGlobalTracer(tracer)

	return &Provider{tp: tp, tracer: tracer}, nil
}

// newExporter builds the OTLP span exporter for the configured
// protocol. "none" and anything unrecognized are rejected: a pipeline
// that silently drops spans is worse than a refusal to start.
func newExporter(ctx context.Context, endpoint string, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "creating grpc trace exporter")
		}
		return exporter, nil

	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "creating http trace exporter")
		}
		return exporter, nil

	default:
		return nil, errors.Newf(errors.CodeInvalidConfig,
			"telemetry.protocol %q cannot export spans (use grpc or http)", cfg.Protocol)
	}
}

// Tracer returns the tracer exporting through this provider.
func (p *Provider) Tracer() *Tracer {
	return p.tracer
}

// Shutdown flushes remaining spans and tears down the pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// ForceFlush exports buffered spans without shutting down.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}
