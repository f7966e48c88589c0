// Package apm configures OpenTelemetry tracing.
package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/carbon-oracle/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	ConsoleProvider  Provider = "console"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	EmptyProvider    Provider = "none"
)

// ParseProvider maps a config value to a Provider. Unknown values map to EmptyProvider.
func ParseProvider(s string) Provider {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ZipkinProvider, ConsoleProvider, OTLPGRPCProvider, OTLPHTTPProvider:
		return p
	default:
		return EmptyProvider
	}
}

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

type TracerOptions struct {
	provider    Provider
	serviceName string
	endpoint    string
	headers     map[string]string
	exporter    sdktrace.SpanExporter
}

type TracerOption func(*TracerOptions)

func WithProvider(provider Provider) TracerOption {
	return func(o *TracerOptions) {
		o.provider = provider
	}
}

func WithServiceName(name string) TracerOption {
	return func(o *TracerOptions) {
		o.serviceName = name
	}
}

// WithEndpoint sets the collector URL for zipkin and OTLP exporters.
func WithEndpoint(endpoint string) TracerOption {
	return func(o *TracerOptions) {
		o.endpoint = endpoint
	}
}

func WithHeaders(headers map[string]string) TracerOption {
	return func(o *TracerOptions) {
		o.headers = headers
	}
}

// WithExporter bypasses provider selection.
func WithExporter(exp sdktrace.SpanExporter) TracerOption {
	return func(o *TracerOptions) {
		o.exporter = exp
	}
}

func newExporter(ctx context.Context, o *TracerOptions) (sdktrace.SpanExporter, error) {
	switch o.provider {
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ZipkinProvider:
		return zipkin.New(o.endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(o.endpoint),
			otlptracegrpc.WithHeaders(o.headers),
		)
	case OTLPHTTPProvider:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(o.endpoint),
			otlptracehttp.WithHeaders(o.headers),
		)
	default:
		return nil, nil
	}
}

// NewTraceProvider installs a global tracer provider for the selected
// exporter. EmptyProvider leaves the otel no-op provider in place.
func NewTraceProvider(log logger.LoggerInterface, options ...TracerOption) (TraceProvider, error) {
	opts := &TracerOptions{provider: EmptyProvider}

	for _, opt := range options {
		opt(opts)
	}

	exp := opts.exporter
	if exp == nil {
		var err error
		exp, err = newExporter(context.Background(), opts)
		if err != nil {
			return nil, fmt.Errorf("%s trace exporter: %w", opts.provider, err)
		}
	}

	if exp == nil {
		log.Warn(context.Background(), "tracing disabled, no trace provider selected")
		return emptyTraceProvider{}, nil
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", string(opts.provider)),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{
		tp,
	}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := o.tp.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}
