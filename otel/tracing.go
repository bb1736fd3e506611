// Package otel wires tool observability events into OpenTelemetry and sets up
// OTLP trace export.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InstrumentationName scopes the meter and tracer used for tool events.
const InstrumentationName = "chartmogul-mcp/tool"

// TracingConfig selects the OTLP/HTTP trace exporter.
type TracingConfig struct {
	// Endpoint is a full collector URL such as http://localhost:4318/v1/traces.
	// Tracing stays disabled when it is empty.
	Endpoint string
	Headers  map[string]string

	ServiceName    string
	ServiceVersion string

	// Exporter overrides the OTLP exporter; tests use an in-memory one.
	Exporter sdktrace.SpanExporter
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// SetupTracing installs a global tracer provider exporting over OTLP/HTTP.
// With no endpoint and no exporter it leaves the global provider alone.
func SetupTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	exporter := cfg.Exporter
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if exporter == nil {
		if endpoint == "" {
			return func(context.Context) error { return nil }, nil
		}
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("otel: invalid otlp endpoint %q: %w", endpoint, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("otel: otlp endpoint %q must use http or https", endpoint)
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel: create otlp exporter: %w", err)
		}
		exporter = exp
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "chartmogul-mcp"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	otelapi.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

// NewGlobalToolObserver binds a ToolObserver to the global meter and tracer
// providers.
func NewGlobalToolObserver() (*ToolObserver, error) {
	return NewToolObserver(
		otelapi.GetMeterProvider().Meter(InstrumentationName),
		otelapi.GetTracerProvider().Tracer(InstrumentationName),
	)
}
