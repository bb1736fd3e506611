package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/chartmogul-mcp/tool"
)

const (
	metricInvocations  = "chartmogul_mcp.tool.invocations"
	metricLatency      = "chartmogul_mcp.tool.latency"
	metricRetries      = "chartmogul_mcp.upstream.retries"
	metricHealthChecks = "chartmogul_mcp.upstream.health.checks"
)

// ToolObserver records tool invocations, upstream retries and health checks
// into OpenTelemetry.
type ToolObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	retries     metric.Int64Counter
	health      metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		metricInvocations,
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	retries, err := meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of retried ChartMogul requests"),
	)
	if err != nil {
		return nil, err
	}
	health, err := meter.Int64Counter(
		metricHealthChecks,
		metric.WithDescription("Number of ChartMogul health checks"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		metricLatency,
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:      tracer,
		invocations: invocations,
		retries:     retries,
		health:      health,
		latency:     latency,
	}, nil
}

// ObserveInvoke records one invocation result.
func (o *ToolObserver) ObserveInvoke(observation tool.InvokeObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", observation.Tool),
		attribute.String("operation", observation.Operation),
		attribute.Bool("success", observation.Success),
	}
	if observation.ErrorType != "" {
		attrs = append(attrs, attribute.String("error_type", observation.ErrorType))
	}

	ctx := context.Background()
	duration := time.Duration(observation.DurationMS) * time.Millisecond
	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	start := observation.StartedAt
	if start.IsZero() {
		start = time.Now().Add(-duration)
	}
	_, span := o.tracer.Start(ctx, "tool.invoke",
		trace.WithTimestamp(start),
		trace.WithAttributes(append(attrs, attribute.String("request_id", observation.RequestID))...),
	)
	if !observation.Success {
		span.SetStatus(codes.Error, observation.ErrorType)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(start.Add(duration)))
}

// ObserveRetry records one retried upstream request.
func (o *ToolObserver) ObserveRetry(observation tool.RetryObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http_method", observation.Method),
		attribute.String("path", observation.Path),
		attribute.Int("attempt", observation.Attempt),
	}
	if observation.StatusCode > 0 {
		attrs = append(attrs, attribute.Int("status_code", observation.StatusCode))
	}
	if observation.ErrorType != "" {
		attrs = append(attrs, attribute.String("error_type", observation.ErrorType))
	}
	o.retries.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// ObserveHealth records one scheduled upstream health check.
func (o *ToolObserver) ObserveHealth(observation tool.HealthObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("target", observation.Target),
		attribute.Bool("healthy", observation.Healthy),
		attribute.String("status", observation.Status),
		attribute.String("previous_status", observation.PreviousStatus),
		attribute.Int("failure_count", observation.FailureCount),
	}
	if observation.ErrorType != "" {
		attrs = append(attrs, attribute.String("error_type", observation.ErrorType))
	}

	ctx := context.Background()
	o.health.Add(ctx, 1, metric.WithAttributes(attrs...))

	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(ctx, "upstream.health.check", trace.WithAttributes(attrs...))
	if observation.ErrorType != "" {
		span.SetStatus(codes.Error, observation.ErrorType)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ tool.Observer = (*ToolObserver)(nil)
