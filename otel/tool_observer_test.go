package otel_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	cmotel "github.com/petal-labs/chartmogul-mcp/otel"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return exporter, tp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s type = %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestToolObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	observer, err := cmotel.NewToolObserver(mp.Meter("test"), noop.NewTracerProvider().Tracer("test"))
	if err != nil {
		t.Fatalf("NewToolObserver() error = %v", err)
	}

	observer.ObserveInvoke(tool.InvokeObservation{
		RequestID:  "req-1",
		Tool:       "list_customers",
		Operation:  "list_customers",
		DurationMS: 120,
		ErrorType:  "TimeoutError",
	})
	observer.ObserveInvoke(tool.InvokeObservation{
		RequestID:  "req-2",
		Tool:       "retrieve_account",
		Operation:  "retrieve_account",
		DurationMS: 30,
		Success:    true,
	})
	observer.ObserveRetry(tool.RetryObservation{
		Method:     "GET",
		Path:       "/customers",
		Attempt:    1,
		StatusCode: 503,
		ErrorType:  "ServerError",
	})
	observer.ObserveHealth(tool.HealthObservation{
		Target:         "chartmogul",
		Status:         "degraded",
		PreviousStatus: "healthy",
		FailureCount:   1,
		ErrorType:      "AuthenticationError",
	})

	rm := collectMetrics(t, reader)

	invocations := findMetric(rm, "chartmogul_mcp.tool.invocations")
	if invocations == nil {
		t.Fatal("chartmogul_mcp.tool.invocations metric not found")
	}
	if got := sumTotal(t, invocations); got != 2 {
		t.Fatalf("invocations = %d, want 2", got)
	}

	retries := findMetric(rm, "chartmogul_mcp.upstream.retries")
	if retries == nil || sumTotal(t, retries) != 1 {
		t.Fatalf("retries metric = %+v, want one retry", retries)
	}

	health := findMetric(rm, "chartmogul_mcp.upstream.health.checks")
	if health == nil || sumTotal(t, health) != 1 {
		t.Fatalf("health metric = %+v, want one check", health)
	}

	latency := findMetric(rm, "chartmogul_mcp.tool.latency")
	if latency == nil {
		t.Fatal("chartmogul_mcp.tool.latency metric not found")
	}
	if _, ok := latency.Data.(metricdata.Histogram[float64]); !ok {
		t.Fatalf("latency type = %T, want Histogram[float64]", latency.Data)
	}
}

func TestToolObserverRecordsSpans(t *testing.T) {
	_, mp := newTestMeter()
	exporter, tp := newTestTracer()
	observer, err := cmotel.NewToolObserver(mp.Meter("test"), tp.Tracer("test"))
	if err != nil {
		t.Fatalf("NewToolObserver() error = %v", err)
	}

	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	observer.ObserveInvoke(tool.InvokeObservation{
		RequestID:  "req-9",
		Tool:       "search_customers",
		Operation:  "CustomerSearch",
		StartedAt:  started,
		DurationMS: 250,
		ErrorType:  "NotFoundError",
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "tool.invoke" {
		t.Fatalf("span name = %q, want tool.invoke", span.Name)
	}
	if span.Status.Code != otelcodes.Error || span.Status.Description != "NotFoundError" {
		t.Fatalf("span status = %+v, want error NotFoundError", span.Status)
	}
	if got := span.EndTime.Sub(span.StartTime); got != 250*time.Millisecond {
		t.Fatalf("span duration = %v, want 250ms", got)
	}
	if !hasAttr(span.Attributes, attribute.String("operation", "CustomerSearch")) {
		t.Fatalf("span attributes = %v, want operation=CustomerSearch", span.Attributes)
	}
}

func TestToolObserverNilSafe(t *testing.T) {
	var observer *cmotel.ToolObserver
	observer.ObserveInvoke(tool.InvokeObservation{})
	observer.ObserveRetry(tool.RetryObservation{})
	observer.ObserveHealth(tool.HealthObservation{})
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}

func toolHealth(status string) tool.HealthObservation {
	return tool.HealthObservation{Target: "chartmogul", Healthy: true, Status: status, PreviousStatus: "unknown"}
}
