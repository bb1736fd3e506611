package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type accountStub struct {
	ID   string
	Name string
}

func (a accountStub) Fields() map[string]any {
	return map[string]any{"id": a.ID, "name": a.Name}
}

type timeoutError struct{}

func (timeoutError) Error() string     { return "request timed out" }
func (timeoutError) ErrorType() string { return "TimeoutError" }

func newCapturingLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func failingOperation(name string, err error) Operation {
	return NewOperation(name, "fails", nil, func(Args) Task[any] {
		return Failed[any](err)
	})
}

func TestAdaptSuccessSerializesWithoutLogging(t *testing.T) {
	logger, buf := newCapturingLogger()
	op := NewOperation("retrieve_account", "Retrieve account information from the ChartMogul API.", nil,
		func(Args) Task[accountStub] {
			return Resolved(accountStub{ID: "acc_1", Name: "Acme"})
		})

	got, ok := Adapt(op, WithLogger(logger)).Call(context.Background(), nil)
	if !ok {
		t.Fatal("Call() ok = false, want true")
	}
	want := map[string]any{"id": "acc_1", "name": "Acme"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Call() = %#v, want %#v", got, want)
	}
	if buf.Len() != 0 {
		t.Fatalf("log output = %q, want none", buf.String())
	}
}

func TestAdaptFailureLogsOnceAndReturnsSentinel(t *testing.T) {
	logger, buf := newCapturingLogger()
	wrapped := Adapt(failingOperation("list_customers", timeoutError{}), WithLogger(logger))

	got, ok := wrapped.Call(context.Background(), nil)
	if ok || got != nil {
		t.Fatalf("Call() = (%v, %v), want (nil, false)", got, ok)
	}
	entries := logEntries(t, buf)
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry["level"] != "ERROR" {
		t.Fatalf("level = %v, want ERROR", entry["level"])
	}
	if entry["operation"] != "list_customers" {
		t.Fatalf("operation = %v, want list_customers", entry["operation"])
	}
	if entry["error_type"] != "TimeoutError" {
		t.Fatalf("error_type = %v, want TimeoutError", entry["error_type"])
	}
	if entry["error_message"] != "request timed out" {
		t.Fatalf("error_message = %v, want request timed out", entry["error_message"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Fatal("request_id is empty")
	}
}

func TestAdaptDeadlineExceededIsTimeout(t *testing.T) {
	logger, buf := newCapturingLogger()
	op := NewOperation("list_customers", "", nil, func(Args) Task[any] {
		return func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, ok := Adapt(op, WithLogger(logger)).Call(ctx, nil); ok {
		t.Fatal("Call() ok = true, want false")
	}
	entries := logEntries(t, buf)
	if len(entries) != 1 || entries[0]["error_type"] != "TimeoutError" {
		t.Fatalf("entries = %v, want one TimeoutError", entries)
	}
}

func TestAdaptOperationNameOverride(t *testing.T) {
	logger, buf := newCapturingLogger()
	wrapped := Adapt(failingOperation("search_customers", errors.New("boom")),
		WithOperationName("CustomerSearch"), WithLogger(logger))

	if wrapped.Name() != "search_customers" {
		t.Fatalf("Name() = %q, want search_customers", wrapped.Name())
	}
	if _, ok := wrapped.Call(context.Background(), nil); ok {
		t.Fatal("Call() ok = true, want false")
	}
	entries := logEntries(t, buf)
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if entries[0]["operation"] != "CustomerSearch" {
		t.Fatalf("operation = %v, want CustomerSearch", entries[0]["operation"])
	}
	if msg, _ := entries[0]["msg"].(string); strings.Contains(msg, "search_customers") {
		t.Fatalf("msg = %q, should not mention search_customers", msg)
	}
	if entries[0]["error_type"] != "Error" {
		t.Fatalf("error_type = %v, want Error", entries[0]["error_type"])
	}
}

func TestAdaptLogLabel(t *testing.T) {
	logger, buf := newCapturingLogger()
	wrapped := Adapt(failingOperation("retrieve_account", errors.New("ChartMogul API Error")),
		WithLogLabel("retrieving account"), WithLogger(logger))

	if wrapped.LogName() != "retrieve_account" || wrapped.LogLabel() != "retrieving account" {
		t.Fatalf("LogName(), LogLabel() = %q, %q", wrapped.LogName(), wrapped.LogLabel())
	}
	if _, ok := wrapped.Call(context.Background(), nil); ok {
		t.Fatal("Call() ok = true, want false")
	}
	entries := logEntries(t, buf)
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if entries[0]["operation"] != "retrieve_account" {
		t.Fatalf("operation = %v, want retrieve_account", entries[0]["operation"])
	}
	if entries[0]["msg"] != "Error retrieving account: ChartMogul API Error" {
		t.Fatalf("msg = %v, want Error retrieving account: ChartMogul API Error", entries[0]["msg"])
	}
}

func TestAdaptPreservesIdentity(t *testing.T) {
	params := []Param{{Name: "uuid", Type: ParamString, Required: true, Description: "Customer UUID"}}
	op := NewOperation("retrieve_customer", "Retrieve a customer.", params, func(Args) Task[any] {
		return Resolved[any](nil)
	}).WithAnnotations(Annotations{ReadOnly: true})

	wrapped := Adapt(op)
	if wrapped.Name() != op.Name || wrapped.Description() != op.Description {
		t.Fatalf("identity = (%q, %q), want (%q, %q)", wrapped.Name(), wrapped.Description(), op.Name, op.Description)
	}
	if !reflect.DeepEqual(wrapped.Params(), params) {
		t.Fatalf("Params() = %+v, want %+v", wrapped.Params(), params)
	}
	if !wrapped.Annotations().ReadOnly {
		t.Fatal("Annotations().ReadOnly = false, want true")
	}
	if wrapped.Unwrap().Name != "retrieve_customer" {
		t.Fatalf("Unwrap().Name = %q", wrapped.Unwrap().Name)
	}
	if wrapped.LogName() != "retrieve_customer" {
		t.Fatalf("LogName() = %q, want retrieve_customer", wrapped.LogName())
	}
}

func TestAdaptEmptyResultIsNotFailure(t *testing.T) {
	logger, buf := newCapturingLogger()
	op := NewOperation("noop", "", nil, func(Args) Task[any] { return Resolved[any](nil) })

	got, ok := Adapt(op, WithLogger(logger)).Call(context.Background(), nil)
	if !ok || got != nil {
		t.Fatalf("Call() = (%v, %v), want (nil, true)", got, ok)
	}
	if buf.Len() != 0 {
		t.Fatalf("log output = %q, want none", buf.String())
	}
}

func TestAdaptValidationFailure(t *testing.T) {
	logger, buf := newCapturingLogger()
	called := false
	op := NewOperation("retrieve_customer", "", []Param{{Name: "uuid", Type: ParamString, Required: true}},
		func(Args) Task[any] {
			called = true
			return Resolved[any](nil)
		})

	if _, ok := Adapt(op, WithLogger(logger)).Call(context.Background(), map[string]any{"uuid": "  "}); ok {
		t.Fatal("Call() ok = true, want false")
	}
	if called {
		t.Fatal("invoke ran despite missing argument")
	}
	entries := logEntries(t, buf)
	if len(entries) != 1 || entries[0]["error_type"] != ErrorTypeValidation {
		t.Fatalf("entries = %v, want one ValidationError", entries)
	}
}

func TestAdaptRecoversPanics(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{
			name: "in task",
			op: NewOperation("explode", "", nil, func(Args) Task[any] {
				return func(context.Context) (any, error) { panic("kaboom") }
			}),
		},
		{
			name: "in invoke",
			op: NewOperation("explode", "", nil, func(Args) Task[any] {
				panic("kaboom")
			}),
		},
		{
			name: "nil invoke",
			op:   Operation{Name: "explode"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, buf := newCapturingLogger()
			if _, ok := Adapt(tc.op, WithLogger(logger)).Call(context.Background(), nil); ok {
				t.Fatal("Call() ok = true, want false")
			}
			if entries := logEntries(t, buf); len(entries) != 1 {
				t.Fatalf("log entries = %d, want 1", len(entries))
			}
		})
	}
}

type explodingError struct{ inType bool }

func (e explodingError) Error() string {
	if e.inType {
		return "unclassifiable"
	}
	panic("boom in Error")
}

func (e explodingError) ErrorType() string {
	if e.inType {
		panic("boom in ErrorType")
	}
	return "APIError"
}

func TestAdaptContainsPanickingErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "Error panics", err: explodingError{}, wantMsg: "boom in Error"},
		{name: "ErrorType panics", err: explodingError{inType: true}, wantMsg: "unclassifiable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, buf := newCapturingLogger()
			wrapped := Adapt(failingOperation("retrieve_customer", tc.err), WithLogger(logger))

			var (
				got any
				ok  bool
			)
			if perr := recoverInto(func() { got, ok = wrapped.Call(context.Background(), nil) }); perr != nil {
				t.Fatalf("Call() panicked: %v", perr)
			}
			if ok || got != nil {
				t.Fatalf("Call() = (%v, %v), want (nil, false)", got, ok)
			}
			entries := logEntries(t, buf)
			if len(entries) != 1 {
				t.Fatalf("log entries = %d, want 1", len(entries))
			}
			if entries[0]["error_type"] != ErrorTypePanic || entries[0]["error_message"] != tc.wantMsg {
				t.Fatalf("entry = %v, want PanicError %q", entries[0], tc.wantMsg)
			}
		})
	}
}

type panickingHandler struct{}

func (panickingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panickingHandler) Handle(context.Context, slog.Record) error { panic("log sink down") }
func (h panickingHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panickingHandler) WithGroup(string) slog.Handler           { return h }

func TestAdaptSwallowsLoggingPanics(t *testing.T) {
	wrapped := Adapt(failingOperation("list_customers", errors.New("boom")), WithLogger(slog.New(panickingHandler{})))
	got, ok := wrapped.Call(context.Background(), nil)
	if ok || got != nil {
		t.Fatalf("Call() = (%v, %v), want (nil, false)", got, ok)
	}
}

func TestAdaptCancelledAsyncCall(t *testing.T) {
	logger, buf := newCapturingLogger()
	release := make(chan struct{})
	defer close(release)
	op := NewOperation("slow", "", nil, func(Args) Task[string] {
		return Async(func() (string, error) {
			<-release
			return "late", nil
		})
	})
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	if _, ok := Adapt(op, WithLogger(logger)).Call(ctx, nil); ok {
		t.Fatal("Call() ok = true, want false")
	}
	entries := logEntries(t, buf)
	if len(entries) != 1 || entries[0]["error_type"] != ErrorTypeCancelled {
		t.Fatalf("entries = %v, want one CancelledError", entries)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	invokes []InvokeObservation
}

func (r *recordingObserver) ObserveInvoke(o InvokeObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokes = append(r.invokes, o)
}
func (r *recordingObserver) ObserveRetry(RetryObservation)   {}
func (r *recordingObserver) ObserveHealth(HealthObservation) {}

func TestAdaptEmitsInvokeObservations(t *testing.T) {
	observer := &recordingObserver{}
	SetObserver(observer)
	t.Cleanup(func() { SetObserver(nil) })

	logger, _ := newCapturingLogger()
	ok := Adapt(NewOperation("ping", "", nil, func(Args) Task[bool] { return Resolved(true) }), WithLogger(logger))
	bad := Adapt(failingOperation("list_customers", timeoutError{}), WithOperationName("Customers"), WithLogger(logger))
	ok.Call(context.Background(), nil)
	bad.Call(context.Background(), nil)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.invokes) != 2 {
		t.Fatalf("observations = %d, want 2", len(observer.invokes))
	}
	first, second := observer.invokes[0], observer.invokes[1]
	if !first.Success || first.Tool != "ping" || first.RequestID == "" {
		t.Fatalf("first = %+v, want successful ping", first)
	}
	if second.Success || second.Tool != "list_customers" || second.Operation != "Customers" || second.ErrorType != "TimeoutError" {
		t.Fatalf("second = %+v, want failed list_customers logged as Customers", second)
	}
}

func TestAdaptConcurrentCalls(t *testing.T) {
	logger, _ := newCapturingLogger()
	wrapped := Adapt(NewOperation("echo", "", []Param{{Name: "n", Type: ParamInteger, Required: true}},
		func(args Args) Task[int] {
			return Async(func() (int, error) { return args.Int("n") * 2, nil })
		}), WithLogger(logger))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, ok := wrapped.Call(context.Background(), map[string]any{"n": float64(n)})
			if !ok || got != n*2 {
				t.Errorf("Call(%d) = (%v, %v), want (%d, true)", n, got, ok, n*2)
			}
		}(i)
	}
	wg.Wait()
}
