package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdaptOption customizes Adapt.
type AdaptOption func(*adaptOptions)

type adaptOptions struct {
	name   string
	label  string
	logger *slog.Logger
}

// WithOperationName overrides the name used in failure logs. The tool keeps the
// operation's own name.
func WithOperationName(name string) AdaptOption {
	return func(o *adaptOptions) {
		o.name = strings.TrimSpace(name)
	}
}

// WithLogLabel sets the human-readable phrase used in the failure message, as in
// "Error retrieving account: ...". The operation attribute is unchanged. It
// defaults to the log name.
func WithLogLabel(label string) AdaptOption {
	return func(o *adaptOptions) {
		o.label = strings.TrimSpace(label)
	}
}

// WithLogger sets the logger failures are reported to. It defaults to
// slog.Default() resolved at call time.
func WithLogger(logger *slog.Logger) AdaptOption {
	return func(o *adaptOptions) {
		o.logger = logger
	}
}

// WrappedOperation is an Operation behind the error-normalizing adapter. It keeps
// the operation's name, description and parameters and holds no mutable state.
type WrappedOperation struct {
	op       Operation
	logName  string
	logLabel string
	logger   *slog.Logger
}

// Adapt wraps op once. The result is safe for concurrent use.
func Adapt(op Operation, opts ...AdaptOption) WrappedOperation {
	var options adaptOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	logName := options.name
	if logName == "" {
		logName = op.Name
	}
	logLabel := options.label
	if logLabel == "" {
		logLabel = logName
	}
	return WrappedOperation{op: op, logName: logName, logLabel: logLabel, logger: options.logger}
}

func (w WrappedOperation) Name() string             { return w.op.Name }
func (w WrappedOperation) Description() string      { return w.op.Description }
func (w WrappedOperation) Params() []Param          { return w.op.Params }
func (w WrappedOperation) Annotations() Annotations { return w.op.Annotations }

// LogName is the name failures are logged under.
func (w WrappedOperation) LogName() string { return w.logName }

// LogLabel is the phrase failure messages start with.
func (w WrappedOperation) LogLabel() string { return w.logLabel }

// Unwrap returns the original operation.
func (w WrappedOperation) Unwrap() Operation { return w.op }

// Call binds raw, runs the operation and serializes its result. On any failure it
// logs exactly one entry and returns (nil, false); it never panics and never
// returns an error. A successful call whose result is empty returns (nil, true).
func (w WrappedOperation) Call(ctx context.Context, raw map[string]any) (any, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	requestID := uuid.NewString()

	result, err := w.run(ctx, raw)
	observation := InvokeObservation{
		RequestID:  requestID,
		Tool:       w.op.Name,
		Operation:  w.logName,
		StartedAt:  start,
		DurationMS: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		observation.ErrorType, observation.ErrorMessage = describeFailure(err)
		w.logFailure(ctx, requestID, observation.ErrorType, observation.ErrorMessage)
		safeEmit(observation)
		return nil, false
	}
	safeEmit(observation)
	return Serialize(result), true
}

func (w WrappedOperation) run(ctx context.Context, raw map[string]any) (any, error) {
	if w.op.Invoke == nil {
		return nil, ErrNilTask
	}
	args, err := Bind(w.op.Params, raw)
	if err != nil {
		return nil, err
	}
	var task Task[any]
	if err := recoverInto(func() { task = w.op.Invoke(args) }); err != nil {
		return nil, err
	}
	return task.Run(ctx)
}

func recoverInto(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	fn()
	return nil
}

// describeFailure classifies err and reads its message. An error whose methods
// panic is reported as a PanicError carrying the recovered value.
func describeFailure(err error) (errType, errMsg string) {
	if perr := recoverInto(func() { errType = ErrorType(err) }); perr != nil {
		errType = ErrorTypePanic
	}
	if perr := recoverInto(func() { errMsg = err.Error() }); perr != nil {
		errType = ErrorTypePanic
		errMsg = fmt.Sprint(perr.(*PanicError).Value)
	}
	return errType, errMsg
}

func (w WrappedOperation) logFailure(ctx context.Context, requestID, errType, errMsg string) {
	defer func() { _ = recover() }()
	logger := w.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelError, fmt.Sprintf("Error %s: %s", w.logLabel, errMsg),
		slog.String("operation", w.logName),
		slog.String("error_type", errType),
		slog.String("error_message", errMsg),
		slog.String("request_id", requestID),
	)
}

func safeEmit(observation InvokeObservation) {
	defer func() { _ = recover() }()
	emitInvokeObservation(observation)
}
