package tool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	// ErrorTypeValidation classifies argument binding failures.
	ErrorTypeValidation = "ValidationError"
	// ErrorTypeTimeout classifies deadline and network timeouts.
	ErrorTypeTimeout = "TimeoutError"
	// ErrorTypeCancelled classifies caller cancellation.
	ErrorTypeCancelled = "CancelledError"
	// ErrorTypePanic classifies a recovered panic inside an operation.
	ErrorTypePanic = "PanicError"
	// ErrorTypeGeneric is the fallback for errors without a useful type name.
	ErrorTypeGeneric = "Error"
)

// ArgumentError reports a missing or mistyped tool argument.
type ArgumentError struct {
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("argument %q: %s", e.Param, e.Reason)
}

// ErrorType names the failure class.
func (e *ArgumentError) ErrorType() string { return ErrorTypeValidation }

// PanicError carries a value recovered from a panicking operation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorType names the failure class.
func (e *PanicError) ErrorType() string { return ErrorTypePanic }

type typedError interface {
	ErrorType() string
}

// ErrorType returns a stable, human-readable classification for err. Errors that
// implement ErrorType() string classify themselves; context and network timeouts
// map to TimeoutError and cancellation to CancelledError; anything else is named
// after its Go type.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	var typed typedError
	if errors.As(err, &typed) {
		if name := strings.TrimSpace(typed.ErrorType()); name != "" {
			return name
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	return goTypeName(err)
}

// goTypeName turns "*pkg.SomeError" into "SomeError". Unexported implementation
// types such as *errors.errorString collapse to "Error".
func goTypeName(err error) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" || strings.ToLower(name[:1]) == name[:1] {
		return ErrorTypeGeneric
	}
	return name
}
