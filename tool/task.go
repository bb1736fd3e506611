package tool

import (
	"context"
	"errors"
)

// ErrNilTask is returned when an operation produced no task to run.
var ErrNilTask = errors.New("tool: operation returned a nil task")

// Task is a possibly-suspending computation producing T or failing. Context-aware
// calls are Tasks as written; blocking calls are lifted with Async.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes the task, converting a panic into a *PanicError.
func (t Task[T]) Run(ctx context.Context) (result T, err error) {
	if t == nil {
		return result, ErrNilTask
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, err = zero, &PanicError{Value: r}
		}
	}()
	return t(ctx)
}

// Resolved returns a task that yields value without doing any work.
func Resolved[T any](value T) Task[T] {
	return func(context.Context) (T, error) { return value, nil }
}

// Failed returns a task that fails with err.
func Failed[T any](err error) Task[T] {
	return func(context.Context) (T, error) {
		var zero T
		return zero, err
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// Async lifts a blocking call that takes no context into a Task. The call runs on
// its own goroutine; if ctx ends first the task returns ctx.Err() and the late
// result is discarded.
func Async[T any](fn func() (T, error)) Task[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		done := make(chan outcome[T], 1)
		go func() {
			var out outcome[T]
			defer func() {
				if r := recover(); r != nil {
					out = outcome[T]{err: &PanicError{Value: r}}
				}
				done <- out
			}()
			value, err := fn()
			out = outcome[T]{value: value, err: err}
		}()
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case out := <-done:
			return out.value, out.err
		}
	}
}

// Then maps a successful result of t through fn.
func Then[T, U any](t Task[T], fn func(T) U) Task[U] {
	return func(ctx context.Context) (U, error) {
		value, err := t(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(value), nil
	}
}
