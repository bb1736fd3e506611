package tool

import (
	"context"
	"strings"
)

// ParamType is the JSON type a parameter accepts.
type ParamType string

const (
	ParamString      ParamType = "string"
	ParamInteger     ParamType = "integer"
	ParamNumber      ParamType = "number"
	ParamBoolean     ParamType = "boolean"
	ParamObject      ParamType = "object"
	ParamStringArray ParamType = "array"
)

// Param declares one named operation parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Default is applied when an optional parameter is absent.
	Default any
}

// Annotations are behavioural hints surfaced to tool hosts.
type Annotations struct {
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
}

// Operation is a named unit of work against a remote API. It is built once at
// startup and never mutated.
type Operation struct {
	Name        string
	Description string
	Params      []Param
	Annotations Annotations
	// Invoke builds the task for one call from already bound arguments.
	Invoke func(args Args) Task[any]
}

// NewOperation erases the result type of a typed invoke function.
func NewOperation[T any](name, description string, params []Param, invoke func(args Args) Task[T]) Operation {
	op := Operation{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Params:      params,
	}
	if invoke != nil {
		op.Invoke = func(args Args) Task[any] {
			task := invoke(args)
			return func(ctx context.Context) (any, error) {
				return task(ctx)
			}
		}
	}
	return op
}

// WithAnnotations returns a copy of op carrying the given hints.
func (op Operation) WithAnnotations(a Annotations) Operation {
	op.Annotations = a
	return op
}

// Param looks up a declared parameter by name.
func (op Operation) Param(name string) (Param, bool) {
	for _, p := range op.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
