package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args holds tool arguments after Bind has checked and coerced them, so accessors
// never fail.
type Args map[string]any

// Bind checks raw against params: required parameters must be present and
// non-empty, values are coerced to the declared type, and absent optional
// parameters take their default. Undeclared keys are dropped.
func Bind(params []Param, raw map[string]any) (Args, error) {
	args := make(Args, len(params))
	for _, p := range params {
		value, ok := raw[p.Name]
		if !ok || value == nil || isBlankString(value) {
			if p.Required {
				return nil, &ArgumentError{Param: p.Name, Reason: "is required"}
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerce(p.Type, value)
		if err != nil {
			return nil, &ArgumentError{Param: p.Name, Reason: err.Error()}
		}
		args[p.Name] = coerced
	}
	return args, nil
}

func isBlankString(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func coerce(kind ParamType, value any) (any, error) {
	switch kind {
	case ParamString, "":
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return nil, fmt.Errorf("want string, got %T", value)
	case ParamInteger:
		return coerceInt(value)
	case ParamNumber:
		return coerceFloat(value)
	case ParamBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("want boolean, got %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("want boolean, got %T", value)
	case ParamObject:
		switch v := value.(type) {
		case map[string]any:
			return v, nil
		case string:
			var obj map[string]any
			if err := json.Unmarshal([]byte(v), &obj); err != nil {
				return nil, fmt.Errorf("want object: %v", err)
			}
			return obj, nil
		}
		return nil, fmt.Errorf("want object, got %T", value)
	case ParamStringArray:
		return coerceStrings(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", kind)
	}
}

func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("want integer, got %v", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("want integer, got %q", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("want integer, got %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("want integer, got %T", value)
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("want number, got %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("want number, got %T", value)
}

func coerceStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: want string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("want array of strings, got %T", value)
}

// String returns a bound string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns a bound integer argument, or 0 when absent.
func (a Args) Int(name string) int {
	n, _ := a[name].(int)
	return n
}

func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Object returns a bound object argument, or nil when absent.
func (a Args) Object(name string) map[string]any {
	obj, _ := a[name].(map[string]any)
	return obj
}

// Strings returns a bound string-array argument, or nil when absent.
func (a Args) Strings(name string) []string {
	values, _ := a[name].([]string)
	return values
}
