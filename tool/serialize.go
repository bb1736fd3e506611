package tool

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Object is a response value that knows its own attribute set.
type Object interface {
	Fields() map[string]any
}

// Sequence is an ordered collection of response values.
type Sequence interface {
	Elements() []any
}

const maxSerializeDepth = 64

// Serialize converts a response value into plain maps, slices and scalars that
// encoding/json can emit. It never panics: a value that cannot be converted, or
// whose conversion panics, degrades to its string form.
func Serialize(v any) any {
	return serializeValue(v, 0)
}

func serializeValue(v any, depth int) (out any) {
	if depth > maxSerializeDepth {
		return fmt.Sprintf("<%T: max depth exceeded>", v)
	}
	defer func() {
		if r := recover(); r != nil {
			out = fallbackString(v)
		}
	}()

	if isNilPointer(v) {
		return nil
	}

	switch value := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return value
	case time.Time:
		if value.IsZero() {
			return nil
		}
		return value.Format(time.RFC3339)
	case *time.Time:
		if value == nil || value.IsZero() {
			return nil
		}
		return value.Format(time.RFC3339)
	case Object:
		return serializeMap(value.Fields(), depth)
	case Sequence:
		return serializeSlice(value.Elements(), depth)
	case map[string]any:
		return serializeMap(value, depth)
	case map[string]string:
		out := make(map[string]any, len(value))
		for k, s := range value {
			out[k] = s
		}
		return out
	case []any:
		return serializeSlice(value, depth)
	case []string:
		out := make([]any, len(value))
		for i, s := range value {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(value))
		for i, m := range value {
			out[i] = serializeMap(m, depth)
		}
		return out
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return string(value)
		}
		return decoded
	case error:
		return value.Error()
	case fmt.Stringer:
		return value.String()
	default:
		return fallbackString(v)
	}
}

func serializeMap(m map[string]any, depth int) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = serializeValue(item, depth+1)
	}
	return out
}

func serializeSlice(items []any, depth int) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = serializeValue(item, depth+1)
	}
	return out
}

// isNilPointer reports a typed nil pointer, which would otherwise dispatch to a
// method that dereferences it.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// fallbackString relies on fmt, which already recovers panics raised by String
// and Error methods.
func fallbackString(v any) string {
	return fmt.Sprint(v)
}
