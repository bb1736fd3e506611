package tool

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

type bag map[string]any

func (b bag) Fields() map[string]any { return b }

type listOf []any

func (l listOf) Elements() []any { return l }

type panickyObject struct{}

func (panickyObject) Fields() map[string]any { panic("broken accessor") }
func (panickyObject) String() string         { return "panickyObject" }

type opaque struct{ n int }

func TestSerializeObjectScalars(t *testing.T) {
	in := bag{"id": "acc_1", "count": 3, "active": true, "ratio": 0.5, "missing": nil}
	got, ok := Serialize(in).(map[string]any)
	if !ok {
		t.Fatalf("Serialize() = %T, want map", Serialize(in))
	}
	if len(got) != len(in) {
		t.Fatalf("len = %d, want %d", len(got), len(in))
	}
	for k, v := range in {
		if got[k] != v {
			t.Fatalf("got[%q] = %v, want %v", k, got[k], v)
		}
	}
}

func TestSerializeSequenceKeepsOrder(t *testing.T) {
	in := listOf{bag{"id": "a"}, bag{"id": "b"}, bag{"id": "c"}}
	got, ok := Serialize(in).([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("Serialize() = %#v, want 3 elements", Serialize(in))
	}
	for i, id := range []string{"a", "b", "c"} {
		if got[i].(map[string]any)["id"] != id {
			t.Fatalf("got[%d] = %v, want id %s", i, got[i], id)
		}
	}
}

func TestSerializeNested(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	in := bag{
		"address": bag{"city": "Berlin"},
		"tags":    []string{"vip", "eu"},
		"since":   ts,
		"rows":    []map[string]any{{"mrr": 10}},
		"raw":     json.RawMessage(`{"a":1}`),
	}
	want := map[string]any{
		"address": map[string]any{"city": "Berlin"},
		"tags":    []any{"vip", "eu"},
		"since":   "2024-05-06T07:08:09Z",
		"rows":    []any{map[string]any{"mrr": 10}},
		"raw":     map[string]any{"a": float64(1)},
	}
	if got := Serialize(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("Serialize() = %#v, want %#v", got, want)
	}
}

func TestSerializeEmptyInputs(t *testing.T) {
	if got := Serialize(nil); got != nil {
		t.Fatalf("Serialize(nil) = %v, want nil", got)
	}
	if got := Serialize(listOf{}); !reflect.DeepEqual(got, []any{}) {
		t.Fatalf("Serialize(empty) = %#v, want []any{}", got)
	}
	if got := Serialize(bag{}); !reflect.DeepEqual(got, map[string]any{}) {
		t.Fatalf("Serialize(empty bag) = %#v, want empty map", got)
	}
}

type pointerObject struct{ id string }

func (p *pointerObject) Fields() map[string]any { return map[string]any{"id": p.id} }

func TestSerializeTypedNilPointer(t *testing.T) {
	if got := Serialize((*pointerObject)(nil)); got != nil {
		t.Fatalf("Serialize(typed nil) = %#v, want nil", got)
	}
	got := Serialize(bag{"address": (*pointerObject)(nil), "owner": &pointerObject{id: "u1"}}).(map[string]any)
	if got["address"] != nil {
		t.Fatalf("address = %#v, want nil", got["address"])
	}
	if owner, ok := got["owner"].(map[string]any); !ok || owner["id"] != "u1" {
		t.Fatalf("owner = %#v, want {id: u1}", got["owner"])
	}
}

func TestSerializeFallbacks(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "error", in: errors.New("bad"), want: "bad"},
		{name: "stringer", in: time.Second, want: "1s"},
		{name: "opaque struct", in: opaque{n: 4}, want: "{4}"},
		{name: "panicking object", in: panickyObject{}, want: "panickyObject"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Serialize(tc.in); got != tc.want {
				t.Fatalf("Serialize() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestSerializePanicIsContainedToOneNode(t *testing.T) {
	got := Serialize(bag{"ok": 1, "bad": panickyObject{}}).(map[string]any)
	if got["ok"] != 1 || got["bad"] != "panickyObject" {
		t.Fatalf("Serialize() = %#v, want ok kept and bad stringified", got)
	}
}

func TestSerializeCyclicMapTerminates(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	out := Serialize(cyclic)
	if _, err := json.Marshal(out); err != nil {
		t.Fatalf("json.Marshal(Serialize(cyclic)) error = %v", err)
	}
}
