package chartmogul

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestAccountFieldsKeepsEveryAttribute(t *testing.T) {
	var account Account
	body := `{"id":"acc_1","name":"","currency":"EUR","time_zone":"Europe/Berlin","week_start_on":"monday"}`
	if err := json.Unmarshal([]byte(body), &account); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := map[string]any{
		"id":            "acc_1",
		"name":          "",
		"currency":      "EUR",
		"time_zone":     "Europe/Berlin",
		"week_start_on": "monday",
	}
	if got := account.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
}

func TestFieldsKeySetIndependentOfValues(t *testing.T) {
	mrr := 10.0
	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string][2]interface{ Fields() map[string]any }{
		"account":     {Account{}, Account{ID: "a", Name: "n", Currency: "USD", TimeZone: "UTC", WeekStartOn: "sunday"}},
		"data source": {DataSource{}, DataSource{UUID: "ds", Name: "n", System: "Stripe", Status: "idle", CreatedAt: &since}},
		"customer":    {Customer{}, Customer{ID: 7, UUID: "cus", Name: "n", MRR: &mrr, CustomerSince: &since, Address: &Address{City: "Berlin"}, Attributes: map[string]any{}, ExternalIDs: []string{"x"}}},
		"page":        {CustomerPage{}, CustomerPage{Entries: []Customer{{}}, HasMore: true, Cursor: "c"}},
		"metrics":     {Metrics{}, Metrics{Summary: map[string]any{"current": 1}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			empty, full := tc[0].Fields(), tc[1].Fields()
			if len(empty) != len(full) {
				t.Fatalf("len(Fields()) = %d (zero) vs %d (populated), want equal", len(empty), len(full))
			}
			for key := range full {
				if _, ok := empty[key]; !ok {
					t.Fatalf("zero value Fields() missing key %q", key)
				}
			}
		})
	}
}

func TestCustomerFieldsNested(t *testing.T) {
	mrr := 0.0
	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	customer := Customer{
		UUID:          "cus_1",
		Email:         "a@acme.test",
		CustomerSince: &since,
		Address:       &Address{City: "Berlin", Country: "DE"},
		Attributes:    map[string]any{"tags": []any{"vip"}},
		MRR:           &mrr,
	}
	got := customer.Fields()

	if got["uuid"] != "cus_1" || got["email"] != "a@acme.test" {
		t.Fatalf("Fields() = %v, want uuid and email", got)
	}
	if got["customer-since"] != since {
		t.Fatalf("customer-since = %v, want %v", got["customer-since"], since)
	}
	if addr, ok := got["address"].(Address); !ok || addr.City != "Berlin" {
		t.Fatalf("address = %#v, want Address value", got["address"])
	}
	if v, ok := got["mrr"]; !ok || v != 0.0 {
		t.Fatalf("mrr = %v (present %v), want explicit zero kept", v, ok)
	}
	if v, ok := got["name"]; !ok || v != "" {
		t.Fatalf("name = %v (present %v), want empty string", v, ok)
	}
	if v, ok := got["arr"]; !ok || v != nil {
		t.Fatalf("arr = %v (present %v), want nil", v, ok)
	}
	if len(got) != 26 {
		t.Fatalf("len(Fields()) = %d, want 26", len(got))
	}
}

func TestDataSourcesElementsOrder(t *testing.T) {
	sources := DataSources{{UUID: "a"}, {UUID: "b"}, {UUID: "c"}}
	elems := sources.Elements()
	if len(elems) != 3 {
		t.Fatalf("len(Elements()) = %d, want 3", len(elems))
	}
	for i, id := range []string{"a", "b", "c"} {
		if elems[i].(DataSource).UUID != id {
			t.Fatalf("Elements()[%d] = %v, want %s", i, elems[i], id)
		}
	}
}

func TestCustomerPageFields(t *testing.T) {
	page := CustomerPage{Entries: []Customer{{UUID: "cus_1"}}, HasMore: false}
	got := page.Fields()
	if got["has_more"] != false {
		t.Fatalf("has_more = %v, want false", got["has_more"])
	}
	if v, ok := got["cursor"]; !ok || v != nil {
		t.Fatalf("cursor = %v (present %v), want nil", v, ok)
	}
	entries, ok := got["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("entries = %#v, want one element", got["entries"])
	}
}

func TestMetricsEntryUnmarshal(t *testing.T) {
	var entry MetricsEntry
	if err := json.Unmarshal([]byte(`{"date":"2024-01-31","mrr":100,"arr":1200}`), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := map[string]any{"date": "2024-01-31", "mrr": float64(100), "arr": float64(1200)}
	if got := entry.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
}
