package chartmogul

import (
	"encoding/json"
	"time"
)

// fieldSet accumulates the explicit mapping returned by Fields. Every modelled
// attribute gets a key; absent optional values map to nil.
type fieldSet map[string]any

func (f fieldSet) str(key, value string) {
	f[key] = value
}

func (f fieldSet) strs(key string, values []string) {
	if values == nil {
		f[key] = nil
		return
	}
	f[key] = values
}

func (f fieldSet) time(key string, value *time.Time) {
	if value == nil || value.IsZero() {
		f[key] = nil
		return
	}
	f[key] = *value
}

func (f fieldSet) float(key string, value *float64) {
	if value == nil {
		f[key] = nil
		return
	}
	f[key] = *value
}

func elements[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

// Account is the ChartMogul account the API key belongs to.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Currency    string `json:"currency,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	WeekStartOn string `json:"week_start_on,omitempty"`
}

// Fields returns the account as a plain mapping.
func (a Account) Fields() map[string]any {
	f := fieldSet{}
	f.str("id", a.ID)
	f.str("name", a.Name)
	f.str("currency", a.Currency)
	f.str("time_zone", a.TimeZone)
	f.str("week_start_on", a.WeekStartOn)
	return f
}

// DataSource is a billing system connected to ChartMogul.
type DataSource struct {
	UUID      string     `json:"uuid"`
	Name      string     `json:"name"`
	System    string     `json:"system,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Fields returns the data source as a plain mapping.
func (d DataSource) Fields() map[string]any {
	f := fieldSet{}
	f.str("uuid", d.UUID)
	f.str("name", d.Name)
	f.str("system", d.System)
	f.str("status", d.Status)
	f.time("created_at", d.CreatedAt)
	return f
}

// DataSources is an ordered list of data sources.
type DataSources []DataSource

// Elements returns the data sources in API order.
func (d DataSources) Elements() []any { return elements(d) }

// Address is the postal address attached to a customer.
type Address struct {
	AddressZIP string `json:"address_zip,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Fields returns the address as a plain mapping.
func (a Address) Fields() map[string]any {
	f := fieldSet{}
	f.str("address_zip", a.AddressZIP)
	f.str("city", a.City)
	f.str("state", a.State)
	f.str("country", a.Country)
	return f
}

// Customer is a ChartMogul customer record.
type Customer struct {
	ID                 int64          `json:"id,omitempty"`
	UUID               string         `json:"uuid"`
	ExternalID         string         `json:"external_id,omitempty"`
	ExternalIDs        []string       `json:"external_ids,omitempty"`
	DataSourceUUID     string         `json:"data_source_uuid,omitempty"`
	DataSourceUUIDs    []string       `json:"data_source_uuids,omitempty"`
	Name               string         `json:"name,omitempty"`
	Email              string         `json:"email,omitempty"`
	Company            string         `json:"company,omitempty"`
	Status             string         `json:"status,omitempty"`
	CustomerSince      *time.Time     `json:"customer-since,omitempty"`
	LeadCreatedAt      *time.Time     `json:"lead_created_at,omitempty"`
	FreeTrialStartedAt *time.Time     `json:"free_trial_started_at,omitempty"`
	City               string         `json:"city,omitempty"`
	State              string         `json:"state,omitempty"`
	Country            string         `json:"country,omitempty"`
	ZIP                string         `json:"zip,omitempty"`
	Address            *Address       `json:"address,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
	MRR                *float64       `json:"mrr,omitempty"`
	ARR                *float64       `json:"arr,omitempty"`
	Currency           string         `json:"currency,omitempty"`
	CurrencySign       string         `json:"currency-sign,omitempty"`
	BillingSystemURL   string         `json:"billing-system-url,omitempty"`
	BillingSystemType  string         `json:"billing-system-type,omitempty"`
	ChartMogulURL      string         `json:"chartmogul-url,omitempty"`
}

// Fields returns the customer as a plain mapping.
func (c Customer) Fields() map[string]any {
	f := fieldSet{"id": c.ID}
	f.str("uuid", c.UUID)
	f.str("external_id", c.ExternalID)
	f.strs("external_ids", c.ExternalIDs)
	f.str("data_source_uuid", c.DataSourceUUID)
	f.strs("data_source_uuids", c.DataSourceUUIDs)
	f.str("name", c.Name)
	f.str("email", c.Email)
	f.str("company", c.Company)
	f.str("status", c.Status)
	f.time("customer-since", c.CustomerSince)
	f.time("lead_created_at", c.LeadCreatedAt)
	f.time("free_trial_started_at", c.FreeTrialStartedAt)
	f.str("city", c.City)
	f.str("state", c.State)
	f.str("country", c.Country)
	f.str("zip", c.ZIP)
	f["address"] = nil
	if c.Address != nil {
		f["address"] = *c.Address
	}
	f["attributes"] = nil
	if c.Attributes != nil {
		f["attributes"] = c.Attributes
	}
	f.float("mrr", c.MRR)
	f.float("arr", c.ARR)
	f.str("currency", c.Currency)
	f.str("currency-sign", c.CurrencySign)
	f.str("billing-system-url", c.BillingSystemURL)
	f.str("billing-system-type", c.BillingSystemType)
	f.str("chartmogul-url", c.ChartMogulURL)
	return f
}

// CustomerPage is one cursor page of customers.
type CustomerPage struct {
	Entries []Customer `json:"entries"`
	HasMore bool       `json:"has_more"`
	Cursor  string     `json:"cursor,omitempty"`
}

// Fields returns the page as {entries, has_more, cursor}.
func (p CustomerPage) Fields() map[string]any {
	f := fieldSet{
		"entries":  elements(p.Entries),
		"has_more": p.HasMore,
		"cursor":   nil,
	}
	if p.Cursor != "" {
		f["cursor"] = p.Cursor
	}
	return f
}

// MetricsEntry is one interval row of a metrics report. Date is kept apart from the
// metric values, whose keys vary by report.
type MetricsEntry struct {
	Date   string
	Values map[string]any
}

// UnmarshalJSON splits the date column from the metric values.
func (e *MetricsEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if date, ok := raw["date"].(string); ok {
		e.Date = date
	}
	delete(raw, "date")
	e.Values = raw
	return nil
}

// Fields returns the row with its date and every metric value.
func (e MetricsEntry) Fields() map[string]any {
	f := make(fieldSet, len(e.Values)+1)
	for key, value := range e.Values {
		f[key] = value
	}
	f.str("date", e.Date)
	return f
}

// Metrics is a metrics report: interval rows plus an optional summary, nil when absent.
type Metrics struct {
	Entries []MetricsEntry `json:"entries"`
	Summary map[string]any `json:"summary,omitempty"`
}

// Fields returns the report as {entries, summary}.
func (m Metrics) Fields() map[string]any {
	f := fieldSet{"entries": elements(m.Entries), "summary": nil}
	if m.Summary != nil {
		f["summary"] = m.Summary
	}
	return f
}
