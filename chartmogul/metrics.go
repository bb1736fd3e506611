package chartmogul

import (
	"context"
	"fmt"
	"net/url"
)

// MetricKind names a metrics report endpoint.
type MetricKind string

const (
	MetricsAll               MetricKind = "all"
	MetricsMRR               MetricKind = "mrr"
	MetricsARR               MetricKind = "arr"
	MetricsARPA              MetricKind = "arpa"
	MetricsASP               MetricKind = "asp"
	MetricsCustomerCount     MetricKind = "customer-count"
	MetricsCustomerChurnRate MetricKind = "customer-churn-rate"
	MetricsMRRChurnRate      MetricKind = "mrr-churn-rate"
	MetricsLTV               MetricKind = "ltv"
)

// MetricKinds lists every report in a stable order.
var MetricKinds = []MetricKind{
	MetricsAll,
	MetricsMRR,
	MetricsARR,
	MetricsARPA,
	MetricsASP,
	MetricsCustomerCount,
	MetricsCustomerChurnRate,
	MetricsMRRChurnRate,
	MetricsLTV,
}

// Valid reports whether k is a known report.
func (k MetricKind) Valid() bool {
	for _, known := range MetricKinds {
		if k == known {
			return true
		}
	}
	return false
}

// MetricsParams bounds a metrics report. Dates are YYYY-MM-DD; Interval is one of
// day, week, month, quarter or year. Geo and Plans are comma-separated filters.
type MetricsParams struct {
	StartDate string
	EndDate   string
	Interval  string
	Geo       string
	Plans     string
}

// Metrics fetches the report named by kind.
func (c *Client) Metrics(ctx context.Context, kind MetricKind, params MetricsParams) (Metrics, error) {
	if !kind.Valid() {
		return Metrics{}, fmt.Errorf("chartmogul: unknown metrics report %q", kind)
	}
	query := url.Values{}
	setIf(query, "start-date", params.StartDate)
	setIf(query, "end-date", params.EndDate)
	setIf(query, "interval", params.Interval)
	setIf(query, "geo", params.Geo)
	setIf(query, "plans", params.Plans)

	var report Metrics
	if err := c.get(ctx, "/metrics/"+string(kind), query, &report); err != nil {
		return Metrics{}, err
	}
	return report, nil
}
