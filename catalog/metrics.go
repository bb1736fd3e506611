package catalog

import (
	"context"
	"strings"

	"github.com/petal-labs/chartmogul-mcp/chartmogul"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

var metricLabels = map[chartmogul.MetricKind]string{
	chartmogul.MetricsAll:               "all key metrics",
	chartmogul.MetricsMRR:               "monthly recurring revenue (MRR)",
	chartmogul.MetricsARR:               "annualized run rate (ARR)",
	chartmogul.MetricsARPA:              "average revenue per account (ARPA)",
	chartmogul.MetricsASP:               "average sale price (ASP)",
	chartmogul.MetricsCustomerCount:     "customer count",
	chartmogul.MetricsCustomerChurnRate: "customer churn rate",
	chartmogul.MetricsMRRChurnRate:      "net MRR churn rate",
	chartmogul.MetricsLTV:               "customer lifetime value (LTV)",
}

var metricsParams = []tool.Param{
	{Name: "start_date", Type: tool.ParamString, Required: true, Description: "First day, YYYY-MM-DD."},
	{Name: "end_date", Type: tool.ParamString, Required: true, Description: "Last day, YYYY-MM-DD."},
	{Name: "interval", Type: tool.ParamString, Required: true, Description: "day, week, month, quarter or year."},
	{Name: "geo", Type: tool.ParamString, Description: "Comma-separated ISO country codes."},
	{Name: "plans", Type: tool.ParamString, Description: "Comma-separated plan names or UUIDs."},
}

func metricsToolName(kind chartmogul.MetricKind) string {
	return strings.ReplaceAll(string(kind), "-", "_") + "_metrics"
}

func metricsOperations(api API) []tool.Operation {
	ops := make([]tool.Operation, 0, len(chartmogul.MetricKinds))
	for _, kind := range chartmogul.MetricKinds {
		ops = append(ops, metricsOperation(api, kind))
	}
	return ops
}

func metricsOperation(api API, kind chartmogul.MetricKind) tool.Operation {
	return tool.NewOperation(metricsToolName(kind),
		"Report "+metricLabels[kind]+" from the ChartMogul API for a date range and interval.",
		metricsParams,
		func(args tool.Args) tool.Task[chartmogul.Metrics] {
			return func(ctx context.Context) (chartmogul.Metrics, error) {
				return api.Metrics(ctx, kind, chartmogul.MetricsParams{
					StartDate: args.String("start_date"),
					EndDate:   args.String("end_date"),
					Interval:  args.String("interval"),
					Geo:       args.String("geo"),
					Plans:     args.String("plans"),
				})
			}
		}).WithAnnotations(readOnly)
}
