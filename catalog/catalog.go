// Package catalog defines the fixed set of ChartMogul operations served as tools.
package catalog

import (
	"context"
	"log/slog"

	"github.com/petal-labs/chartmogul-mcp/chartmogul"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

// API is the subset of *chartmogul.Client the catalog calls.
type API interface {
	RetrieveAccount(ctx context.Context) (chartmogul.Account, error)
	ListDataSources(ctx context.Context, params chartmogul.ListDataSourcesParams) (chartmogul.DataSources, error)
	RetrieveDataSource(ctx context.Context, uuid string) (chartmogul.DataSource, error)
	ListCustomers(ctx context.Context, params chartmogul.ListCustomersParams) (chartmogul.CustomerPage, error)
	SearchCustomers(ctx context.Context, params chartmogul.SearchCustomersParams) (chartmogul.CustomerPage, error)
	CreateCustomer(ctx context.Context, data map[string]any) (chartmogul.Customer, error)
	RetrieveCustomer(ctx context.Context, uuid string) (chartmogul.Customer, error)
	UpdateCustomer(ctx context.Context, uuid string, data map[string]any) (chartmogul.Customer, error)
	DeleteCustomer(ctx context.Context, uuid string) error
	MergeCustomers(ctx context.Context, fromUUID, toUUID string) (map[string]any, error)
	UnmergeCustomer(ctx context.Context, params chartmogul.UnmergeParams) (map[string]any, error)
	Metrics(ctx context.Context, kind chartmogul.MetricKind, params chartmogul.MetricsParams) (chartmogul.Metrics, error)
}

var _ API = (*chartmogul.Client)(nil)

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger every wrapped operation reports failures to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// Operations returns the raw catalog in registration order.
func Operations(api API) []tool.Operation {
	ops := []tool.Operation{
		retrieveAccount(api),
		listSources(api),
		retrieveSource(api),
		listCustomers(api),
		searchCustomers(api),
		createCustomer(api),
		retrieveCustomer(api),
		updateCustomer(api),
		deleteCustomer(api),
		mergeCustomers(api),
		unmergeCustomers(api),
	}
	return append(ops, metricsOperations(api)...)
}

// Build wraps every catalog operation exactly once, preserving order.
func Build(api API, opts ...Option) []tool.WrappedOperation {
	var options buildOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	ops := Operations(api)
	wrapped := make([]tool.WrappedOperation, 0, len(ops))
	for _, op := range ops {
		wrapped = append(wrapped, tool.Adapt(op,
			tool.WithLogLabel(LogLabel(op.Name)),
			tool.WithLogger(options.logger),
		))
	}
	return wrapped
}

var logLabels = map[string]string{
	"retrieve_account":  "retrieving account",
	"list_sources":      "listing data sources",
	"retrieve_source":   "retrieving data source",
	"list_customers":    "listing customers",
	"search_customers":  "searching customers",
	"create_customer":   "creating customer",
	"retrieve_customer": "retrieving customer",
	"update_customer":   "updating customer",
	"delete_customer":   "deleting customer",
	"merge_customers":   "merging customers",
	"unmerge_customers": "unmerging customers",
}

// LogLabel returns the phrase failures of the named tool are logged with, e.g.
// "Error retrieving account: ...". Unknown names yield "".
func LogLabel(name string) string {
	if label, ok := logLabels[name]; ok {
		return label
	}
	for _, kind := range chartmogul.MetricKinds {
		if metricsToolName(kind) == name {
			return "retrieving " + metricLabels[kind]
		}
	}
	return ""
}

// Names lists the tool names in registration order.
func Names(ops []tool.WrappedOperation) []string {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name())
	}
	return names
}

var readOnly = tool.Annotations{ReadOnly: true, Idempotent: true}

func uuidParam(description string) tool.Param {
	return tool.Param{Name: "uuid", Type: tool.ParamString, Required: true, Description: description}
}

func cursorParams() []tool.Param {
	return []tool.Param{
		{Name: "cursor", Type: tool.ParamString, Description: "Cursor returned by the previous page."},
		{Name: "per_page", Type: tool.ParamInteger, Default: chartmogul.DefaultPerPage, Description: "Number of entries per page."},
	}
}

func retrieveAccount(api API) tool.Operation {
	return tool.NewOperation("retrieve_account",
		"Retrieve the account information of the current ChartMogul API key.",
		nil,
		func(tool.Args) tool.Task[chartmogul.Account] {
			return api.RetrieveAccount
		}).WithAnnotations(readOnly)
}

func listSources(api API) tool.Operation {
	return tool.NewOperation("list_sources",
		"List the data sources (connected billing systems) of the ChartMogul API account.",
		[]tool.Param{
			{Name: "name", Type: tool.ParamString, Description: "Filter by data source name."},
			{Name: "system", Type: tool.ParamString, Description: "Filter by billing system, e.g. Stripe."},
		},
		func(args tool.Args) tool.Task[chartmogul.DataSources] {
			return func(ctx context.Context) (chartmogul.DataSources, error) {
				return api.ListDataSources(ctx, chartmogul.ListDataSourcesParams{
					Name:   args.String("name"),
					System: args.String("system"),
				})
			}
		}).WithAnnotations(readOnly)
}

func retrieveSource(api API) tool.Operation {
	return tool.NewOperation("retrieve_source",
		"Retrieve a single data source from the ChartMogul API by UUID.",
		[]tool.Param{uuidParam("Data source UUID.")},
		func(args tool.Args) tool.Task[chartmogul.DataSource] {
			return func(ctx context.Context) (chartmogul.DataSource, error) {
				return api.RetrieveDataSource(ctx, args.String("uuid"))
			}
		}).WithAnnotations(readOnly)
}
