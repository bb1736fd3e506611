package catalog

import (
	"context"

	"github.com/petal-labs/chartmogul-mcp/chartmogul"
	"github.com/petal-labs/chartmogul-mcp/tool"
)

func listCustomers(api API) tool.Operation {
	params := []tool.Param{
		{Name: "data_source_uuid", Type: tool.ParamString, Description: "Only customers from this data source."},
		{Name: "external_id", Type: tool.ParamString, Description: "Only the customer with this external ID."},
		{Name: "status", Type: tool.ParamString, Description: "Customer status, e.g. Active, Lead, Cancelled."},
		{Name: "system", Type: tool.ParamString, Description: "Billing system, e.g. Stripe."},
	}
	return tool.NewOperation("list_customers",
		"List customers from the ChartMogul API, one cursor page at a time.",
		append(params, cursorParams()...),
		func(args tool.Args) tool.Task[chartmogul.CustomerPage] {
			return func(ctx context.Context) (chartmogul.CustomerPage, error) {
				return api.ListCustomers(ctx, chartmogul.ListCustomersParams{
					DataSourceUUID: args.String("data_source_uuid"),
					ExternalID:     args.String("external_id"),
					Status:         args.String("status"),
					System:         args.String("system"),
					Cursor:         args.String("cursor"),
					PerPage:        args.Int("per_page"),
				})
			}
		}).WithAnnotations(readOnly)
}

func searchCustomers(api API) tool.Operation {
	params := []tool.Param{
		{Name: "email", Type: tool.ParamString, Required: true, Description: "Email address to search for."},
	}
	return tool.NewOperation("search_customers",
		"Search ChartMogul API customers by email address.",
		append(params, cursorParams()...),
		func(args tool.Args) tool.Task[chartmogul.CustomerPage] {
			return func(ctx context.Context) (chartmogul.CustomerPage, error) {
				return api.SearchCustomers(ctx, chartmogul.SearchCustomersParams{
					Email:   args.String("email"),
					Cursor:  args.String("cursor"),
					PerPage: args.Int("per_page"),
				})
			}
		}).WithAnnotations(readOnly)
}

func createCustomer(api API) tool.Operation {
	return tool.NewOperation("create_customer",
		"Create a customer in the ChartMogul API. data must include data_source_uuid, external_id and name.",
		[]tool.Param{{Name: "data", Type: tool.ParamObject, Required: true, Description: "Customer attributes."}},
		func(args tool.Args) tool.Task[chartmogul.Customer] {
			return func(ctx context.Context) (chartmogul.Customer, error) {
				return api.CreateCustomer(ctx, args.Object("data"))
			}
		})
}

func retrieveCustomer(api API) tool.Operation {
	return tool.NewOperation("retrieve_customer",
		"Retrieve a customer from the ChartMogul API by UUID.",
		[]tool.Param{uuidParam("Customer UUID.")},
		func(args tool.Args) tool.Task[chartmogul.Customer] {
			return func(ctx context.Context) (chartmogul.Customer, error) {
				return api.RetrieveCustomer(ctx, args.String("uuid"))
			}
		}).WithAnnotations(readOnly)
}

func updateCustomer(api API) tool.Operation {
	return tool.NewOperation("update_customer",
		"Update attributes of a ChartMogul API customer.",
		[]tool.Param{
			uuidParam("Customer UUID."),
			{Name: "data", Type: tool.ParamObject, Required: true, Description: "Attributes to change."},
		},
		func(args tool.Args) tool.Task[chartmogul.Customer] {
			return func(ctx context.Context) (chartmogul.Customer, error) {
				return api.UpdateCustomer(ctx, args.String("uuid"), args.Object("data"))
			}
		}).WithAnnotations(tool.Annotations{Idempotent: true})
}

func deleteCustomer(api API) tool.Operation {
	return tool.NewOperation("delete_customer",
		"Delete a customer from the ChartMogul API. Returns true once deleted.",
		[]tool.Param{uuidParam("Customer UUID.")},
		func(args tool.Args) tool.Task[bool] {
			remove := tool.Task[struct{}](func(ctx context.Context) (struct{}, error) {
				return struct{}{}, api.DeleteCustomer(ctx, args.String("uuid"))
			})
			return tool.Then(remove, func(struct{}) bool { return true })
		}).WithAnnotations(tool.Annotations{Destructive: true, Idempotent: true})
}

func mergeCustomers(api API) tool.Operation {
	return tool.NewOperation("merge_customers",
		"Merge one ChartMogul API customer into another.",
		[]tool.Param{
			{Name: "from_uuid", Type: tool.ParamString, Required: true, Description: "Customer merged away."},
			{Name: "to_uuid", Type: tool.ParamString, Required: true, Description: "Customer that remains."},
		},
		func(args tool.Args) tool.Task[map[string]any] {
			return func(ctx context.Context) (map[string]any, error) {
				return api.MergeCustomers(ctx, args.String("from_uuid"), args.String("to_uuid"))
			}
		}).WithAnnotations(tool.Annotations{Destructive: true})
}

func unmergeCustomers(api API) tool.Operation {
	return tool.NewOperation("unmerge_customers",
		"Split an external customer back out of a merged ChartMogul API customer.",
		[]tool.Param{
			{Name: "customer_uuid", Type: tool.ParamString, Required: true, Description: "Merged customer UUID."},
			{Name: "data_source_uuid", Type: tool.ParamString, Required: true, Description: "Data source of the customer to split out."},
			{Name: "external_id", Type: tool.ParamString, Required: true, Description: "External ID of the customer to split out."},
			{Name: "move_to_new_customer", Type: tool.ParamStringArray, Required: true, Description: "Associated records to move, e.g. tasks, notes."},
		},
		func(args tool.Args) tool.Task[map[string]any] {
			return func(ctx context.Context) (map[string]any, error) {
				return api.UnmergeCustomer(ctx, chartmogul.UnmergeParams{
					CustomerUUID:      args.String("customer_uuid"),
					DataSourceUUID:    args.String("data_source_uuid"),
					ExternalID:        args.String("external_id"),
					MoveToNewCustomer: args.Strings("move_to_new_customer"),
				})
			}
		}).WithAnnotations(tool.Annotations{Destructive: true})
}
