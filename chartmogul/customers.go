package chartmogul

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultPerPage is the page size used when a list call does not set one.
const DefaultPerPage = 20

// ListCustomersParams filters ListCustomers.
type ListCustomersParams struct {
	DataSourceUUID string
	ExternalID     string
	Status         string
	System         string
	Cursor         string
	PerPage        int
}

// SearchCustomersParams selects customers by email.
type SearchCustomersParams struct {
	Email   string
	Cursor  string
	PerPage int
}

// UnmergeParams moves one external customer out of a merged customer.
type UnmergeParams struct {
	CustomerUUID      string   `json:"customer_uuid"`
	DataSourceUUID    string   `json:"data_source_uuid"`
	ExternalID        string   `json:"external_id"`
	MoveToNewCustomer []string `json:"move_to_new_customer,omitempty"`
}

func pageQuery(query url.Values, cursor string, perPage int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	query.Set("per_page", strconv.Itoa(perPage))
	setIf(query, "cursor", cursor)
}

// ListCustomers returns one page of customers.
func (c *Client) ListCustomers(ctx context.Context, params ListCustomersParams) (CustomerPage, error) {
	query := url.Values{}
	setIf(query, "data_source_uuid", params.DataSourceUUID)
	setIf(query, "external_id", params.ExternalID)
	setIf(query, "status", params.Status)
	setIf(query, "system", params.System)
	pageQuery(query, params.Cursor, params.PerPage)

	var page CustomerPage
	if err := c.get(ctx, "/customers", query, &page); err != nil {
		return CustomerPage{}, err
	}
	return page, nil
}

// SearchCustomers returns one page of customers matching an email address.
func (c *Client) SearchCustomers(ctx context.Context, params SearchCustomersParams) (CustomerPage, error) {
	query := url.Values{}
	query.Set("email", params.Email)
	pageQuery(query, params.Cursor, params.PerPage)

	var page CustomerPage
	if err := c.get(ctx, "/customers/search", query, &page); err != nil {
		return CustomerPage{}, err
	}
	return page, nil
}

// CreateCustomer creates a customer from a raw attribute mapping.
func (c *Client) CreateCustomer(ctx context.Context, data map[string]any) (Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", nil, data, &customer); err != nil {
		return Customer{}, err
	}
	return customer, nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, uuid string) (Customer, error) {
	var customer Customer
	if err := c.get(ctx, "/customers/"+escapeID(uuid), nil, &customer); err != nil {
		return Customer{}, err
	}
	return customer, nil
}

// UpdateCustomer patches the given attributes of a customer.
func (c *Client) UpdateCustomer(ctx context.Context, uuid string, data map[string]any) (Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodPatch, "/customers/"+escapeID(uuid), nil, data, &customer); err != nil {
		return Customer{}, err
	}
	return customer, nil
}

func (c *Client) DeleteCustomer(ctx context.Context, uuid string) error {
	return c.do(ctx, http.MethodDelete, "/customers/"+escapeID(uuid), nil, nil, nil)
}

// MergeCustomers merges the customer fromUUID into toUUID. The returned mapping is
// whatever the API echoes back, often empty.
func (c *Client) MergeCustomers(ctx context.Context, fromUUID, toUUID string) (map[string]any, error) {
	body := map[string]any{
		"from": map[string]string{"customer_uuid": fromUUID},
		"into": map[string]string{"customer_uuid": toUUID},
	}
	out := map[string]any{}
	if err := c.do(ctx, http.MethodPost, "/customers/merges", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnmergeCustomer splits an external customer back out of a merged record.
func (c *Client) UnmergeCustomer(ctx context.Context, params UnmergeParams) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, http.MethodPost, "/customers/unmerges", nil, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
