package chartmogul

import (
	"context"
	"net/url"
)

// ListDataSourcesParams filters ListDataSources. Empty fields are not sent.
type ListDataSourcesParams struct {
	Name   string
	System string
}

// ListDataSources lists the billing systems connected to the account.
func (c *Client) ListDataSources(ctx context.Context, params ListDataSourcesParams) (DataSources, error) {
	query := url.Values{}
	setIf(query, "name", params.Name)
	setIf(query, "system", params.System)

	var resp struct {
		DataSources DataSources `json:"data_sources"`
	}
	if err := c.get(ctx, "/data_sources", query, &resp); err != nil {
		return nil, err
	}
	if resp.DataSources == nil {
		return DataSources{}, nil
	}
	return resp.DataSources, nil
}

// RetrieveDataSource returns one data source by UUID.
func (c *Client) RetrieveDataSource(ctx context.Context, uuid string) (DataSource, error) {
	var source DataSource
	if err := c.get(ctx, "/data_sources/"+escapeID(uuid), nil, &source); err != nil {
		return DataSource{}, err
	}
	return source, nil
}
