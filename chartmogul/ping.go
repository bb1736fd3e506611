package chartmogul

import (
	"context"
	"fmt"
)

// Ping verifies that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Data string `json:"data"`
	}
	if err := c.get(ctx, "/ping", nil, &resp); err != nil {
		return err
	}
	if resp.Data != "pong!" {
		return fmt.Errorf("chartmogul: unexpected ping response %q", resp.Data)
	}
	return nil
}
