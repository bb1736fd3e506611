package chartmogul

import "context"

// RetrieveAccount returns the account the API key belongs to.
func (c *Client) RetrieveAccount(ctx context.Context) (Account, error) {
	var account Account
	if err := c.get(ctx, "/account", nil, &account); err != nil {
		return Account{}, err
	}
	return account, nil
}
