package oanda

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountSummary holds the figures the bot reports. The v20 API encodes
// amounts as strings, which decimal decodes directly.
type AccountSummary struct {
	ID                    string          `json:"id"`
	Currency              string          `json:"currency"`
	NAV                   decimal.Decimal `json:"NAV"`
	UnrealizedPL          decimal.Decimal `json:"unrealizedPL"`
	PL                    decimal.Decimal `json:"pl"`
	MarginCloseoutPercent decimal.Decimal `json:"marginCloseoutPercent"`
	OpenPositionCount     int             `json:"openPositionCount"`
}

func (c *Client) AccountSummary(ctx context.Context, accountID string) (*AccountSummary, error) {
	var resp struct {
		Account *AccountSummary `json:"account"`
	}
	if err := c.get(ctx, accountPath(accountID, "summary"), &resp); err != nil {
		return nil, fmt.Errorf("get account summary: %w", err)
	}
	if resp.Account == nil {
		return nil, fmt.Errorf("get account summary: response has no account")
	}
	return resp.Account, nil
}
