package oanda

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
	Flat  Side = "Flat"
)

type PositionSide struct {
	Units        decimal.Decimal `json:"units"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
}

type Position struct {
	Instrument   string          `json:"instrument"`
	Long         PositionSide    `json:"long"`
	Short        PositionSide    `json:"short"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
}

// Side reports which leg of the position is open. A position with no units
// on either leg is Flat.
func (p Position) Side() Side {
	switch {
	case !p.Long.Units.IsZero():
		return Long
	case !p.Short.Units.IsZero():
		return Short
	default:
		return Flat
	}
}

// Open returns the active leg. Units are absolute; OANDA reports short units
// as negative numbers.
func (p Position) Open() (units int64, unrealizedPL decimal.Decimal) {
	switch p.Side() {
	case Long:
		return p.Long.Units.Abs().IntPart(), p.Long.UnrealizedPL
	case Short:
		return p.Short.Units.Abs().IntPart(), p.Short.UnrealizedPL
	default:
		return 0, decimal.Zero
	}
}

func (c *Client) OpenPositions(ctx context.Context, accountID string) ([]Position, error) {
	var resp struct {
		Positions []Position `json:"positions"`
	}
	if err := c.get(ctx, accountPath(accountID, "openPositions"), &resp); err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	return resp.Positions, nil
}
