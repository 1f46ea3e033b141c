package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PricePoint is one sample of a symbol's price history.
type PricePoint struct {
	Date  string          `json:"date"` // YYYY-MM-DD
	Price decimal.Decimal `json:"price"`
}

// MarketData is the external quote and history provider. Calls may be slow
// or fail; the portfolio core never holds its lock while calling it.
type MarketData interface {
	Quote(ctx context.Context, symbol string, assetType AssetType) (decimal.Decimal, error)
	History(ctx context.Context, symbol, period, interval string) ([]PricePoint, error)
}
