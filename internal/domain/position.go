package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Position is the holding of one symbol in the portfolio. A position only
// exists while Quantity > 0.
type Position struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`
	CompanyName  string          `json:"companyName"`
	Quantity     int64           `json:"quantity"`
	AverageCost  decimal.Decimal `json:"averageCost"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	// InvestedValue is the stored cost total. When zero, valuation falls
	// back to AverageCost * Quantity.
	InvestedValue decimal.Decimal `json:"investedValue"`
	AssetType     AssetType       `json:"assetType"`
	OpenedOn      time.Time       `json:"openedOn"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CurrentValue is the position marked at CurrentPrice.
func (p Position) CurrentValue() decimal.Decimal {
	return p.CurrentPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// CostBasis is the amount invested in the position.
func (p Position) CostBasis() decimal.Decimal {
	if !p.InvestedValue.IsZero() {
		return p.InvestedValue
	}
	return p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
}

// PL is the unrealized profit or loss at the current mark.
func (p Position) PL() decimal.Decimal {
	return p.CurrentPrice.Sub(p.AverageCost).Mul(decimal.NewFromInt(p.Quantity))
}

// PLPercentage is PL relative to AverageCost * Quantity, or zero when
// nothing was invested.
func (p Position) PLPercentage() decimal.Decimal {
	invested := p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
	return Percent(p.PL(), invested)
}

// Validate checks the invariants a stored position must satisfy.
func (p Position) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrValidation, p.Quantity)
	}
	if p.AverageCost.IsNegative() {
		return fmt.Errorf("%w: average cost must not be negative", ErrValidation)
	}
	if p.CurrentPrice.IsNegative() {
		return fmt.Errorf("%w: current price must not be negative", ErrValidation)
	}
	if p.InvestedValue.IsNegative() {
		return fmt.Errorf("%w: invested value must not be negative", ErrValidation)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// Percent returns part / whole * 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
