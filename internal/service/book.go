package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// BuyOrder describes a purchase at a caller-supplied fill price.
type BuyOrder struct {
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"companyName"`
	Quantity    int64            `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	AssetType   domain.AssetType `json:"assetType"`
}

// Cost is the cash a buy consumes.
func (o BuyOrder) Cost() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}

// Validate checks the order inputs.
func (o BuyOrder) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrValidation, o.Quantity)
	}
	return requirePositive("price", o.Price)
}

// openPosition builds the position created by the first buy of a symbol.
func openPosition(o BuyOrder, now time.Time) domain.Position {
	at := o.AssetType
	if at == "" {
		at = domain.AssetUnknown
	}
	return domain.Position{
		Symbol:        o.Symbol,
		CompanyName:   o.CompanyName,
		Quantity:      o.Quantity,
		AverageCost:   o.Price,
		CurrentPrice:  o.Price,
		InvestedValue: o.Cost(),
		AssetType:     at,
		OpenedOn:      now,
		UpdatedAt:     now,
	}
}

// applyBuy merges a buy into an existing position using the weighted-average
// cost. The stored cost total carries the exact sum so repeated buys do not
// accumulate division rounding. The mark is moved to the fill price.
func applyBuy(p domain.Position, o BuyOrder, now time.Time) domain.Position {
	total := p.CostBasis().Add(o.Cost())
	qty := p.Quantity + o.Quantity

	p.Quantity = qty
	p.AverageCost = total.Div(decimal.NewFromInt(qty))
	p.InvestedValue = total
	p.CurrentPrice = o.Price
	if p.CompanyName == "" {
		p.CompanyName = o.CompanyName
	}
	p.UpdatedAt = now
	return p
}

// applySell removes qty units from p. removed reports a full liquidation,
// in which case the returned position must be deleted rather than saved.
// The average cost of the remaining units is unchanged.
func applySell(p domain.Position, qty int64, now time.Time) (out domain.Position, removed bool, err error) {
	if qty > p.Quantity {
		return p, false, fmt.Errorf("%w: cannot sell %d of %s, holding %d",
			domain.ErrInvalidQuantity, qty, p.Symbol, p.Quantity)
	}
	if qty == p.Quantity {
		return p, true, nil
	}
	p.Quantity -= qty
	p.InvestedValue = p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
	p.UpdatedAt = now
	return p, false, nil
}
