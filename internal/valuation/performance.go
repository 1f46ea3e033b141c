package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// Holding pairs a held quantity with the price history of its symbol.
type Holding struct {
	Symbol   string
	Quantity int64
	History  []domain.PricePoint
}

// PerformancePoint is the portfolio value on one date.
type PerformancePoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// Performance sums price * quantity across holdings per date. Points are
// sorted by date ascending and values rounded to whole currency units.
// Dates are compared as YYYY-MM-DD strings.
func Performance(holdings []Holding) []PerformancePoint {
	byDate := make(map[string]decimal.Decimal)
	for _, h := range holdings {
		qty := decimal.NewFromInt(h.Quantity)
		for _, pt := range h.History {
			if pt.Date == "" {
				continue
			}
			byDate[pt.Date] = byDate[pt.Date].Add(pt.Price.Mul(qty))
		}
	}

	out := make([]PerformancePoint, 0, len(byDate))
	for date, v := range byDate {
		out = append(out, PerformancePoint{Date: date, Value: v.Round(0)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
