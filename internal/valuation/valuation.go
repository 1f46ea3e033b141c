// Package valuation derives read-only portfolio figures from a snapshot of
// positions. Nothing here touches storage; callers pass the positions they
// read and get values back.
package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// Summary is the headline valuation of the portfolio.
type Summary struct {
	PortfolioValue decimal.Decimal `json:"portfolioValue"`
	TotalInvested  decimal.Decimal `json:"totalInvested"`
	TotalGain      decimal.Decimal `json:"totalGain"`
	GainPercentage decimal.Decimal `json:"gainPercentage"`
	Positions      int             `json:"positions"`
}

// Slice is one group of an allocation or breakdown.
type Slice struct {
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Performer is one ranked position.
type Performer struct {
	ID               int64            `json:"id"`
	Symbol           string           `json:"symbol"`
	CompanyName      string           `json:"companyName"`
	AssetType        domain.AssetType `json:"assetType"`
	CurrentValue     decimal.Decimal  `json:"currentValue"`
	InvestedValue    decimal.Decimal  `json:"investedValue"`
	PercentageChange decimal.Decimal  `json:"percentageChange"`
}

// Performers holds the best and worst positions by percentage change.
// Bottom is reported worst first.
type Performers struct {
	Top    []Performer `json:"topPerformers"`
	Bottom []Performer `json:"lowestPerformers"`
}

// TotalValue is the sum of currentPrice * quantity.
func TotalValue(positions []domain.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.CurrentValue())
	}
	return total
}

// TotalInvested is the sum of each position's cost basis.
func TotalInvested(positions []domain.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.CostBasis())
	}
	return total
}

// Summarize computes the headline figures. GainPercentage is zero when
// nothing is invested.
func Summarize(positions []domain.Position) Summary {
	value := TotalValue(positions)
	invested := TotalInvested(positions)
	gain := value.Sub(invested)
	return Summary{
		PortfolioValue: value,
		TotalInvested:  invested,
		TotalGain:      gain,
		GainPercentage: domain.Percent(gain, invested),
		Positions:      len(positions),
	}
}

// PercentageChange is (currentValue - invested) / invested * 100, or zero
// when invested is zero.
func PercentageChange(p domain.Position) decimal.Decimal {
	invested := p.CostBasis()
	return domain.Percent(p.CurrentValue().Sub(invested), invested)
}

// Allocation groups current value by asset type, largest first. Equal
// values are ordered by name.
func Allocation(positions []domain.Position) []Slice {
	groups := make(map[string]decimal.Decimal)
	for _, p := range positions {
		name := p.AssetType.String()
		groups[name] = groups[name].Add(p.CurrentValue())
	}

	total := TotalValue(positions)
	out := make([]Slice, 0, len(groups))
	for name, v := range groups {
		out = append(out, Slice{Name: name, Value: v, Percentage: domain.Percent(v, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Breakdown groups invested value into the fixed categories, in display
// order. Positions of an unknown asset type belong to no category and are
// left out. Categories with no investment are omitted, except that when every
// category is empty all of them are reported at zero.
func Breakdown(positions []domain.Position) []Slice {
	groups := make(map[string]decimal.Decimal, len(domain.BreakdownCategories))
	total := decimal.Zero
	for _, p := range positions {
		cat := p.AssetType.Category()
		if cat == "" {
			continue
		}
		groups[cat] = groups[cat].Add(p.CostBasis())
		total = total.Add(p.CostBasis())
	}

	var out []Slice
	for _, name := range domain.BreakdownCategories {
		v := groups[name]
		if !v.IsPositive() {
			continue
		}
		out = append(out, Slice{Name: name, Value: v, Percentage: domain.Percent(v, total)})
	}

	if len(out) == 0 {
		out = make([]Slice, 0, len(domain.BreakdownCategories))
		for _, name := range domain.BreakdownCategories {
			out = append(out, Slice{Name: name, Value: decimal.Zero, Percentage: decimal.Zero})
		}
	}
	return out
}

// RankPerformers sorts positions by percentage change, highest first, and
// returns the first n as Top and the last n, worst first, as Bottom. Ties
// keep the input order, so callers passing positions in insertion order get
// a reproducible ranking.
func RankPerformers(positions []domain.Position, n int) Performers {
	ranked := make([]Performer, 0, len(positions))
	for _, p := range positions {
		ranked = append(ranked, Performer{
			ID:               p.ID,
			Symbol:           p.Symbol,
			CompanyName:      p.CompanyName,
			AssetType:        p.AssetType,
			CurrentValue:     p.CurrentValue(),
			InvestedValue:    p.CostBasis(),
			PercentageChange: PercentageChange(p),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PercentageChange.GreaterThan(ranked[j].PercentageChange)
	})

	k := min(max(n, 0), len(ranked))
	top := append([]Performer{}, ranked[:k]...)

	tail := ranked[len(ranked)-k:]
	bottom := make([]Performer, 0, k)
	for i := len(tail) - 1; i >= 0; i-- {
		bottom = append(bottom, tail[i])
	}
	return Performers{Top: top, Bottom: bottom}
}
