package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pos(id int64, sym string, qty int64, avg, cur string, at domain.AssetType) domain.Position {
	return domain.Position{
		ID:           id,
		Symbol:       sym,
		Quantity:     qty,
		AverageCost:  d(avg),
		CurrentPrice: d(cur),
		AssetType:    at,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestTotalValue(t *testing.T) {
	positions := []domain.Position{
		pos(1, "AAPL", 10, "100", "180", domain.AssetStock),
		pos(2, "BTC", 2, "30000", "25000.5", domain.AssetCrypto),
		pos(3, "GLD", 3, "50", "0", domain.AssetCommodity),
	}
	assertDec(t, "51801", TotalValue(positions))
	assertDec(t, "0", TotalValue(nil))
}

func TestSummarize(t *testing.T) {
	positions := []domain.Position{
		pos(1, "AAPL", 15, "150", "180", domain.AssetStock),
		pos(2, "VTI", 10, "200", "190", domain.AssetMutualFund),
	}
	s := Summarize(positions)
	assertDec(t, "4600", s.PortfolioValue)
	assertDec(t, "4250", s.TotalInvested)
	assertDec(t, "350", s.TotalGain)
	assert.True(t, s.GainPercentage.Round(4).Equal(d("8.2353")), s.GainPercentage.String())
	assert.Equal(t, 2, s.Positions)
}

func TestSummarize_ZeroInvested(t *testing.T) {
	s := Summarize([]domain.Position{pos(1, "FREE", 5, "0", "10", domain.AssetStock)})
	assertDec(t, "50", s.TotalGain)
	assertDec(t, "0", s.GainPercentage)

	empty := Summarize(nil)
	assertDec(t, "0", empty.GainPercentage)
	assert.Equal(t, 0, empty.Positions)
}

func TestSummarize_UsesStoredInvestedValue(t *testing.T) {
	p := pos(1, "AAPL", 10, "100", "120", domain.AssetStock)
	p.InvestedValue = d("1100")
	s := Summarize([]domain.Position{p})
	assertDec(t, "1100", s.TotalInvested)
	assertDec(t, "100", s.TotalGain)
}

func TestPercentageChange(t *testing.T) {
	assertDec(t, "20", PercentageChange(pos(1, "A", 10, "100", "120", domain.AssetStock)))
	assertDec(t, "-50", PercentageChange(pos(1, "A", 10, "100", "50", domain.AssetStock)))
	assertDec(t, "0", PercentageChange(pos(1, "A", 10, "0", "50", domain.AssetStock)))
}

func TestAllocation(t *testing.T) {
	positions := []domain.Position{
		pos(1, "AAPL", 10, "100", "100", domain.AssetStock),
		pos(2, "BTC", 1, "500", "1000", domain.AssetCrypto),
		pos(3, "MSFT", 5, "100", "200", domain.AssetStock),
		pos(4, "GLD", 10, "100", "100", domain.AssetCommodity),
	}
	got := Allocation(positions)
	require.Len(t, got, 3)

	assert.Equal(t, "Stock", got[0].Name)
	assertDec(t, "2000", got[0].Value)
	assertDec(t, "50", got[0].Percentage)

	// Equal values fall back to name order.
	assert.Equal(t, "Commodity", got[1].Name)
	assert.Equal(t, "Crypto", got[2].Name)
	assertDec(t, "1000", got[2].Value)
}

func TestBreakdown_EmptyReportsAllCategories(t *testing.T) {
	got := Breakdown(nil)
	require.Len(t, got, 4)
	for i, name := range []string{"Stocks", "Mutual Funds", "Crypto", "Commodities"} {
		assert.Equal(t, name, got[i].Name)
		assertDec(t, "0", got[i].Value)
	}
}

func TestBreakdown_GroupsInvestedValue(t *testing.T) {
	positions := []domain.Position{
		pos(1, "AAPL", 10, "100", "500", domain.AssetStock),
		pos(2, "BTC", 1, "300", "1", domain.AssetCrypto),
		pos(3, "MSFT", 1, "100", "1", domain.ParseAssetType("stocks")),
		pos(4, "ODD", 2, "50", "1", domain.AssetUnknown),
	}
	got := Breakdown(positions)
	require.Len(t, got, 2)

	assert.Equal(t, "Stocks", got[0].Name)
	assertDec(t, "1100", got[0].Value)
	assert.Equal(t, "Crypto", got[1].Name)
	assertDec(t, "300", got[1].Value)
	for _, s := range got {
		assert.Contains(t, []string{"Stocks", "Mutual Funds", "Crypto", "Commodities"}, s.Name)
	}
}

func TestBreakdown_OnlyUnknownTypesReportsAllCategoriesAtZero(t *testing.T) {
	got := Breakdown([]domain.Position{pos(1, "ODD", 2, "50", "1", domain.AssetUnknown)})
	require.Len(t, got, 4)
	for _, s := range got {
		assertDec(t, "0", s.Value)
	}
}

func TestRankPerformers(t *testing.T) {
	positions := []domain.Position{
		pos(1, "A", 1, "100", "110", domain.AssetStock), // +10
		pos(2, "B", 1, "100", "150", domain.AssetStock), // +50
		pos(3, "C", 1, "100", "90", domain.AssetStock),  // -10
		pos(4, "D", 1, "100", "100", domain.AssetStock), // 0
		pos(5, "E", 1, "100", "50", domain.AssetStock),  // -50
	}
	got := RankPerformers(positions, 3)

	symbols := func(ps []Performer) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Symbol)
		}
		return out
	}
	assert.Equal(t, []string{"B", "A", "D"}, symbols(got.Top))
	assert.Equal(t, []string{"E", "C", "D"}, symbols(got.Bottom))
	assertDec(t, "50", got.Top[0].PercentageChange)
}

func TestRankPerformers_TiesKeepInsertionOrder(t *testing.T) {
	positions := []domain.Position{
		pos(1, "X", 1, "100", "100", domain.AssetStock),
		pos(2, "Y", 1, "100", "100", domain.AssetStock),
		pos(3, "Z", 1, "100", "100", domain.AssetStock),
		pos(4, "W", 1, "100", "100", domain.AssetStock),
	}
	got := RankPerformers(positions, 3)
	require.Len(t, got.Top, 3)
	assert.Equal(t, "X", got.Top[0].Symbol)
	assert.Equal(t, "Z", got.Top[2].Symbol)
	assert.Equal(t, "W", got.Bottom[0].Symbol)
	assert.Equal(t, "Y", got.Bottom[2].Symbol)
}

func TestRankPerformers_FewerThanN(t *testing.T) {
	got := RankPerformers([]domain.Position{pos(1, "A", 1, "1", "2", domain.AssetStock)}, 3)
	assert.Len(t, got.Top, 1)
	assert.Len(t, got.Bottom, 1)

	empty := RankPerformers(nil, 3)
	assert.Empty(t, empty.Top)
	assert.Empty(t, empty.Bottom)
}

func TestPerformance(t *testing.T) {
	holdings := []Holding{
		{Symbol: "AAPL", Quantity: 10, History: []domain.PricePoint{
			{Date: "2025-01-03", Price: d("101.26")},
			{Date: "2025-01-02", Price: d("100")},
		}},
		{Symbol: "VTI", Quantity: 2, History: []domain.PricePoint{
			{Date: "2025-01-02", Price: d("250.4")},
			{Date: "", Price: d("1")},
		}},
	}
	got := Performance(holdings)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-02", got[0].Date)
	assertDec(t, "1501", got[0].Value) // 1000 + 500.8
	assert.Equal(t, "2025-01-03", got[1].Date)
	assertDec(t, "1013", got[1].Value) // 1012.6
}
