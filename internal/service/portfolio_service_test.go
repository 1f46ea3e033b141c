package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

func TestPortfolio_Views(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "100000", ledgerOpts{})

	_, err := l.positions.BuyAsset(ctx, buy("AAPL", 10, "100"))
	require.NoError(t, err)
	_, err = l.positions.BuyAsset(ctx, BuyOrder{Symbol: "BTC", Quantity: 1, Price: dec("30000"), AssetType: domain.AssetCrypto})
	require.NoError(t, err)
	_, err = l.positions.UpdateCurrentPrice(ctx, "AAPL", dec("150"))
	require.NoError(t, err)
	_, err = l.positions.UpdateCurrentPrice(ctx, "BTC", dec("27000"))
	require.NoError(t, err)

	sum, err := l.portfolio.Summary(ctx)
	require.NoError(t, err)
	assertDec(t, "28500", sum.PortfolioValue)
	assertDec(t, "31000", sum.TotalInvested)
	assertDec(t, "-2500", sum.TotalGain)
	assert.Equal(t, 2, sum.Positions)

	alloc, err := l.portfolio.Allocation(ctx)
	require.NoError(t, err)
	require.Len(t, alloc, 2)
	assert.Equal(t, "Crypto", alloc[0].Name)

	br, err := l.portfolio.Breakdown(ctx)
	require.NoError(t, err)
	require.Len(t, br, 2)
	assert.Equal(t, "Stocks", br[0].Name)
	assertDec(t, "1000", br[0].Value)
	assert.Equal(t, "Crypto", br[1].Name)

	perf, err := l.portfolio.Performers(ctx)
	require.NoError(t, err)
	require.Len(t, perf.Top, 2)
	assert.Equal(t, "AAPL", perf.Top[0].Symbol)
	assert.Equal(t, "BTC", perf.Bottom[0].Symbol)
}

func TestPortfolio_EmptyBreakdownHasAllCategories(t *testing.T) {
	l := newLedger(t, "0", ledgerOpts{})
	br, err := l.portfolio.Breakdown(context.Background())
	require.NoError(t, err)
	require.Len(t, br, 4)
	for _, s := range br {
		assert.True(t, s.Value.IsZero())
	}
}

func TestPortfolio_PerformanceSkipsFailingSymbols(t *testing.T) {
	ctx := context.Background()
	market := &fakeMarket{history: map[string][]domain.PricePoint{
		"AAPL": {
			{Date: "2025-01-02", Price: dec("100.4")},
			{Date: "2025-01-03", Price: dec("101")},
		},
	}}
	l := newLedger(t, "10000", ledgerOpts{market: market})

	_, err := l.positions.BuyAsset(ctx, buy("AAPL", 2, "100"))
	require.NoError(t, err)
	_, err = l.positions.BuyAsset(ctx, buy("NOHIST", 1, "10"))
	require.NoError(t, err)

	points, err := l.portfolio.Performance(ctx)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-01-02", points[0].Date)
	assertDec(t, "201", points[0].Value)
	assertDec(t, "202", points[1].Value)
}

func TestPortfolio_PerformanceWithoutProvider(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "10000", ledgerOpts{})
	_, err := l.positions.BuyAsset(ctx, buy("AAPL", 2, "100"))
	require.NoError(t, err)

	points, err := l.portfolio.Performance(ctx)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestPortfolio_TotalValueMatchesSum(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, "0", ledgerOpts{})

	want := decimal.Zero
	for i, sym := range []string{"A", "B", "C", "D", "E"} {
		qty := int64(i + 1)
		price := decimal.NewFromFloat(1.25).Mul(decimal.NewFromInt(int64(i + 3)))
		_, err := l.positions.AddAsset(ctx, domain.Position{
			Symbol: sym, Quantity: qty, AverageCost: dec("1"), CurrentPrice: price,
		})
		require.NoError(t, err)
		want = want.Add(price.Mul(decimal.NewFromInt(qty)))
	}

	got, err := l.positions.GetTotalPortfolioValue(ctx)
	require.NoError(t, err)
	assertDec(t, want.String(), got)

	sum, err := l.portfolio.Summary(ctx)
	require.NoError(t, err)
	assertDec(t, want.String(), sum.PortfolioValue)
}
