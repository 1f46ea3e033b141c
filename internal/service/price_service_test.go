package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

type mark struct {
	price decimal.Decimal
	at    time.Time
}

// mapCache is an in-memory domain.PriceCache.
type mapCache struct {
	mu    sync.Mutex
	marks map[string]mark
}

func newMapCache() *mapCache { return &mapCache{marks: map[string]mark{}} }

func (c *mapCache) SetPrice(_ context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[symbol] = mark{price, ts}
	return nil
}

func (c *mapCache) GetPrice(_ context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.marks[symbol]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	return m.price, m.at, nil
}

func TestPriceService_FreshCacheSkipsProvider(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	market := &fakeMarket{quotes: map[string]decimal.Decimal{"AAPL": dec("200")}}
	svc := NewPriceService(cache, market, time.Minute, discardLogger())

	require.NoError(t, cache.SetPrice(ctx, "AAPL", dec("190"), time.Now()))
	p, err := svc.Quote(ctx, "AAPL", domain.AssetStock)
	require.NoError(t, err)
	assertDec(t, "190", p)
	assert.Equal(t, 0, market.calls)
}

func TestPriceService_StaleCacheRefetches(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	market := &fakeMarket{quotes: map[string]decimal.Decimal{"AAPL": dec("200")}}
	svc := NewPriceService(cache, market, time.Minute, discardLogger())

	require.NoError(t, cache.SetPrice(ctx, "AAPL", dec("190"), time.Now().Add(-time.Hour)))
	p, err := svc.Quote(ctx, "AAPL", domain.AssetStock)
	require.NoError(t, err)
	assertDec(t, "200", p)
	assert.Equal(t, 1, market.calls)

	cached, _, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assertDec(t, "200", cached)
}

func TestPriceService_ProviderFailureFallsBackToMark(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	svc := NewPriceService(cache, &fakeMarket{}, time.Minute, discardLogger())

	require.NoError(t, cache.SetPrice(ctx, "AAPL", dec("190"), time.Now().Add(-time.Hour)))
	p, err := svc.Quote(ctx, "AAPL", domain.AssetStock)
	require.NoError(t, err)
	assertDec(t, "190", p)

	_, err = svc.Quote(ctx, "MSFT", domain.AssetStock)
	require.Error(t, err)
}

func TestPriceService_NoSources(t *testing.T) {
	svc := NewPriceService(nil, nil, time.Minute, discardLogger())

	_, err := svc.Quote(context.Background(), "AAPL", domain.AssetStock)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.History(context.Background(), "AAPL", PerformancePeriod, PerformanceInterval)
	assert.Error(t, err)
}

func TestPriceService_HistoryWrapsProviderError(t *testing.T) {
	svc := NewPriceService(nil, &fakeMarket{}, 0, discardLogger())
	_, err := svc.History(context.Background(), "AAPL", "1Y", "1d")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "AAPL")
}
