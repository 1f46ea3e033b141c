package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// PriceService fronts the market-data provider with the mark cache. It never
// runs under the Guard.
type PriceService struct {
	cache  domain.PriceCache // optional
	market domain.MarketData // optional
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewPriceService creates a PriceService. Cached marks older than maxAge
// are refetched; a zero maxAge always refetches when a provider is set.
func NewPriceService(
	cache domain.PriceCache,
	market domain.MarketData,
	maxAge time.Duration,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		cache:  cache,
		market: market,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Quote returns the latest price for symbol.
func (s *PriceService) Quote(ctx context.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error) {
	var (
		cached   decimal.Decimal
		cachedAt time.Time
		haveMark bool
	)
	if s.cache != nil {
		price, ts, err := s.cache.GetPrice(ctx, symbol)
		if err == nil && price.IsPositive() {
			cached, cachedAt, haveMark = price, ts, true
			if s.market == nil || s.now().Sub(ts) <= s.maxAge {
				return price, nil
			}
		}
	}

	if s.market == nil {
		return decimal.Zero, fmt.Errorf("price_service: quote %s: %w", symbol, domain.ErrNotFound)
	}

	price, err := s.market.Quote(ctx, symbol, assetType)
	if err != nil {
		if haveMark {
			s.logger.WarnContext(ctx, "price_service: provider failed, using cached mark",
				slog.String("symbol", symbol),
				slog.Time("cached_at", cachedAt),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		return decimal.Zero, fmt.Errorf("price_service: quote %s: %w", symbol, err)
	}

	s.Remember(ctx, symbol, price, s.now().UTC())
	return price, nil
}

// Remember stores price as the latest mark for symbol.
func (s *PriceService) Remember(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPrice(ctx, symbol, price, ts); err != nil {
		s.logger.WarnContext(ctx, "price_service: cache mark failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
}

// History returns the provider's price history for symbol.
func (s *PriceService) History(ctx context.Context, symbol, period, interval string) ([]domain.PricePoint, error) {
	if s.market == nil {
		return nil, fmt.Errorf("price_service: history %s: no market data provider", symbol)
	}
	points, err := s.market.History(ctx, symbol, period, interval)
	if err != nil {
		return nil, fmt.Errorf("price_service: history %s: %w", symbol, err)
	}
	return points, nil
}
