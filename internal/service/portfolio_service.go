package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/valuation"
)

// Performance history window requested from the market-data provider.
const (
	PerformancePeriod   = "1Y"
	PerformanceInterval = "1d"
)

// performerCount is how many positions each end of the ranking reports.
const performerCount = 3

// PortfolioService answers read-only valuation queries. It never mutates
// state and never takes the Guard.
type PortfolioService struct {
	positions domain.PositionStore
	prices    *PriceService // optional
	logger    *slog.Logger
}

// NewPortfolioService creates a PortfolioService.
func NewPortfolioService(positions domain.PositionStore, prices *PriceService, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{positions: positions, prices: prices, logger: logger}
}

func (s *PortfolioService) snapshot(ctx context.Context, op string) ([]domain.Position, error) {
	positions, err := s.positions.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio_service: %s: %w", op, err)
	}
	return positions, nil
}

// Summary returns the headline portfolio figures.
func (s *PortfolioService) Summary(ctx context.Context) (valuation.Summary, error) {
	positions, err := s.snapshot(ctx, "summary")
	if err != nil {
		return valuation.Summary{}, err
	}
	return valuation.Summarize(positions), nil
}

// Allocation groups current value by asset type.
func (s *PortfolioService) Allocation(ctx context.Context) ([]valuation.Slice, error) {
	positions, err := s.snapshot(ctx, "allocation")
	if err != nil {
		return nil, err
	}
	return valuation.Allocation(positions), nil
}

// Breakdown groups invested value into the fixed categories.
func (s *PortfolioService) Breakdown(ctx context.Context) ([]valuation.Slice, error) {
	positions, err := s.snapshot(ctx, "breakdown")
	if err != nil {
		return nil, err
	}
	return valuation.Breakdown(positions), nil
}

// Performers ranks positions by percentage change.
func (s *PortfolioService) Performers(ctx context.Context) (valuation.Performers, error) {
	positions, err := s.snapshot(ctx, "performers")
	if err != nil {
		return valuation.Performers{}, err
	}
	return valuation.RankPerformers(positions, performerCount), nil
}

// Performance values the current holdings over the last year of daily
// prices. A symbol whose history cannot be fetched is skipped.
func (s *PortfolioService) Performance(ctx context.Context) ([]valuation.PerformancePoint, error) {
	positions, err := s.snapshot(ctx, "performance")
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 || s.prices == nil {
		return []valuation.PerformancePoint{}, nil
	}

	holdings := make([]valuation.Holding, 0, len(positions))
	for _, p := range positions {
		history, err := s.prices.History(ctx, p.Symbol, PerformancePeriod, PerformanceInterval)
		if err != nil {
			s.logger.WarnContext(ctx, "portfolio_service: history unavailable",
				slog.String("symbol", p.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		holdings = append(holdings, valuation.Holding{
			Symbol:   p.Symbol,
			Quantity: p.Quantity,
			History:  history,
		})
	}

	points := valuation.Performance(holdings)
	s.logger.DebugContext(ctx, "portfolio_service: performance computed",
		slog.Int("symbols", len(holdings)),
		slog.Int("points", len(points)),
	)
	return points, nil
}
