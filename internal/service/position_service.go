package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/valuation"
)

// SellResult reports the outcome of a sell. Position is nil when the sale
// liquidated the holding.
type SellResult struct {
	Position    *domain.Position   `json:"position"`
	Removed     bool               `json:"removed"`
	Price       decimal.Decimal    `json:"price"`
	Proceeds    decimal.Decimal    `json:"proceeds"`
	Balance     decimal.Decimal    `json:"balance"`
	Transaction domain.Transaction `json:"transaction"`
}

// PositionService owns the position book. Buy and sell move cash through the
// WalletService and record fills through the TransactionService, all inside
// one storage transaction under the Guard.
type PositionService struct {
	store  domain.Store
	guard  *Guard
	wallet *WalletService
	log    *TransactionService
	prices *PriceService // optional
	events emitter
	logger *slog.Logger
	now    func() time.Time
}

// NewPositionService creates a PositionService. prices may be nil, in which
// case RefreshMarks is a no-op.
func NewPositionService(
	store domain.Store,
	guard *Guard,
	wallet *WalletService,
	txlog *TransactionService,
	prices *PriceService,
	sc SideChannels,
	logger *slog.Logger,
) *PositionService {
	return &PositionService{
		store:  store,
		guard:  guard,
		wallet: wallet,
		log:    txlog,
		prices: prices,
		events: newEmitter(sc, "position_service", logger),
		logger: logger,
		now:    time.Now,
	}
}

// BuyAsset debits the wallet, opens or grows the position and appends a BUY
// fill. Either all three happen or none do.
func (s *PositionService) BuyAsset(ctx context.Context, o BuyOrder) (domain.Position, error) {
	o.Symbol = domain.NormalizeSymbol(o.Symbol)
	if err := o.Validate(); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: buy: %w", err)
	}

	var (
		pos     domain.Position
		fill    domain.Transaction
		balance decimal.Decimal
	)
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			now := s.now().UTC()

			var err error
			if balance, err = s.wallet.debit(ctx, tx, o.Cost()); err != nil {
				return err
			}

			existing, err := tx.Positions().FindBySymbol(ctx, o.Symbol)
			switch {
			case err == nil:
				pos = applyBuy(existing, o, now)
			case errors.Is(err, domain.ErrNotFound):
				pos = openPosition(o, now)
			default:
				return fmt.Errorf("find %s: %w", o.Symbol, err)
			}

			if pos, err = tx.Positions().Save(ctx, pos); err != nil {
				return fmt.Errorf("save %s: %w", o.Symbol, err)
			}

			fill, err = s.log.append(ctx, tx, domain.Transaction{
				Symbol:    o.Symbol,
				Quantity:  o.Quantity,
				Price:     o.Price,
				Type:      domain.TransactionBuy,
				Timestamp: now,
			})
			return err
		})
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: buy %s: %w", o.Symbol, err)
	}

	s.afterFill(ctx, fill, balance)
	s.wallet.checkLowBalance(ctx, balance)
	return pos, nil
}

// SellAsset sells quantity units of symbol at the position's current mark,
// credits the proceeds and appends a SELL fill. Selling the whole holding
// removes the position.
func (s *PositionService) SellAsset(ctx context.Context, symbol string, quantity int64) (SellResult, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if quantity <= 0 {
		return SellResult{}, fmt.Errorf("position_service: sell %s: %w: quantity must be positive, got %d",
			symbol, domain.ErrValidation, quantity)
	}

	var res SellResult
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			now := s.now().UTC()

			held, err := tx.Positions().FindBySymbol(ctx, symbol)
			if err != nil {
				return err
			}
			after, removed, err := applySell(held, quantity, now)
			if err != nil {
				return err
			}

			price := held.CurrentPrice
			proceeds := price.Mul(decimal.NewFromInt(quantity))

			if removed {
				err = tx.Positions().DeleteByID(ctx, held.ID)
			} else {
				after, err = tx.Positions().Save(ctx, after)
			}
			if err != nil {
				return fmt.Errorf("update position: %w", err)
			}

			balance, err := s.wallet.credit(ctx, tx, proceeds)
			if err != nil {
				return err
			}

			fill, err := s.log.append(ctx, tx, domain.Transaction{
				Symbol:    symbol,
				Quantity:  quantity,
				Price:     price,
				Type:      domain.TransactionSell,
				Timestamp: now,
			})
			if err != nil {
				return err
			}

			res = SellResult{
				Removed:     removed,
				Price:       price,
				Proceeds:    proceeds,
				Balance:     balance,
				Transaction: fill,
			}
			if !removed {
				res.Position = &after
			}
			return nil
		})
	})
	if err != nil {
		return SellResult{}, fmt.Errorf("position_service: sell %s: %w", symbol, err)
	}

	s.afterFill(ctx, res.Transaction, res.Balance)
	return res, nil
}

// AddAsset inserts a position directly, without touching the wallet or the
// log. It is used for seeding. A missing mark defaults to the average cost
// and the stored cost total is always AverageCost * Quantity.
func (s *PositionService) AddAsset(ctx context.Context, p domain.Position) (domain.Position, error) {
	now := s.now().UTC()
	p.ID = 0
	p.Symbol = domain.NormalizeSymbol(p.Symbol)
	if p.AssetType == "" {
		p.AssetType = domain.AssetUnknown
	}
	if p.OpenedOn.IsZero() {
		p.OpenedOn = now
	}
	p.UpdatedAt = now
	if p.CurrentPrice.IsZero() {
		p.CurrentPrice = p.AverageCost
	}
	if err := p.Validate(); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: add %s: %w", p.Symbol, err)
	}
	// A sell fills at the mark, so a seeded position needs one.
	if err := requirePositive("current price", p.CurrentPrice); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: add %s: %w", p.Symbol, err)
	}
	p.InvestedValue = p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))

	var stored domain.Position
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.store.Positions().Save(ctx, p)
		return err
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: add %s: %w", p.Symbol, err)
	}

	s.events.audit(ctx, "asset_added", map[string]any{
		"id":       stored.ID,
		"symbol":   stored.Symbol,
		"quantity": stored.Quantity,
	})
	return stored, nil
}

// RemoveAsset deletes the position with the given id.
func (s *PositionService) RemoveAsset(ctx context.Context, id int64) error {
	var removed domain.Position
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			var err error
			if removed, err = tx.Positions().FindByID(ctx, id); err != nil {
				return err
			}
			return tx.Positions().DeleteByID(ctx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("position_service: remove %d: %w", id, err)
	}

	s.events.audit(ctx, "asset_removed", map[string]any{"id": id, "symbol": removed.Symbol})
	return nil
}

// UpdateQuantity overrides the held quantity. The average cost per unit is
// kept and the stored cost total is recomputed from it.
func (s *PositionService) UpdateQuantity(ctx context.Context, id int64, quantity int64) (domain.Position, error) {
	if quantity <= 0 {
		return domain.Position{}, fmt.Errorf("position_service: update quantity %d: %w: quantity must be positive, got %d",
			id, domain.ErrValidation, quantity)
	}
	return s.mutate(ctx, fmt.Sprintf("update quantity %d", id),
		func(ps domain.PositionStore) (domain.Position, error) { return ps.FindByID(ctx, id) },
		func(p *domain.Position) {
			p.Quantity = quantity
			p.InvestedValue = p.AverageCost.Mul(decimal.NewFromInt(quantity))
		},
	)
}

// UpdateCurrentPrice moves the mark of symbol. Quantity and cost are left
// alone.
func (s *PositionService) UpdateCurrentPrice(ctx context.Context, symbol string, price decimal.Decimal) (domain.Position, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := requirePositive("price", price); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: update price %s: %w", symbol, err)
	}

	p, err := s.mutate(ctx, "update price "+symbol,
		func(ps domain.PositionStore) (domain.Position, error) { return ps.FindBySymbol(ctx, symbol) },
		func(p *domain.Position) { p.CurrentPrice = price },
	)
	if err != nil {
		return domain.Position{}, err
	}

	if s.prices != nil {
		s.prices.Remember(ctx, symbol, price, p.UpdatedAt)
	}
	s.events.publish(ctx, domain.ChannelPrices, map[string]any{
		"event":  "mark_updated",
		"symbol": symbol,
		"price":  price.String(),
	})
	return p, nil
}

// mutate loads one position, applies change and saves it under the guard.
func (s *PositionService) mutate(
	ctx context.Context,
	op string,
	load func(domain.PositionStore) (domain.Position, error),
	change func(*domain.Position),
) (domain.Position, error) {
	var out domain.Position
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			p, err := load(tx.Positions())
			if err != nil {
				return err
			}
			change(&p)
			p.UpdatedAt = s.now().UTC()
			out, err = tx.Positions().Save(ctx, p)
			return err
		})
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: %s: %w", op, err)
	}
	return out, nil
}

// GetAllAssets returns every position in insertion order.
func (s *PositionService) GetAllAssets(ctx context.Context) ([]domain.Position, error) {
	positions, err := s.store.Positions().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("position_service: list: %w", err)
	}
	return positions, nil
}

// GetAssetByID returns one position.
func (s *PositionService) GetAssetByID(ctx context.Context, id int64) (domain.Position, error) {
	p, err := s.store.Positions().FindByID(ctx, id)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: get %d: %w", id, err)
	}
	return p, nil
}

// GetAssetBySymbol returns the position held for symbol.
func (s *PositionService) GetAssetBySymbol(ctx context.Context, symbol string) (domain.Position, error) {
	symbol = domain.NormalizeSymbol(symbol)
	p, err := s.store.Positions().FindBySymbol(ctx, symbol)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: get %s: %w", symbol, err)
	}
	return p, nil
}

// CalculatePL is (currentPrice - averageCost) * quantity for one position.
func (s *PositionService) CalculatePL(ctx context.Context, id int64) (decimal.Decimal, error) {
	p, err := s.GetAssetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return p.PL(), nil
}

// CalculatePLBySymbol is CalculatePL keyed by symbol.
func (s *PositionService) CalculatePLBySymbol(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p, err := s.GetAssetBySymbol(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return p.PL(), nil
}

// CalculatePLPercentage is PL relative to averageCost * quantity, zero when
// that is zero.
func (s *PositionService) CalculatePLPercentage(ctx context.Context, id int64) (decimal.Decimal, error) {
	p, err := s.GetAssetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return p.PLPercentage(), nil
}

// GetTotalPortfolioValue is the sum of currentPrice * quantity.
func (s *PositionService) GetTotalPortfolioValue(ctx context.Context) (decimal.Decimal, error) {
	positions, err := s.GetAllAssets(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return valuation.TotalValue(positions), nil
}

// RefreshMarks re-marks every held position through the PriceService.
// Quotes are fetched before the guard is taken; symbols that cannot be quoted
// keep their mark. It returns the number of positions updated.
func (s *PositionService) RefreshMarks(ctx context.Context) (int, error) {
	if s.prices == nil {
		return 0, nil
	}
	positions, err := s.GetAllAssets(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, p := range positions {
		price, err := s.prices.Quote(ctx, p.Symbol, p.AssetType)
		if err != nil {
			s.logger.WarnContext(ctx, "position_service: quote failed",
				slog.String("symbol", p.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !price.IsPositive() || price.Equal(p.CurrentPrice) {
			continue
		}

		if _, err := s.UpdateCurrentPrice(ctx, p.Symbol, price); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // sold while quoting
			}
			return updated, err
		}
		updated++
	}

	s.logger.InfoContext(ctx, "position_service: marks refreshed",
		slog.Int("updated", updated),
		slog.Int("held", len(positions)),
	)
	return updated, nil
}

// afterFill emits the post-commit side effects of a buy or sell.
func (s *PositionService) afterFill(ctx context.Context, fill domain.Transaction, balance decimal.Decimal) {
	s.events.publish(ctx, domain.ChannelTrades, map[string]any{
		"event":     EventTradeFilled,
		"id":        fill.ID,
		"symbol":    fill.Symbol,
		"type":      string(fill.Type),
		"quantity":  fill.Quantity,
		"price":     fill.Price.String(),
		"balance":   balance.String(),
		"timestamp": fill.Timestamp.Format(time.RFC3339),
	})

	detail := transactionDetail(fill)
	detail["balance"] = balance.String()
	event := "asset_bought"
	if fill.Type == domain.TransactionSell {
		event = "asset_sold"
	}
	s.events.audit(ctx, event, detail)

	currency := s.wallet.cfg.Currency
	s.events.notify(ctx, EventTradeFilled,
		fmt.Sprintf("%s %s", fill.Type, fill.Symbol),
		fmt.Sprintf("%d @ %s (total %s), balance %s",
			fill.Quantity,
			domain.FormatMoney(fill.Price, currency),
			domain.FormatMoney(fill.Amount(), currency),
			domain.FormatMoney(balance, currency),
		),
	)

	s.logger.InfoContext(ctx, "position_service: trade filled",
		slog.Int64("transaction_id", fill.ID),
		slog.String("symbol", fill.Symbol),
		slog.String("type", string(fill.Type)),
		slog.Int64("quantity", fill.Quantity),
		slog.String("price", fill.Price.String()),
		slog.String("balance", balance.String()),
	)
}
