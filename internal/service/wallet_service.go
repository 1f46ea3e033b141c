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

// WalletConfig holds the wallet's display and alerting settings.
type WalletConfig struct {
	Currency            string
	LowBalanceThreshold decimal.Decimal // zero disables the alert
}

// WalletService owns the cash balance. credit and debit are the only
// mutators; the position service reaches the wallet through them.
type WalletService struct {
	store  domain.Store
	guard  *Guard
	cfg    WalletConfig
	events emitter
	logger *slog.Logger
	now    func() time.Time
}

// NewWalletService creates a WalletService.
func NewWalletService(
	store domain.Store,
	guard *Guard,
	cfg WalletConfig,
	sc SideChannels,
	logger *slog.Logger,
) *WalletService {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &WalletService{
		store:  store,
		guard:  guard,
		cfg:    cfg,
		events: newEmitter(sc, "wallet_service", logger),
		logger: logger,
		now:    time.Now,
	}
}

// EnsureWallet creates the wallet with the opening balance if it does not
// exist and returns the stored wallet either way.
func (s *WalletService) EnsureWallet(ctx context.Context, initial decimal.Decimal) (domain.Wallet, error) {
	if initial.IsNegative() {
		return domain.Wallet{}, fmt.Errorf("wallet_service: ensure wallet: %w: negative opening balance", domain.ErrValidation)
	}

	var w domain.Wallet
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			existing, err := tx.Wallets().FindByID(ctx, domain.WalletID)
			if err == nil {
				w = existing
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			w = domain.Wallet{ID: domain.WalletID, Balance: initial, UpdatedAt: s.now().UTC()}
			return tx.Wallets().Save(ctx, w)
		})
	})
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("wallet_service: ensure wallet: %w", err)
	}
	return w, nil
}

// GetBalance returns the current cash balance.
func (s *WalletService) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	w, err := s.store.Wallets().FindByID(ctx, domain.WalletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet_service: get balance: %w", err)
	}
	return w.Balance, nil
}

// AddMoney credits amount and returns the new balance.
func (s *WalletService) AddMoney(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive("amount", amount); err != nil {
		return decimal.Zero, fmt.Errorf("wallet_service: add money: %w", err)
	}

	var balance decimal.Decimal
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			var err error
			balance, err = s.credit(ctx, tx, amount)
			return err
		})
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet_service: add money: %w", err)
	}

	s.afterChange(ctx, "wallet_credited", amount, balance)
	return balance, nil
}

// DeductMoney debits amount and returns the new balance. It fails with
// domain.ErrInsufficientFunds when amount exceeds the balance.
func (s *WalletService) DeductMoney(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive("amount", amount); err != nil {
		return decimal.Zero, fmt.Errorf("wallet_service: deduct money: %w", err)
	}

	var balance decimal.Decimal
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			var err error
			balance, err = s.debit(ctx, tx, amount)
			return err
		})
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet_service: deduct money: %w", err)
	}

	s.afterChange(ctx, "wallet_debited", amount, balance)
	s.checkLowBalance(ctx, balance)
	return balance, nil
}

// GetWalletSummary reports the balance next to the value of the holdings.
// Wallet and positions are read from one snapshot.
func (s *WalletService) GetWalletSummary(ctx context.Context) (domain.WalletSummary, error) {
	var (
		w         domain.Wallet
		positions []domain.Position
	)
	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		var err error
		if w, err = tx.Wallets().FindByID(ctx, domain.WalletID); err != nil {
			return err
		}
		positions, err = tx.Positions().FindAll(ctx)
		return err
	})
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("wallet_service: get summary: %w", err)
	}

	market := valuation.TotalValue(positions)
	return domain.WalletSummary{
		Balance:          w.Balance,
		InvestedValue:    valuation.TotalInvested(positions),
		MarketValue:      market,
		NetWorth:         w.Balance.Add(market),
		FormattedBalance: domain.FormatMoney(w.Balance, s.cfg.Currency),
		Currency:         s.cfg.Currency,
	}, nil
}

// credit adds amount to the wallet inside tx.
func (s *WalletService) credit(ctx context.Context, tx domain.Store, amount decimal.Decimal) (decimal.Decimal, error) {
	w, err := tx.Wallets().FindByID(ctx, domain.WalletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: %w", err)
	}
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = s.now().UTC()
	if err := tx.Wallets().Save(ctx, w); err != nil {
		return decimal.Zero, fmt.Errorf("credit: %w", err)
	}
	return w.Balance, nil
}

// debit subtracts amount from the wallet inside tx, refusing to overdraw.
func (s *WalletService) debit(ctx context.Context, tx domain.Store, amount decimal.Decimal) (decimal.Decimal, error) {
	w, err := tx.Wallets().FindByID(ctx, domain.WalletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit: %w", err)
	}
	if amount.GreaterThan(w.Balance) {
		return decimal.Zero, fmt.Errorf("debit %s from %s: %w", amount, w.Balance, domain.ErrInsufficientFunds)
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = s.now().UTC()
	if err := tx.Wallets().Save(ctx, w); err != nil {
		return decimal.Zero, fmt.Errorf("debit: %w", err)
	}
	return w.Balance, nil
}

func (s *WalletService) afterChange(ctx context.Context, event string, amount, balance decimal.Decimal) {
	s.events.publish(ctx, domain.ChannelWallet, map[string]any{
		"event":   event,
		"amount":  amount.String(),
		"balance": balance.String(),
	})
	s.events.audit(ctx, event, map[string]any{
		"amount":  amount.String(),
		"balance": balance.String(),
	})
	s.logger.InfoContext(ctx, "wallet_service: "+event,
		slog.String("amount", amount.String()),
		slog.String("balance", balance.String()),
	)
}

// checkLowBalance alerts when balance has dropped under the threshold.
func (s *WalletService) checkLowBalance(ctx context.Context, balance decimal.Decimal) {
	if !s.cfg.LowBalanceThreshold.IsPositive() || !balance.LessThan(s.cfg.LowBalanceThreshold) {
		return
	}
	s.events.notify(ctx, EventLowBalance, "Low wallet balance",
		fmt.Sprintf("Balance is %s, below the %s threshold.",
			domain.FormatMoney(balance, s.cfg.Currency),
			domain.FormatMoney(s.cfg.LowBalanceThreshold, s.cfg.Currency),
		),
	)
}

func requirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return fmt.Errorf("%w: %s must be positive, got %s", domain.ErrValidation, field, v)
	}
	return nil
}
