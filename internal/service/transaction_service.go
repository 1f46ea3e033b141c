package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// TransactionService owns the transaction log. Buys and sells append through
// it; Update and Delete exist only for administrative corrections.
type TransactionService struct {
	store  domain.Store
	guard  *Guard
	events emitter
	logger *slog.Logger
	now    func() time.Time
}

// NewTransactionService creates a TransactionService.
func NewTransactionService(
	store domain.Store,
	guard *Guard,
	sc SideChannels,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{
		store:  store,
		guard:  guard,
		events: newEmitter(sc, "transaction_service", logger),
		logger: logger,
		now:    time.Now,
	}
}

// AddTransaction appends t to the log and returns it with its assigned ID.
func (s *TransactionService) AddTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	t.ID = 0
	var stored domain.Transaction
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.append(ctx, s.store, t)
		return err
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction_service: add: %w", err)
	}

	s.events.audit(ctx, "transaction_added", transactionDetail(stored))
	return stored, nil
}

// GetAllTransactions returns the whole log in insertion order.
func (s *TransactionService) GetAllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.store.Transactions().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction_service: list: %w", err)
	}
	return txs, nil
}

// GetTransactionsBySymbol returns the fills for one symbol.
func (s *TransactionService) GetTransactionsBySymbol(ctx context.Context, symbol string) ([]domain.Transaction, error) {
	symbol = domain.NormalizeSymbol(symbol)
	txs, err := s.store.Transactions().FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("transaction_service: list %s: %w", symbol, err)
	}
	return txs, nil
}

// GetTransactionByID returns a single fill.
func (s *TransactionService) GetTransactionByID(ctx context.Context, id int64) (domain.Transaction, error) {
	t, err := s.store.Transactions().FindByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction_service: get %d: %w", id, err)
	}
	return t, nil
}

// UpdateTransaction overwrites the fill stored under id.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, t domain.Transaction) (domain.Transaction, error) {
	t.ID = id
	t.Symbol = domain.NormalizeSymbol(t.Symbol)
	if err := t.Validate(); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction_service: update %d: %w", id, err)
	}

	var stored domain.Transaction
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			existing, err := tx.Transactions().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if t.Timestamp.IsZero() {
				t.Timestamp = existing.Timestamp
			}
			stored, err = tx.Transactions().Save(ctx, t)
			return err
		})
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction_service: update %d: %w", id, err)
	}

	s.events.audit(ctx, "transaction_updated", transactionDetail(stored))
	s.logger.InfoContext(ctx, "transaction_service: transaction corrected", slog.Int64("id", id))
	return stored, nil
}

// DeleteTransaction removes the fill stored under id.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx domain.Store) error {
			if _, err := tx.Transactions().FindByID(ctx, id); err != nil {
				return err
			}
			return tx.Transactions().DeleteByID(ctx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("transaction_service: delete %d: %w", id, err)
	}

	s.events.audit(ctx, "transaction_deleted", map[string]any{"id": id})
	s.logger.InfoContext(ctx, "transaction_service: transaction deleted", slog.Int64("id", id))
	return nil
}

// append validates t and writes it through st.
func (s *TransactionService) append(ctx context.Context, st domain.Store, t domain.Transaction) (domain.Transaction, error) {
	t.Symbol = domain.NormalizeSymbol(t.Symbol)
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now().UTC()
	}
	if err := t.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	stored, err := st.Transactions().Save(ctx, t)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("append: %w", err)
	}
	return stored, nil
}

func transactionDetail(t domain.Transaction) map[string]any {
	return map[string]any{
		"id":       t.ID,
		"symbol":   t.Symbol,
		"type":     string(t.Type),
		"quantity": t.Quantity,
		"price":    t.Price.String(),
	}
}
