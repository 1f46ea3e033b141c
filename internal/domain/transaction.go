package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of a fill.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction is an immutable record of one fill in the transaction log.
type Transaction struct {
	ID        int64           `json:"id"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Type      TransactionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// Amount is the cash value of the fill.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// Validate checks that t is a well-formed fill.
func (t Transaction) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrValidation, t.Quantity)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", ErrValidation, t.Price)
	}
	if t.Type != TransactionBuy && t.Type != TransactionSell {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, t.Type)
	}
	return nil
}
