package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists positions. FindAll returns rows in insertion
// (id) order.
type PositionStore interface {
	FindBySymbol(ctx context.Context, symbol string) (Position, error)
	FindByID(ctx context.Context, id int64) (Position, error)
	FindAll(ctx context.Context) ([]Position, error)
	// Save inserts p when p.ID is zero and updates it otherwise. It returns
	// the stored row with its assigned ID.
	Save(ctx context.Context, p Position) (Position, error)
	DeleteByID(ctx context.Context, id int64) error
}

// TransactionStore persists the transaction log. FindAll and FindBySymbol
// return rows in insertion (id) order.
type TransactionStore interface {
	FindBySymbol(ctx context.Context, symbol string) ([]Transaction, error)
	FindByID(ctx context.Context, id int64) (Transaction, error)
	FindAll(ctx context.Context) ([]Transaction, error)
	FindBefore(ctx context.Context, before time.Time) ([]Transaction, error)
	Save(ctx context.Context, t Transaction) (Transaction, error)
	DeleteByID(ctx context.Context, id int64) error
}

// WalletStore persists the wallet singleton.
type WalletStore interface {
	FindByID(ctx context.Context, id int64) (Wallet, error)
	Save(ctx context.Context, w Wallet) error
}

// Store groups the portfolio stores behind one transactional boundary.
type Store interface {
	Positions() PositionStore
	Transactions() TransactionStore
	Wallets() WalletStore
	// WithinTx runs fn against a transactional view of the store. All
	// writes made through tx are committed together when fn returns nil
	// and discarded otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
