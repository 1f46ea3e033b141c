package postgres

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// WalletStore implements domain.WalletStore using PostgreSQL.
type WalletStore struct {
	db querier
}

// FindByID returns the wallet row with the given id.
func (s *WalletStore) FindByID(ctx context.Context, id int64) (domain.Wallet, error) {
	var w domain.Wallet
	err := s.db.QueryRow(ctx,
		`SELECT id, balance, updated_at FROM wallet WHERE id = $1`, id,
	).Scan(&w.ID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		return domain.Wallet{}, wrapNoRows(err, "postgres: get wallet %d", id)
	}
	return w, nil
}

// Save upserts the wallet row.
func (s *WalletStore) Save(ctx context.Context, w domain.Wallet) error {
	const query = `
		INSERT INTO wallet (id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			balance    = EXCLUDED.balance,
			updated_at = NOW()`

	if _, err := s.db.Exec(ctx, query, w.ID, w.Balance); err != nil {
		return fmt.Errorf("postgres: save wallet %d: %w", w.ID, err)
	}
	return nil
}

var _ domain.WalletStore = (*WalletStore)(nil)
