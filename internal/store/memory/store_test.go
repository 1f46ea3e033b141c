package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

func TestPositionStore_SaveAssignsIDsInOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, sym := range []string{"MSFT", "AAPL", "BTC"} {
		_, err := s.Positions().Save(ctx, domain.Position{Symbol: sym, Quantity: 1})
		require.NoError(t, err)
	}

	all, err := s.Positions().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "MSFT", all[0].Symbol)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, "BTC", all[2].Symbol)
	assert.Equal(t, int64(3), all[2].ID)

	p, err := s.Positions().FindBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.ID)
}

func TestPositionStore_DuplicateSymbol(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Positions().Save(ctx, domain.Position{Symbol: "AAPL", Quantity: 1})
	require.NoError(t, err)
	_, err = s.Positions().Save(ctx, domain.Position{Symbol: "AAPL", Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPositionStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Positions().FindByID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Positions().FindBySymbol(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Positions().DeleteByID(ctx, 42), domain.ErrNotFound)
	_, err = s.Positions().Save(ctx, domain.Position{ID: 9, Symbol: "X", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionStore_Queries(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, sym := range []string{"AAPL", "MSFT", "AAPL"} {
		_, err := s.Transactions().Save(ctx, domain.Transaction{
			Symbol:    sym,
			Quantity:  1,
			Price:     decimal.NewFromInt(10),
			Type:      domain.TransactionBuy,
			Timestamp: base.AddDate(0, i, 0),
		})
		require.NoError(t, err)
	}

	bySym, err := s.Transactions().FindBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, bySym, 2)
	assert.Equal(t, int64(1), bySym[0].ID)
	assert.Equal(t, int64(3), bySym[1].ID)

	before, err := s.Transactions().FindBefore(ctx, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "AAPL", before[0].Symbol)

	require.NoError(t, s.Transactions().DeleteByID(ctx, 2))
	_, err = s.Transactions().FindByID(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinTx_CommitsAllWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.Wallets().Save(ctx, domain.Wallet{ID: domain.WalletID, Balance: decimal.NewFromInt(5)}); err != nil {
			return err
		}
		_, err := tx.Positions().Save(ctx, domain.Position{Symbol: "AAPL", Quantity: 1})
		return err
	})
	require.NoError(t, err)

	w, err := s.Wallets().FindByID(ctx, domain.WalletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(5)))

	_, err = s.Positions().FindBySymbol(ctx, "AAPL")
	assert.NoError(t, err)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Wallets().Save(ctx, domain.Wallet{ID: domain.WalletID, Balance: decimal.NewFromInt(100)}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.Wallets().Save(ctx, domain.Wallet{ID: domain.WalletID, Balance: decimal.Zero}); err != nil {
			return err
		}
		if _, err := tx.Positions().Save(ctx, domain.Position{Symbol: "AAPL", Quantity: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	w, err := s.Wallets().FindByID(ctx, domain.WalletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(100)))

	all, err := s.Positions().FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// IDs consumed by the aborted transaction are not reused by accident.
	p, err := s.Positions().Save(ctx, domain.Position{Symbol: "MSFT", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
}

func TestWithinTx_StagedWritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(tx domain.Store) error {
		if _, err := tx.Positions().Save(ctx, domain.Position{Symbol: "AAPL", Quantity: 1}); err != nil {
			return err
		}
		outside, err := s.Positions().FindAll(ctx)
		if err != nil {
			return err
		}
		assert.Empty(t, outside)

		inside, err := tx.Positions().FindAll(ctx)
		if err != nil {
			return err
		}
		assert.Len(t, inside, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(tx domain.Store) error {
		return tx.WithinTx(ctx, func(inner domain.Store) error {
			_, err := inner.Positions().Save(ctx, domain.Position{Symbol: "AAPL", Quantity: 1})
			return err
		})
	})
	require.NoError(t, err)

	all, err := s.Positions().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAuditStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	a := NewAuditStore()

	require.NoError(t, a.Log(ctx, "first", nil))
	require.NoError(t, a.Log(ctx, "second", map[string]any{"k": "v"}))
	require.NoError(t, a.Log(ctx, "third", nil))

	all, err := a.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Event)

	page, err := a.List(ctx, domain.ListOpts{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Event)
	assert.Equal(t, "v", page[0].Detail["k"])
}
