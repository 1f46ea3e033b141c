// Package memory implements the domain store interfaces in process memory.
// It backs the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// data is one complete copy of the stored state.
type data struct {
	positions    map[int64]domain.Position
	transactions map[int64]domain.Transaction
	wallets      map[int64]domain.Wallet
	nextPosID    int64
	nextTxID     int64
}

func newData() *data {
	return &data{
		positions:    make(map[int64]domain.Position),
		transactions: make(map[int64]domain.Transaction),
		wallets:      make(map[int64]domain.Wallet),
	}
}

func (d *data) clone() *data {
	return &data{
		positions:    maps.Clone(d.positions),
		transactions: maps.Clone(d.transactions),
		wallets:      maps.Clone(d.wallets),
		nextPosID:    d.nextPosID,
		nextTxID:     d.nextTxID,
	}
}

// Store implements domain.Store. Transactions stage writes on a private copy
// of the state and publish it with a single swap on commit, so readers never
// observe a partially applied transaction.
type Store struct {
	mu   sync.RWMutex // guards data
	txMu sync.Mutex   // serialises writers
	data *data
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) root() view { return view{root: s} }

// Positions returns the position store.
func (s *Store) Positions() domain.PositionStore { return positionStore{s.root()} }

// Transactions returns the transaction store.
func (s *Store) Transactions() domain.TransactionStore { return transactionStore{s.root()} }

// Wallets returns the wallet store.
func (s *Store) Wallets() domain.WalletStore { return walletStore{s.root()} }

// WithinTx runs fn against a staged copy of the state and commits it when fn
// succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := s.data.clone()
	s.mu.RUnlock()

	if err := fn(&txStore{v: view{root: s, staged: staged}}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = staged
	s.mu.Unlock()
	return nil
}

// txStore is the transactional view handed to WithinTx callbacks.
type txStore struct {
	v view
}

func (t *txStore) Positions() domain.PositionStore       { return positionStore{t.v} }
func (t *txStore) Transactions() domain.TransactionStore { return transactionStore{t.v} }
func (t *txStore) Wallets() domain.WalletStore           { return walletStore{t.v} }

// WithinTx joins the enclosing transaction.
func (t *txStore) WithinTx(_ context.Context, fn func(tx domain.Store) error) error {
	return fn(t)
}

// view routes reads and writes either to the committed state (with locking)
// or to a staged copy owned by a single transaction.
type view struct {
	root   *Store
	staged *data
}

func (v view) read(fn func(d *data)) {
	if v.staged != nil {
		fn(v.staged)
		return
	}
	v.root.mu.RLock()
	defer v.root.mu.RUnlock()
	fn(v.root.data)
}

func (v view) write(fn func(d *data) error) error {
	if v.staged != nil {
		return fn(v.staged)
	}
	v.root.txMu.Lock()
	defer v.root.txMu.Unlock()
	v.root.mu.Lock()
	defer v.root.mu.Unlock()
	return fn(v.root.data)
}

/* ---- positions ---- */

type positionStore struct{ v view }

func (s positionStore) FindBySymbol(_ context.Context, symbol string) (domain.Position, error) {
	var (
		out   domain.Position
		found bool
	)
	s.v.read(func(d *data) {
		for _, p := range d.positions {
			if p.Symbol == symbol {
				out, found = p, true
				return
			}
		}
	})
	if !found {
		return domain.Position{}, domain.ErrNotFound
	}
	return out, nil
}

func (s positionStore) FindByID(_ context.Context, id int64) (domain.Position, error) {
	var (
		out   domain.Position
		found bool
	)
	s.v.read(func(d *data) { out, found = d.positions[id] })
	if !found {
		return domain.Position{}, domain.ErrNotFound
	}
	return out, nil
}

func (s positionStore) FindAll(_ context.Context) ([]domain.Position, error) {
	var out []domain.Position
	s.v.read(func(d *data) {
		out = make([]domain.Position, 0, len(d.positions))
		for _, p := range d.positions {
			out = append(out, p)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s positionStore) Save(_ context.Context, p domain.Position) (domain.Position, error) {
	err := s.v.write(func(d *data) error {
		if p.ID == 0 {
			for _, existing := range d.positions {
				if existing.Symbol == p.Symbol {
					return domain.ErrAlreadyExists
				}
			}
			d.nextPosID++
			p.ID = d.nextPosID
		} else if _, ok := d.positions[p.ID]; !ok {
			return domain.ErrNotFound
		}
		d.positions[p.ID] = p
		return nil
	})
	if err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

func (s positionStore) DeleteByID(_ context.Context, id int64) error {
	return s.v.write(func(d *data) error {
		if _, ok := d.positions[id]; !ok {
			return domain.ErrNotFound
		}
		delete(d.positions, id)
		return nil
	})
}

/* ---- transactions ---- */

type transactionStore struct{ v view }

func (s transactionStore) collect(keep func(domain.Transaction) bool) []domain.Transaction {
	var out []domain.Transaction
	s.v.read(func(d *data) {
		out = make([]domain.Transaction, 0, len(d.transactions))
		for _, t := range d.transactions {
			if keep(t) {
				out = append(out, t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s transactionStore) FindBySymbol(_ context.Context, symbol string) ([]domain.Transaction, error) {
	return s.collect(func(t domain.Transaction) bool { return t.Symbol == symbol }), nil
}

func (s transactionStore) FindByID(_ context.Context, id int64) (domain.Transaction, error) {
	var (
		out   domain.Transaction
		found bool
	)
	s.v.read(func(d *data) { out, found = d.transactions[id] })
	if !found {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return out, nil
}

func (s transactionStore) FindAll(_ context.Context) ([]domain.Transaction, error) {
	return s.collect(func(domain.Transaction) bool { return true }), nil
}

func (s transactionStore) FindBefore(_ context.Context, before time.Time) ([]domain.Transaction, error) {
	return s.collect(func(t domain.Transaction) bool { return t.Timestamp.Before(before) }), nil
}

func (s transactionStore) Save(_ context.Context, t domain.Transaction) (domain.Transaction, error) {
	err := s.v.write(func(d *data) error {
		if t.ID == 0 {
			d.nextTxID++
			t.ID = d.nextTxID
		} else if _, ok := d.transactions[t.ID]; !ok {
			return domain.ErrNotFound
		}
		d.transactions[t.ID] = t
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

func (s transactionStore) DeleteByID(_ context.Context, id int64) error {
	return s.v.write(func(d *data) error {
		if _, ok := d.transactions[id]; !ok {
			return domain.ErrNotFound
		}
		delete(d.transactions, id)
		return nil
	})
}

/* ---- wallet ---- */

type walletStore struct{ v view }

func (s walletStore) FindByID(_ context.Context, id int64) (domain.Wallet, error) {
	var (
		out   domain.Wallet
		found bool
	)
	s.v.read(func(d *data) { out, found = d.wallets[id] })
	if !found {
		return domain.Wallet{}, domain.ErrNotFound
	}
	return out, nil
}

func (s walletStore) Save(_ context.Context, w domain.Wallet) error {
	return s.v.write(func(d *data) error {
		d.wallets[w.ID] = w
		return nil
	})
}

// Compile-time interface checks.
var (
	_ domain.Store            = (*Store)(nil)
	_ domain.Store            = (*txStore)(nil)
	_ domain.PositionStore    = positionStore{}
	_ domain.TransactionStore = transactionStore{}
	_ domain.WalletStore      = walletStore{}
)
