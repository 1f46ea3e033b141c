package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingBus is an in-memory domain.SignalBus.
type recordingBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	stream    map[string][][]byte
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: map[string][][]byte{}, stream: map[string][][]byte{}}
}

func (b *recordingBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *recordingBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stream[stream] = append(b.stream[stream], payload)
	return nil
}

func (b *recordingBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *recordingBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[channel])
}

type notification struct{ event, title, message string }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, event, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{event, title, message})
	return nil
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.event)
	}
	return out
}

// fakeMarket is a canned domain.MarketData.
type fakeMarket struct {
	mu      sync.Mutex
	quotes  map[string]decimal.Decimal
	history map[string][]domain.PricePoint
	calls   int
}

func (m *fakeMarket) Quote(_ context.Context, symbol string, _ domain.AssetType) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	q, ok := m.quotes[symbol]
	if !ok {
		return decimal.Zero, errors.New("no quote")
	}
	return q, nil
}

func (m *fakeMarket) History(_ context.Context, symbol, _, _ string) ([]domain.PricePoint, error) {
	h, ok := m.history[symbol]
	if !ok {
		return nil, errors.New("no history")
	}
	return h, nil
}

// failingStore wraps a Store so that appending to the transaction log inside
// a transaction fails after the wallet and position writes succeeded.
type failingStore struct {
	domain.Store
	err error
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx domain.Store) error {
		return fn(&failingStore{Store: tx, err: f.err})
	})
}

func (f *failingStore) Transactions() domain.TransactionStore {
	return failingTransactions{TransactionStore: f.Store.Transactions(), err: f.err}
}

type failingTransactions struct {
	domain.TransactionStore
	err error
}

func (f failingTransactions) Save(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	if f.err != nil {
		return domain.Transaction{}, f.err
	}
	return f.TransactionStore.Save(ctx, t)
}

// ledger wires the services over one store.
type ledger struct {
	store     domain.Store
	bus       *recordingBus
	audit     *memory.AuditStore
	notifier  *recordingNotifier
	wallet    *WalletService
	txlog     *TransactionService
	positions *PositionService
	portfolio *PortfolioService
	prices    *PriceService
}

type ledgerOpts struct {
	store      domain.Store
	market     domain.MarketData
	cache      domain.PriceCache
	lowBalance decimal.Decimal
}

func newLedger(t *testing.T, initial string, opts ledgerOpts) *ledger {
	t.Helper()
	ctx := context.Background()

	if opts.store == nil {
		opts.store = memory.New()
	}
	logger := discardLogger()
	l := &ledger{
		store:    opts.store,
		bus:      newRecordingBus(),
		audit:    memory.NewAuditStore(),
		notifier: &recordingNotifier{},
	}
	sc := SideChannels{Bus: l.bus, Audit: l.audit, Notifier: l.notifier}
	guard := NewGuard(nil, GuardConfig{})

	l.prices = NewPriceService(opts.cache, opts.market, time.Minute, logger)
	l.wallet = NewWalletService(opts.store, guard, WalletConfig{
		Currency:            "USD",
		LowBalanceThreshold: opts.lowBalance,
	}, sc, logger)
	l.txlog = NewTransactionService(opts.store, guard, sc, logger)
	l.positions = NewPositionService(opts.store, guard, l.wallet, l.txlog, l.prices, sc, logger)
	l.portfolio = NewPortfolioService(opts.store.Positions(), l.prices, logger)

	_, err := l.wallet.EnsureWallet(ctx, dec(initial))
	require.NoError(t, err)
	return l
}

func (l *ledger) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := l.wallet.GetBalance(context.Background())
	require.NoError(t, err)
	return b
}

func (l *ledger) transactions(t *testing.T) []domain.Transaction {
	t.Helper()
	txs, err := l.txlog.GetAllTransactions(context.Background())
	require.NoError(t, err)
	return txs
}

func buy(sym string, qty int64, price string) BuyOrder {
	return BuyOrder{Symbol: sym, CompanyName: sym + " Inc", Quantity: qty, Price: dec(price), AssetType: domain.AssetStock}
}
