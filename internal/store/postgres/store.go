package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store on top of a connection pool.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Positions returns the position store.
func (s *Store) Positions() domain.PositionStore { return &PositionStore{db: s.db} }

// Transactions returns the transaction store.
func (s *Store) Transactions() domain.TransactionStore { return &TransactionStore{db: s.db} }

// Wallets returns the wallet store.
func (s *Store) Wallets() domain.WalletStore { return &WalletStore{db: s.db} }

// WithinTx runs fn inside a REPEATABLE READ transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. Calling WithinTx
// on a transactional Store joins the enclosing transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if _, inTx := s.db.(pgx.Tx); inTx {
		return fn(s)
	}

	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead}
	err := pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(&Store{pool: s.pool, db: tx})
	})
	if err != nil {
		return err
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// wrapNoRows converts pgx.ErrNoRows into domain.ErrNotFound.
func wrapNoRows(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

var _ domain.Store = (*Store)(nil)
