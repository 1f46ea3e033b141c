package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL.
type TransactionStore struct {
	db querier
}

const transactionSelectCols = `id, symbol, quantity, price, type, timestamp`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	var typ string
	if err := row.Scan(&t.ID, &t.Symbol, &t.Quantity, &t.Price, &typ, &t.Timestamp); err != nil {
		return domain.Transaction{}, err
	}
	t.Type = domain.TransactionType(typ)
	return t, nil
}

func (s *TransactionStore) list(ctx context.Context, where string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionSelectCols+` FROM transactions `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list transactions rows: %w", err)
	}
	return txs, nil
}

// FindBySymbol returns the fills for symbol in insertion order.
func (s *TransactionStore) FindBySymbol(ctx context.Context, symbol string) ([]domain.Transaction, error) {
	return s.list(ctx, `WHERE symbol = $1`, symbol)
}

// FindAll returns the whole log in insertion order.
func (s *TransactionStore) FindAll(ctx context.Context) ([]domain.Transaction, error) {
	return s.list(ctx, ``)
}

// FindBefore returns fills with a timestamp strictly before the cut-off.
func (s *TransactionStore) FindBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	return s.list(ctx, `WHERE timestamp < $1`, before)
}

// FindByID returns a single fill.
func (s *TransactionStore) FindByID(ctx context.Context, id int64) (domain.Transaction, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+transactionSelectCols+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return domain.Transaction{}, wrapNoRows(err, "postgres: get transaction %d", id)
	}
	return t, nil
}

// Save appends t when t.ID is zero and otherwise overwrites the stored row.
func (s *TransactionStore) Save(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	if t.ID == 0 {
		const query = `
			INSERT INTO transactions (symbol, quantity, price, type, timestamp)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + transactionSelectCols
		row := s.db.QueryRow(ctx, query, t.Symbol, t.Quantity, t.Price, string(t.Type), t.Timestamp)
		stored, err := scanTransaction(row)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("postgres: insert transaction %s: %w", t.Symbol, err)
		}
		return stored, nil
	}

	const query = `
		UPDATE transactions SET
			symbol    = $2,
			quantity  = $3,
			price     = $4,
			type      = $5,
			timestamp = $6
		WHERE id = $1
		RETURNING ` + transactionSelectCols
	row := s.db.QueryRow(ctx, query, t.ID, t.Symbol, t.Quantity, t.Price, string(t.Type), t.Timestamp)
	stored, err := scanTransaction(row)
	if err != nil {
		return domain.Transaction{}, wrapNoRows(err, "postgres: update transaction %d", t.ID)
	}
	return stored, nil
}

// DeleteByID removes a fill.
func (s *TransactionStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.TransactionStore = (*TransactionStore)(nil)
