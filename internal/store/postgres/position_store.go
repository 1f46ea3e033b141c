package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	db querier
}

const positionSelectCols = `id, symbol, company_name, quantity,
	average_cost, current_price, invested_value, asset_type,
	opened_on, updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var assetType string

	err := row.Scan(
		&p.ID, &p.Symbol, &p.CompanyName, &p.Quantity,
		&p.AverageCost, &p.CurrentPrice, &p.InvestedValue, &assetType,
		&p.OpenedOn, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.AssetType = domain.ParseAssetType(assetType)
	return p, nil
}

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	positions := []domain.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// FindBySymbol returns the position held for symbol.
func (s *PositionStore) FindBySymbol(ctx context.Context, symbol string) (domain.Position, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE symbol = $1`, symbol)

	p, err := scanPosition(row)
	if err != nil {
		return domain.Position{}, wrapNoRows(err, "postgres: get position %s", symbol)
	}
	return p, nil
}

// FindByID returns a single position by its ID.
func (s *PositionStore) FindByID(ctx context.Context, id int64) (domain.Position, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	p, err := scanPosition(row)
	if err != nil {
		return domain.Position{}, wrapNoRows(err, "postgres: get position %d", id)
	}
	return p, nil
}

// FindAll returns every position in insertion order.
func (s *PositionStore) FindAll(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return positions, nil
}

// Save inserts p when p.ID is zero and otherwise replaces the stored row.
func (s *PositionStore) Save(ctx context.Context, p domain.Position) (domain.Position, error) {
	if p.ID == 0 {
		return s.insert(ctx, p)
	}

	const query = `
		UPDATE positions SET
			symbol         = $2,
			company_name   = $3,
			quantity       = $4,
			average_cost   = $5,
			current_price  = $6,
			invested_value = $7,
			asset_type     = $8,
			updated_at     = NOW()
		WHERE id = $1
		RETURNING ` + positionSelectCols

	row := s.db.QueryRow(ctx, query,
		p.ID, p.Symbol, p.CompanyName, p.Quantity,
		p.AverageCost, p.CurrentPrice, p.InvestedValue, p.AssetType.String(),
	)
	stored, err := scanPosition(row)
	if err != nil {
		return domain.Position{}, wrapNoRows(err, "postgres: update position %d", p.ID)
	}
	return stored, nil
}

func (s *PositionStore) insert(ctx context.Context, p domain.Position) (domain.Position, error) {
	const query = `
		INSERT INTO positions (
			symbol, company_name, quantity,
			average_cost, current_price, invested_value, asset_type,
			opened_on, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			COALESCE($8, NOW()), NOW()
		)
		RETURNING ` + positionSelectCols

	var openedOn any
	if !p.OpenedOn.IsZero() {
		openedOn = p.OpenedOn
	}

	row := s.db.QueryRow(ctx, query,
		p.Symbol, p.CompanyName, p.Quantity,
		p.AverageCost, p.CurrentPrice, p.InvestedValue, p.AssetType.String(),
		openedOn,
	)
	stored, err := scanPosition(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Position{}, domain.ErrAlreadyExists
		}
		return domain.Position{}, fmt.Errorf("postgres: create position %s: %w", p.Symbol, err)
	}
	return stored, nil
}

// DeleteByID removes a position.
func (s *PositionStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
