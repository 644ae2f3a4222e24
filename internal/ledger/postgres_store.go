package ledger

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists per-owner, per-denom balances in Postgres using
// atomic column-level arithmetic so concurrent Hold/ReleaseHold calls
// against the same (owner, denom) row never race.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps a database handle as a ledger Store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) ensureRow(ctx context.Context, owner, denom string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_balances (owner, denom, available, pending, total_in, total_out, updated_at)
		VALUES ($1, $2, '0', '0', '0', '0', $3)
		ON CONFLICT (owner, denom) DO NOTHING
	`, owner, denom, time.Now())
	return err
}

func (s *PostgresStore) GetBalance(ctx context.Context, owner, denom string) (*Balance, error) {
	if err := s.ensureRow(ctx, owner, denom); err != nil {
		return nil, err
	}
	b := &Balance{Owner: owner, Denom: denom}
	err := s.db.QueryRowContext(ctx, `
		SELECT available, pending, total_in, total_out, updated_at
		FROM ledger_balances WHERE owner = $1 AND denom = $2
	`, owner, denom).Scan(&b.Available, &b.Pending, &b.TotalIn, &b.TotalOut, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PostgresStore) ListBalances(ctx context.Context, owner string) ([]*Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT denom, available, pending, total_in, total_out, updated_at
		FROM ledger_balances WHERE owner = $1 ORDER BY denom
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Balance
	for rows.Next() {
		b := &Balance{Owner: owner}
		if err := rows.Scan(&b.Denom, &b.Available, &b.Pending, &b.TotalIn, &b.TotalOut, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Credit(ctx context.Context, owner, denom, amount, reference string) error {
	if err := s.ensureRow(ctx, owner, denom); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE ledger_balances
		SET available = (available::numeric + $3::numeric)::text,
		    total_in   = (total_in::numeric + $3::numeric)::text,
		    updated_at = $4
		WHERE owner = $1 AND denom = $2
	`, owner, denom, amount, time.Now())
	return err
}

func (s *PostgresStore) Hold(ctx context.Context, owner, denom, amount, reference string) error {
	if err := s.ensureRow(ctx, owner, denom); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_balances
		SET available = (available::numeric - $3::numeric)::text,
		    pending    = (pending::numeric + $3::numeric)::text,
		    updated_at = $4
		WHERE owner = $1 AND denom = $2 AND available::numeric >= $3::numeric
	`, owner, denom, amount, time.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (s *PostgresStore) ConfirmHold(ctx context.Context, owner, denom, amount, reference string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_balances
		SET pending    = (pending::numeric - $3::numeric)::text,
		    total_out  = (total_out::numeric + $3::numeric)::text,
		    updated_at = $4
		WHERE owner = $1 AND denom = $2 AND pending::numeric >= $3::numeric
	`, owner, denom, amount, time.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientHold
	}
	return nil
}

func (s *PostgresStore) ReleaseHold(ctx context.Context, owner, denom, amount, reference string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_balances
		SET pending    = (pending::numeric - $3::numeric)::text,
		    available  = (available::numeric + $3::numeric)::text,
		    updated_at = $4
		WHERE owner = $1 AND denom = $2 AND pending::numeric >= $3::numeric
	`, owner, denom, amount, time.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientHold
	}
	return nil
}
