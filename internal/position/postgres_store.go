package position

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/streamswap/engine/internal/rational"
)

// PostgresStore persists positions in PostgreSQL, keyed by
// (stream_id, owner). Index and pending_purchase are stored as text
// fractions for the same reason internal/stream stores dist_index as text:
// their denominators exceed any fixed NUMERIC precision.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open *sql.DB as a Store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func bigToStr(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func strToBig(s string) *big.Int {
	n := new(big.Int)
	if s == "" {
		return big.NewInt(0)
	}
	n.SetString(s, 10)
	return n
}

func ratToStr(r rational.Rational) string { return r.Num().String() + "/" + r.Den().String() }

func strToRat(s string) rational.Rational {
	if s == "" {
		return rational.Zero()
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			num := new(big.Int)
			den := new(big.Int)
			num.SetString(s[:i], 10)
			den.SetString(s[i+1:], 10)
			if den.Sign() == 0 {
				return rational.Zero()
			}
			return rational.New(num, den)
		}
	}
	return rational.Zero()
}

func (p *PostgresStore) Get(ctx context.Context, streamID, owner string) (*Position, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT owner, stream_id, in_balance, shares, idx, purchased,
		       pending_purchase, spent, last_updated, exit_date
		FROM positions WHERE stream_id = $1 AND owner = $2`, streamID, owner)
	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return pos, err
}

func (p *PostgresStore) Put(ctx context.Context, pos *Position) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO positions (
			owner, stream_id, in_balance, shares, idx, purchased,
			pending_purchase, spent, last_updated, exit_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stream_id, owner) DO UPDATE SET
			in_balance = EXCLUDED.in_balance,
			shares = EXCLUDED.shares,
			idx = EXCLUDED.idx,
			purchased = EXCLUDED.purchased,
			pending_purchase = EXCLUDED.pending_purchase,
			spent = EXCLUDED.spent,
			last_updated = EXCLUDED.last_updated,
			exit_date = EXCLUDED.exit_date`,
		pos.Owner, pos.StreamID, bigToStr(pos.InBalance), bigToStr(pos.Shares), ratToStr(pos.Index), bigToStr(pos.Purchased),
		ratToStr(pos.PendingPurchase), bigToStr(pos.Spent), pos.LastUpdated, pos.ExitDate,
	)
	return err
}

func (p *PostgresStore) Iterate(ctx context.Context, streamID string, fn func(*Position) error) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT owner, stream_id, in_balance, shares, idx, purchased,
		       pending_purchase, spent, last_updated, exit_date
		FROM positions WHERE stream_id = $1 ORDER BY owner ASC`, streamID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return err
		}
		if err := fn(pos); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (p *PostgresStore) ListByOwner(ctx context.Context, streamID, startAfter string, limit int) ([]*Position, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT owner, stream_id, in_balance, shares, idx, purchased,
		       pending_purchase, spent, last_updated, exit_date
		FROM positions
		WHERE stream_id = $1 AND ($2 = '' OR owner > $2)
		ORDER BY owner ASC
		LIMIT $3`, streamID, startAfter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pos)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*Position, error) {
	var p Position
	var inBalance, shares, idx, purchased, pendingPurchase, spent string
	var exitDate sql.NullTime

	err := row.Scan(
		&p.Owner, &p.StreamID, &inBalance, &shares, &idx, &purchased,
		&pendingPurchase, &spent, &p.LastUpdated, &exitDate,
	)
	if err != nil {
		return nil, err
	}
	p.InBalance = strToBig(inBalance)
	p.Shares = strToBig(shares)
	p.Index = strToRat(idx)
	p.Purchased = strToBig(purchased)
	p.PendingPurchase = strToRat(pendingPurchase)
	p.Spent = strToBig(spent)
	if exitDate.Valid {
		p.ExitDate = &exitDate.Time
	}
	return &p, nil
}

var _ Store = (*PostgresStore)(nil)
