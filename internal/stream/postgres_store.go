package stream

import (
	"context"
	"database/sql"
	"math/big"
	"time"

	"github.com/streamswap/engine/internal/rational"
)

// PostgresStore persists streams in PostgreSQL. dist_index and
// current_streamed_price are stored as text (num/den) rather than NUMERIC
// because their denominators can exceed any fixed-precision column — the
// same reasoning behind internal/rational itself.
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

func (p *PostgresStore) Create(ctx context.Context, s *Stream) error {
	var threshold sql.NullString
	if s.Threshold != nil {
		threshold = sql.NullString{String: s.Threshold.String(), Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO streams (
			id, name, url, stream_admin, treasury,
			out_denom, out_total, in_denom,
			bootstrapping_start_time, start_time, end_time, last_updated,
			dist_index, shares, in_supply, spent_in, out_remaining,
			current_streamed_price, status, threshold, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21
		)`,
		s.ID, s.Name, s.URL, s.StreamAdmin, s.Treasury,
		s.OutDenom, bigToStr(s.OutTotal), s.InDenom,
		s.BootstrappingStartTime, s.StartTime, s.EndTime, s.LastUpdated,
		ratToStr(s.DistIndex), bigToStr(s.Shares), bigToStr(s.InSupply), bigToStr(s.SpentIn), bigToStr(s.OutRemaining),
		ratToStr(s.CurrentStreamedPrice), string(s.Status), threshold, s.CreatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Stream, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, url, stream_admin, treasury,
		       out_denom, out_total, in_denom,
		       bootstrapping_start_time, start_time, end_time, last_updated,
		       dist_index, shares, in_supply, spent_in, out_remaining,
		       current_streamed_price, status, threshold, created_at
		FROM streams WHERE id = $1`, id)
	s, err := scanStream(row)
	if err == sql.ErrNoRows {
		return nil, ErrStreamNotFound
	}
	return s, err
}

func (p *PostgresStore) Update(ctx context.Context, s *Stream) error {
	var threshold sql.NullString
	if s.Threshold != nil {
		threshold = sql.NullString{String: s.Threshold.String(), Valid: true}
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE streams SET
			treasury = $1, last_updated = $2,
			dist_index = $3, shares = $4, in_supply = $5, spent_in = $6,
			out_remaining = $7, current_streamed_price = $8, status = $9, threshold = $10
		WHERE id = $11`,
		s.Treasury, s.LastUpdated,
		ratToStr(s.DistIndex), bigToStr(s.Shares), bigToStr(s.InSupply), bigToStr(s.SpentIn),
		bigToStr(s.OutRemaining), ratToStr(s.CurrentStreamedPrice), string(s.Status), threshold,
		s.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStreamNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, startAfter string, limit int) ([]*Stream, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, url, stream_admin, treasury,
		       out_denom, out_total, in_denom,
		       bootstrapping_start_time, start_time, end_time, last_updated,
		       dist_index, shares, in_supply, spent_in, out_remaining,
		       current_streamed_price, status, threshold, created_at
		FROM streams
		WHERE $1 = '' OR id > $1
		ORDER BY id ASC
		LIMIT $2`, startAfter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreams(rows)
}

func (p *PostgresStore) ListActiveUntouchedSince(ctx context.Context, before time.Time, limit int) ([]*Stream, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, url, stream_admin, treasury,
		       out_denom, out_total, in_denom,
		       bootstrapping_start_time, start_time, end_time, last_updated,
		       dist_index, shares, in_supply, spent_in, out_remaining,
		       current_streamed_price, status, threshold, created_at
		FROM streams
		WHERE status NOT IN ('finalized', 'cancelled') AND last_updated < $1
		ORDER BY last_updated ASC
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreams(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStream(row rowScanner) (*Stream, error) {
	var s Stream
	var url sql.NullString
	var outTotal, shares, inSupply, spentIn, outRemaining string
	var distIndex, streamedPrice string
	var status string
	var threshold sql.NullString

	err := row.Scan(
		&s.ID, &s.Name, &url, &s.StreamAdmin, &s.Treasury,
		&s.OutDenom, &outTotal, &s.InDenom,
		&s.BootstrappingStartTime, &s.StartTime, &s.EndTime, &s.LastUpdated,
		&distIndex, &shares, &inSupply, &spentIn, &outRemaining,
		&streamedPrice, &status, &threshold, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.URL = url.String
	s.OutTotal = strToBig(outTotal)
	s.Shares = strToBig(shares)
	s.InSupply = strToBig(inSupply)
	s.SpentIn = strToBig(spentIn)
	s.OutRemaining = strToBig(outRemaining)
	s.DistIndex = strToRat(distIndex)
	s.CurrentStreamedPrice = strToRat(streamedPrice)
	s.Status = Status(status)
	if threshold.Valid {
		s.Threshold = strToBig(threshold.String)
	}
	return &s, nil
}

func scanStreams(rows *sql.Rows) ([]*Stream, error) {
	var result []*Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
