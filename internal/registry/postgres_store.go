package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// PostgresStore persists the registry's singleton params and freeze state
// as single-row tables, matching the "one params row, one freeze row"
// shape named in spec.md §3 (Registry is a singleton, not a collection).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open *sql.DB as a Store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) GetParams(ctx context.Context) (*Params, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT registry_admin, fee_collector, stream_creation_fee_denom,
		       stream_creation_fee_amount, exit_fee_percent_bps, accepted_in_denoms,
		       min_waiting_duration_secs, min_bootstrapping_duration_secs,
		       min_stream_duration_secs, tos_version
		FROM registry_params WHERE id = 1`)

	var params Params
	var acceptedDenoms string
	err := row.Scan(
		&params.RegistryAdmin, &params.FeeCollector, &params.StreamCreationFeeDenom,
		&params.StreamCreationFeeAmount, &params.ExitFeePercentBPS, &acceptedDenoms,
		&params.MinWaitingDurationSecs, &params.MinBootstrappingDurationSecs,
		&params.MinStreamDurationSecs, &params.TosVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if acceptedDenoms != "" {
		params.AcceptedInDenoms = strings.Split(acceptedDenoms, ",")
	}
	return &params, nil
}

func (p *PostgresStore) PutParams(ctx context.Context, params *Params) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO registry_params (
			id, registry_admin, fee_collector, stream_creation_fee_denom,
			stream_creation_fee_amount, exit_fee_percent_bps, accepted_in_denoms,
			min_waiting_duration_secs, min_bootstrapping_duration_secs,
			min_stream_duration_secs, tos_version
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			registry_admin = EXCLUDED.registry_admin,
			fee_collector = EXCLUDED.fee_collector,
			stream_creation_fee_denom = EXCLUDED.stream_creation_fee_denom,
			stream_creation_fee_amount = EXCLUDED.stream_creation_fee_amount,
			exit_fee_percent_bps = EXCLUDED.exit_fee_percent_bps,
			accepted_in_denoms = EXCLUDED.accepted_in_denoms,
			min_waiting_duration_secs = EXCLUDED.min_waiting_duration_secs,
			min_bootstrapping_duration_secs = EXCLUDED.min_bootstrapping_duration_secs,
			min_stream_duration_secs = EXCLUDED.min_stream_duration_secs,
			tos_version = EXCLUDED.tos_version`,
		params.RegistryAdmin, params.FeeCollector, params.StreamCreationFeeDenom,
		params.StreamCreationFeeAmount, params.ExitFeePercentBPS, strings.Join(params.AcceptedInDenoms, ","),
		params.MinWaitingDurationSecs, params.MinBootstrappingDurationSecs,
		params.MinStreamDurationSecs, params.TosVersion,
	)
	return err
}

func (p *PostgresStore) GetFreezeState(ctx context.Context) (*FreezeState, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT frozen, reason, set_by, set_at FROM registry_freeze_state WHERE id = 1`)

	var f FreezeState
	var reason, setBy sql.NullString
	var setAt sql.NullTime
	err := row.Scan(&f.Frozen, &reason, &setBy, &setAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &FreezeState{}, nil
	}
	if err != nil {
		return nil, err
	}
	f.Reason = reason.String
	f.SetBy = setBy.String
	if setAt.Valid {
		f.SetAt = setAt.Time
	}
	return &f, nil
}

func (p *PostgresStore) PutFreezeState(ctx context.Context, f *FreezeState) error {
	setAt := f.SetAt
	if setAt.IsZero() {
		setAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO registry_freeze_state (id, frozen, reason, set_by, set_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			frozen = EXCLUDED.frozen,
			reason = EXCLUDED.reason,
			set_by = EXCLUDED.set_by,
			set_at = EXCLUDED.set_at`,
		f.Frozen, f.Reason, f.SetBy, setAt,
	)
	return err
}

var _ Store = (*PostgresStore)(nil)
