// Package ledger tracks per-owner, per-denom balances and implements the
// two-phase hold protocol that stream.Service uses to move funds in and
// out of streams without ever debiting twice for the same transfer.
//
// Flow:
//  1. stream.Subscribe calls Hold to move an owner's funds from available
//     into a stream's pending bucket.
//  2. stream.Finalize/Cancel calls Deposit to credit the treasury/fee
//     collector/depositor once a transfer is settled.
//  3. stream.Withdraw/Exit/ExitCancelled calls ReleaseHold to return funds
//     from pending back to available.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/streamswap/engine/internal/traces"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrInvalidAmount       = errors.New("ledger: invalid amount")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInsufficientHold    = errors.New("ledger: insufficient held balance")
)

// Balance is an owner's funds in a single denom.
type Balance struct {
	Owner     string    `json:"owner"`
	Denom     string    `json:"denom"`
	Available string    `json:"available"` // spendable, can be held or withdrawn
	Pending   string    `json:"pending"`   // held, awaiting confirmation or release
	TotalIn   string    `json:"totalIn"`   // lifetime deposits
	TotalOut  string    `json:"totalOut"`  // lifetime confirmed outflows
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists per-owner, per-denom balances.
type Store interface {
	GetBalance(ctx context.Context, owner, denom string) (*Balance, error)
	ListBalances(ctx context.Context, owner string) ([]*Balance, error)

	// Credit adds to available and totalIn. Used by Deposit.
	Credit(ctx context.Context, owner, denom, amount, reference string) error

	// Hold moves funds from available to pending.
	Hold(ctx context.Context, owner, denom, amount, reference string) error
	// ConfirmHold moves funds from pending to totalOut (funds leave the
	// ledger permanently, e.g. paid out on-chain).
	ConfirmHold(ctx context.Context, owner, denom, amount, reference string) error
	// ReleaseHold returns funds from pending to available.
	ReleaseHold(ctx context.Context, owner, denom, amount, reference string) error
}

// Ledger is the concrete engine behind stream.LedgerService.
type Ledger struct {
	store Store
}

// New creates a ledger backed by store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func parseAmount(amount string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(amount, 10)
	if !ok || n.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return n, nil
}

// GetBalance returns an owner's balance in a denom.
func (l *Ledger) GetBalance(ctx context.Context, owner, denom string) (*Balance, error) {
	return l.store.GetBalance(ctx, strings.ToLower(owner), strings.ToLower(denom))
}

// ListBalances returns all of an owner's balances, including ones that
// have gone back to zero.
func (l *Ledger) ListBalances(ctx context.Context, owner string) ([]*Balance, error) {
	return l.store.ListBalances(ctx, strings.ToLower(owner))
}

// Deposit credits an owner's available balance. This is how stream.Service
// pays out treasuries, fee collectors and purchasers, via the
// stream.LedgerService interface's Deposit method.
func (l *Ledger) Deposit(ctx context.Context, owner, denom string, amount *big.Int, reference string) error {
	ctx, span := traces.StartSpan(ctx, "ledger.Deposit",
		traces.Reference(reference), attribute.String("denom", denom), attribute.String("owner", owner))
	defer span.End()

	if amount == nil || amount.Sign() <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return ErrInvalidAmount
	}

	done := observeOp("deposit")
	defer done()

	return l.store.Credit(ctx, strings.ToLower(owner), strings.ToLower(denom), amount.String(), reference)
}

// Hold moves funds from an owner's available balance into pending. Used
// when a position subscribes into a stream.
func (l *Ledger) Hold(ctx context.Context, owner, denom string, amount *big.Int, reference string) error {
	ctx, span := traces.StartSpan(ctx, "ledger.Hold",
		traces.Reference(reference), attribute.String("denom", denom), attribute.String("owner", owner))
	defer span.End()

	if amount == nil || amount.Sign() <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return ErrInvalidAmount
	}

	done := observeOp("hold")
	defer done()

	if err := l.store.Hold(ctx, strings.ToLower(owner), strings.ToLower(denom), amount.String(), reference); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// ConfirmHold finalizes a held amount, removing it from the ledger
// permanently (the funds have left the system, e.g. delivered on-chain).
func (l *Ledger) ConfirmHold(ctx context.Context, owner, denom string, amount *big.Int, reference string) error {
	ctx, span := traces.StartSpan(ctx, "ledger.ConfirmHold",
		traces.Reference(reference), attribute.String("denom", denom), attribute.String("owner", owner))
	defer span.End()

	if amount == nil || amount.Sign() <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return ErrInvalidAmount
	}

	done := observeOp("confirm_hold")
	defer done()

	return l.store.ConfirmHold(ctx, strings.ToLower(owner), strings.ToLower(denom), amount.String(), reference)
}

// ReleaseHold returns held funds to available. Used for withdrawals,
// cancellation refunds, and dust release on exit.
func (l *Ledger) ReleaseHold(ctx context.Context, owner, denom string, amount *big.Int, reference string) error {
	ctx, span := traces.StartSpan(ctx, "ledger.ReleaseHold",
		traces.Reference(reference), attribute.String("denom", denom), attribute.String("owner", owner))
	defer span.End()

	if amount == nil || amount.Sign() <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return ErrInvalidAmount
	}

	done := observeOp("release_hold")
	defer done()

	if err := l.store.ReleaseHold(ctx, strings.ToLower(owner), strings.ToLower(denom), amount.String(), reference); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
