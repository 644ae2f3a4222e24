// Package position implements the position ledger: the keyed per-buyer
// store and the lazy reconciliation procedure that brings one position up
// to date with a stream's global distribution index. It has no notion of
// time and no notion of streams plural — the distribution engine in
// internal/stream owns the clock and drives Reconcile.
package position

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/streamswap/engine/internal/rational"
)

// ErrNotFound is returned when a position does not exist for an owner.
var ErrNotFound = errors.New("position: not found")

// Position is one buyer's participation in one stream.
type Position struct {
	Owner           string          `json:"owner"`
	StreamID        string          `json:"streamId"`
	InBalance       *big.Int        `json:"inBalance"`       // input still committed
	Shares          *big.Int        `json:"shares"`           // claim weight in the pool
	Index           rational.Rational `json:"-"`              // dist_index at last reconciliation
	Purchased       *big.Int        `json:"purchased"`        // cumulative output credited
	PendingPurchase rational.Rational `json:"-"`              // fractional output carried across reconciliations
	Spent           *big.Int        `json:"spent"`             // cumulative input consumed
	LastUpdated     time.Time       `json:"lastUpdated"`
	ExitDate        *time.Time      `json:"exitDate,omitempty"`
}

// IndexString/PendingPurchaseString exist so JSON consumers (handlers,
// dashboards) can see the rational accumulators without reaching into the
// unexported big.Int pairs.
func (p *Position) IndexString() string           { return p.Index.String() }
func (p *Position) PendingPurchaseString() string { return p.PendingPurchase.String() }

// New creates a fresh, zeroed position for (streamID, owner).
func New(streamID, owner string, now time.Time) *Position {
	return &Position{
		Owner:           owner,
		StreamID:        streamID,
		InBalance:       big.NewInt(0),
		Shares:          big.NewInt(0),
		Index:           rational.Zero(),
		Purchased:       big.NewInt(0),
		PendingPurchase: rational.Zero(),
		Spent:           big.NewInt(0),
		LastUpdated:     now,
	}
}

// IsClosed reports whether the owner has exited; further mutation is
// rejected by the engine once this is set.
func (p *Position) IsClosed() bool {
	return p.ExitDate != nil
}

// Store persists position data, keyed by (stream, owner).
type Store interface {
	Get(ctx context.Context, streamID, owner string) (*Position, error)
	Put(ctx context.Context, pos *Position) error
	Iterate(ctx context.Context, streamID string, fn func(*Position) error) error
	ListByOwner(ctx context.Context, streamID, startAfter string, limit int) ([]*Position, error)
}

// Reconcile reconciles a position against the stream's current global
// state, per spec §4.1:
//
//  1. delta = distIndex - position.Index; if shares == 0 or delta == 0,
//     advance Index and LastUpdated and return.
//  2. purchasedFraction = delta * position.Shares + position.PendingPurchase
//  3. whole = floor(purchasedFraction); frac = purchasedFraction - whole
//  4. position.Purchased += whole; position.PendingPurchase = frac
//  5. spentInWindow = position.InBalance - projected in-balance at the
//     current shares/inSupply ratio; credit it to position.Spent and debit
//     position.InBalance.
//  6. position.Index = distIndex; position.LastUpdated = now.
func Reconcile(p *Position, distIndex rational.Rational, streamInSupply, streamShares *big.Int, now time.Time) {
	delta := distIndex.Sub(p.Index)

	if p.Shares.Sign() == 0 || delta.IsZero() {
		p.Index = distIndex
		p.LastUpdated = now
		return
	}

	purchasedFraction := delta.MulInt(p.Shares).Add(p.PendingPurchase)
	whole := purchasedFraction.Floor()
	p.Purchased = new(big.Int).Add(p.Purchased, whole)
	p.PendingPurchase = purchasedFraction.FracPart()

	// Projected in-balance at the pool's current shares/inSupply ratio:
	// shares * inSupply / shares_total, integer division (floor).
	projected := new(big.Int)
	if streamShares.Sign() > 0 {
		projected.Mul(p.Shares, streamInSupply)
		projected.Div(projected, streamShares)
	}
	spentInWindow := new(big.Int).Sub(p.InBalance, projected)
	if spentInWindow.Sign() < 0 {
		// Rounding can make the projection exceed the stale in-balance by at
		// most one unit; never let spend go negative or in-balance go up.
		spentInWindow = big.NewInt(0)
	}
	p.Spent = new(big.Int).Add(p.Spent, spentInWindow)
	p.InBalance = new(big.Int).Sub(p.InBalance, spentInWindow)

	p.Index = distIndex
	p.LastUpdated = now
}
