// Package stream implements the distribution engine: the single
// continuous-rate token swap auction ("stream sale") that maintains, for
// one stream and an arbitrary number of concurrent positions, the
// conservation invariants of spec.md §3 under an event-driven evaluation
// model where time only advances when an operation touches the stream.
//
// Flow:
//  1. Registry mints a stream → Waiting, then Bootstrapping, then Active.
//  2. Buyers subscribe → input held, shares minted proportionally.
//  3. sync_time on every call advances dist_index linearly in the
//     *remaining* window, crediting output to the pool.
//  4. Buyers may add (subscribe), remove (withdraw), or just refresh
//     (update_position) their claim at any time before Ended.
//  5. At Ended, the stream admin finalizes (pays treasury + fee collector,
//     minus threshold-miss which cancels instead) or the protocol admin
//     cancels early; either way positions drain via exit / exit_cancelled.
package stream

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/streamswap/engine/internal/rational"
)

var (
	ErrStreamNotFound    = errors.New("stream: not found")
	ErrInvalidStatus     = errors.New("stream: invalid status for this operation")
	ErrUnauthorized      = errors.New("stream: not authorized")
	ErrInvalidAmount     = errors.New("stream: invalid amount")
	ErrInvalidDenom      = errors.New("stream: input denom mismatch")
	ErrPositionNotFound  = errors.New("stream: position not found")
	ErrPositionClosed    = errors.New("stream: position already closed")
	ErrWithdrawTooLarge  = errors.New("stream: withdraw amount exceeds position balance")
	ErrThresholdNotSet   = errors.New("stream: stream has no threshold")
	ErrAlreadyTerminal   = errors.New("stream: stream already in a terminal state")
	ErrDivisionByZero    = errors.New("stream: division by zero")
	ErrDuplicateID       = errors.New("stream: id already exists")
)

// Status is the stream lifecycle state machine of spec §4.2. It advances
// strictly forward: Waiting -> Bootstrapping -> Active -> Ended, with
// Finalized (reachable only from Ended) and Cancelled (reachable from any
// non-terminal status) as terminal states.
type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusBootstrapping Status = "bootstrapping"
	StatusActive        Status = "active"
	StatusEnded         Status = "ended"
	StatusFinalized     Status = "finalized"
	StatusCancelled     Status = "cancelled"
)

// rank orders non-terminal statuses so sync_status never regresses.
func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusBootstrapping:
		return 1
	case StatusActive:
		return 2
	case StatusEnded:
		return 3
	default:
		return 4
	}
}

// IsTerminal reports whether no further economic transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// Coin is a (denom, amount) pair, the smallest unit the engine reasons in.
type Coin struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
}

// Stream is the single global state for one continuous-rate auction
// (spec.md §3 "Stream").
type Stream struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	StreamAdmin string `json:"streamAdmin"`
	Treasury    string `json:"treasury"`

	OutDenom string   `json:"outDenom"`
	OutTotal *big.Int `json:"outTotal"` // committed supply at creation
	InDenom  string   `json:"inDenom"`

	BootstrappingStartTime time.Time `json:"bootstrappingStartTime"`
	StartTime               time.Time `json:"startTime"`
	EndTime                 time.Time `json:"endTime"`
	LastUpdated             time.Time `json:"lastUpdated"`

	DistIndex            rational.Rational `json:"-"`
	Shares               *big.Int          `json:"shares"`
	InSupply             *big.Int          `json:"inSupply"`
	SpentIn              *big.Int          `json:"spentIn"`
	OutRemaining         *big.Int          `json:"outRemaining"`
	CurrentStreamedPrice rational.Rational `json:"-"`

	Status Status `json:"status"`

	Threshold *big.Int `json:"threshold,omitempty"` // nil = no threshold

	CreatedAt time.Time `json:"createdAt"`
}

// DistIndexString / CurrentStreamedPriceString expose the rational
// accumulators to JSON consumers without reaching into unexported fields.
func (s *Stream) DistIndexString() string            { return s.DistIndex.String() }
func (s *Stream) CurrentStreamedPriceString() string { return s.CurrentStreamedPrice.String() }

// Params is the caller-supplied shape for minting a new stream; the
// registry validates and stamps the timing/identity fields before calling
// Service.Create.
type Params struct {
	Name        string
	URL         string
	StreamAdmin string
	Treasury    string
	OutDenom    string
	OutAmount   *big.Int
	InDenom     string

	BootstrappingStartTime time.Time
	StartTime              time.Time
	EndTime                time.Time

	Threshold *big.Int
}

// New constructs a Stream in StatusWaiting from validated params. It does
// not persist anything; callers (the registry) call Service.Create.
func New(id string, p Params, now time.Time) *Stream {
	return &Stream{
		ID:                      id,
		Name:                    p.Name,
		URL:                     p.URL,
		StreamAdmin:             p.StreamAdmin,
		Treasury:                p.Treasury,
		OutDenom:                p.OutDenom,
		OutTotal:                new(big.Int).Set(p.OutAmount),
		InDenom:                 p.InDenom,
		BootstrappingStartTime:  p.BootstrappingStartTime,
		StartTime:               p.StartTime,
		EndTime:                 p.EndTime,
		LastUpdated:             now,
		DistIndex:               rational.Zero(),
		Shares:                  big.NewInt(0),
		InSupply:                big.NewInt(0),
		SpentIn:                 big.NewInt(0),
		OutRemaining:            new(big.Int).Set(p.OutAmount),
		CurrentStreamedPrice:    rational.Zero(),
		Status:                  StatusWaiting,
		Threshold:               p.Threshold,
		CreatedAt:               now,
	}
}

// Store persists stream state.
type Store interface {
	Create(ctx context.Context, s *Stream) error
	Get(ctx context.Context, id string) (*Stream, error)
	Update(ctx context.Context, s *Stream) error
	List(ctx context.Context, startAfter string, limit int) ([]*Stream, error)
	ListActiveUntouchedSince(ctx context.Context, before time.Time, limit int) ([]*Stream, error)
}

// LedgerService abstracts fund movement so the engine never imports a
// transport or signing package, mirroring streams.LedgerService in the
// teacher. Hold/ConfirmHold/ReleaseHold model the two-phase escrow of a
// buyer's held input; Deposit credits a recipient directly (treasury, fee
// collector, or a buyer's purchased output). Actual message dispatch,
// address derivation, and signing remain out of scope (spec.md §1) —
// this interface is the seam.
type LedgerService interface {
	Hold(ctx context.Context, owner, denom string, amount *big.Int, reference string) error
	ConfirmHold(ctx context.Context, owner, denom string, amount *big.Int, reference string) error
	ReleaseHold(ctx context.Context, owner, denom string, amount *big.Int, reference string) error
	Deposit(ctx context.Context, addr, denom string, amount *big.Int, reference string) error
}

// TransactionRecorder records economically meaningful events for
// downstream reputation/analytics consumers, mirroring
// streams.TransactionRecorder.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, streamID, from, to, denom string, amount *big.Int, status string) error
}

// SubscribeRequest is the parameters for Service.Subscribe.
type SubscribeRequest struct {
	Owner    string
	InAmount *big.Int
	InDenom  string
}

// WithdrawRequest is the parameters for Service.Withdraw; Cap nil means
// withdraw the full position balance.
type WithdrawRequest struct {
	Owner string
	Cap   *big.Int
}

// FinalizeRequest carries the optional treasury override named in the
// operation surface (spec.md §6 update_stream/finalize_stream{new_treasury?}).
type FinalizeRequest struct {
	Caller      string
	NewTreasury string
}
