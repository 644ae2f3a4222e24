package stream

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/streamswap/engine/internal/logging"
	"github.com/streamswap/engine/internal/position"
	"github.com/streamswap/engine/internal/rational"
	"github.com/streamswap/engine/internal/syncutil"
)

// Service implements the distribution engine's operations. One Service
// instance serves every stream; isolation between concurrent streams comes
// from a per-stream mutex, not a per-service one. Locks are drawn from a
// fixed 256-shard pool rather than one entry per stream ID, so memory stays
// bounded no matter how many streams the registry has ever created.
type Service struct {
	store     Store
	positions position.Store
	ledger    LedgerService
	recorder  TransactionRecorder
	locks     syncutil.ShardedMutex

	exitFeeBPS   int64  // basis points taken from spent_in at finalize
	feeCollector string // address the exit fee is paid to
}

// NewService wires the engine to its collaborators. exitFeeBPS is the
// protocol-wide exit fee in basis points (spec.md §4.2 finalize_stream),
// applied uniformly; a per-stream override is an Open Question left
// unresolved by spec.md and not implemented here.
func NewService(store Store, positions position.Store, ledger LedgerService, exitFeeBPS int64) *Service {
	return &Service{
		store:        store,
		positions:    positions,
		ledger:       ledger,
		exitFeeBPS:   exitFeeBPS,
		feeCollector: "fee-collector",
	}
}

// WithRecorder attaches an optional analytics/reputation sink.
func (s *Service) WithRecorder(r TransactionRecorder) *Service {
	s.recorder = r
	return s
}

func (s *Service) record(ctx context.Context, streamID, from, to, denom string, amount *big.Int, status string) {
	if s.recorder == nil || amount == nil || amount.Sign() == 0 {
		return
	}
	if err := s.recorder.RecordTransaction(ctx, streamID, from, to, denom, amount, status); err != nil {
		logging.FromContext(ctx).Warn("stream: failed to record transaction", "streamId", streamID, "error", err)
	}
}

// Create mints a new stream in StatusWaiting. The registry is responsible
// for validating Params and assigning s.ID before calling this.
func (s *Service) Create(ctx context.Context, st *Stream) error {
	unlock := s.locks.Lock(st.ID)
	defer unlock()
	if err := s.store.Create(ctx, st); err != nil {
		return err
	}
	streamsCreated.Inc()
	return nil
}

// Get returns a stream without reconciling its clock; callers that need a
// fresh view should use SyncTime or one of the mutating operations.
func (s *Service) Get(ctx context.Context, id string) (*Stream, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of streams ordered by ID.
func (s *Service) List(ctx context.Context, startAfter string, limit int) ([]*Stream, error) {
	return s.store.List(ctx, startAfter, limit)
}

// syncStatus advances st.Status based on now, never regressing it. It must
// be called with the stream's lock held.
func syncStatus(st *Stream, now time.Time) {
	if st.Status.IsTerminal() {
		return
	}
	var computed Status
	switch {
	case !now.Before(st.EndTime):
		computed = StatusEnded
	case !now.Before(st.StartTime):
		computed = StatusActive
	case !now.Before(st.BootstrappingStartTime):
		computed = StatusBootstrapping
	default:
		computed = StatusWaiting
	}
	if computed.rank() > st.Status.rank() {
		st.Status = computed
	}
}

// syncTime is the core operation of spec.md §4.2: it is run at the start of
// every mutating call and advances dist_index linearly across the window
// since the stream was last touched, clamped to [max(last_updated,
// start_time), min(now, end_time)]. Distribution is evaluated relative to
// the *remaining* window (end_time - windowStart), not the total stream
// duration — the insight that makes correctness independent of how often a
// stream happens to be reconciled (spec.md §9, properties P1/P5).
//
// Must be called with the stream's lock held.
func syncTime(st *Stream, now time.Time) {
	syncStatus(st, now)

	if st.Status.IsTerminal() {
		return
	}

	windowStart := st.LastUpdated
	if st.StartTime.After(windowStart) {
		windowStart = st.StartTime
	}
	windowEnd := now
	if st.EndTime.Before(windowEnd) {
		windowEnd = st.EndTime
	}

	if !windowEnd.After(windowStart) || st.Shares.Sign() == 0 {
		st.LastUpdated = now
		return
	}

	remaining := st.EndTime.Sub(windowStart)
	elapsed := windowEnd.Sub(windowStart)
	if remaining <= 0 {
		st.LastUpdated = now
		return
	}

	diff := rational.New(big.NewInt(int64(elapsed)), big.NewInt(int64(remaining)))

	newDistribution := diff.MulInt(st.OutRemaining).Floor()
	spent := diff.MulInt(st.InSupply).Floor()

	if spent.Sign() > 0 {
		st.SpentIn = new(big.Int).Add(st.SpentIn, spent)
		st.InSupply = new(big.Int).Sub(st.InSupply, spent)
	}

	if newDistribution.Sign() > 0 {
		st.OutRemaining = new(big.Int).Sub(st.OutRemaining, newDistribution)
		st.DistIndex = st.DistIndex.Add(rational.New(newDistribution, big.NewInt(1)).QuoInt(st.Shares))
		st.CurrentStreamedPrice = rational.New(spent, big.NewInt(1)).QuoInt(newDistribution)
	}

	st.LastUpdated = now
}

// SyncTime is syncTime exposed as a standalone operation (spec.md §6
// sync_stream / query_stream-triggering callers that want a fresh read
// without mutating a position), e.g. for AnalyticsService and the timer
// sweep.
func (s *Service) SyncTime(ctx context.Context, streamID string, now time.Time) (*Stream, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	syncTime(st, now)
	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) getPosition(ctx context.Context, streamID, owner string, now time.Time) (*position.Position, error) {
	pos, err := s.positions.Get(ctx, streamID, owner)
	if err != nil {
		if err == position.ErrNotFound {
			return position.New(streamID, owner, now), nil
		}
		return nil, err
	}
	return pos, nil
}

func computeSharesMinted(existingShares, existingInSupply, inAmount *big.Int) *big.Int {
	if existingShares.Sign() == 0 || existingInSupply.Sign() == 0 {
		return new(big.Int).Set(inAmount)
	}
	minted := new(big.Int).Mul(existingShares, inAmount)
	minted.Div(minted, existingInSupply) // floor: never over-mint
	return minted
}

func computeSharesRemovedRoundUp(positionShares, positionInBalance, withdrawAmount *big.Int) *big.Int {
	if positionInBalance.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(positionShares, withdrawAmount)
	removed, rem := new(big.Int).QuoRem(num, positionInBalance, new(big.Int))
	if rem.Sign() != 0 {
		removed.Add(removed, big.NewInt(1)) // round up: never let the pool retain a fractional claim
	}
	return removed
}

// Subscribe buys into the stream: the owner's input is held, the pool
// mints shares proportional to the deposit at the current shares/in_supply
// ratio, and the position is reconciled before the new shares are added so
// the deposit does not retroactively claim output from before it existed
// (spec.md §4.1/§6 subscribe).
func (s *Service) Subscribe(ctx context.Context, streamID string, req SubscribeRequest) (*position.Position, error) {
	if req.InAmount == nil || req.InAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.Lock(streamID)
	defer unlock()

	now := time.Now()
	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if req.InDenom != st.InDenom {
		return nil, ErrInvalidDenom
	}

	syncTime(st, now)
	if st.Status != StatusBootstrapping && st.Status != StatusActive {
		return nil, ErrInvalidStatus
	}

	pos, err := s.getPosition(ctx, streamID, req.Owner, now)
	if err != nil {
		return nil, err
	}
	if pos.IsClosed() {
		return nil, ErrPositionClosed
	}
	position.Reconcile(pos, st.DistIndex, st.InSupply, st.Shares, now)

	if err := s.ledger.Hold(ctx, req.Owner, st.InDenom, req.InAmount, streamID); err != nil {
		return nil, fmt.Errorf("stream: hold failed: %w", err)
	}

	minted := computeSharesMinted(st.Shares, st.InSupply, req.InAmount)
	st.Shares = new(big.Int).Add(st.Shares, minted)
	st.InSupply = new(big.Int).Add(st.InSupply, req.InAmount)

	pos.Shares = new(big.Int).Add(pos.Shares, minted)
	pos.InBalance = new(big.Int).Add(pos.InBalance, req.InAmount)

	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	if err := s.positions.Put(ctx, pos); err != nil {
		return nil, err
	}
	s.record(ctx, streamID, req.Owner, streamID, st.InDenom, req.InAmount, "subscribed")
	subscriptionsTotal.Inc()
	return pos, nil
}

// Withdraw removes some or all of an unspent position balance, returning
// shares to the pool at a rounded-up rate so the remaining pool never picks
// up a fractional claim the withdrawer leaves behind (spec.md §6 withdraw).
func (s *Service) Withdraw(ctx context.Context, streamID string, req WithdrawRequest) (*position.Position, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	now := time.Now()
	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	syncTime(st, now)
	if st.Status != StatusBootstrapping && st.Status != StatusActive {
		return nil, ErrInvalidStatus
	}

	pos, err := s.positions.Get(ctx, streamID, req.Owner)
	if err != nil {
		return nil, err
	}
	if pos.IsClosed() {
		return nil, ErrPositionClosed
	}
	position.Reconcile(pos, st.DistIndex, st.InSupply, st.Shares, now)

	amount := req.Cap
	if amount == nil {
		amount = new(big.Int).Set(pos.InBalance)
	}
	if amount.Sign() <= 0 || amount.Cmp(pos.InBalance) > 0 {
		return nil, ErrWithdrawTooLarge
	}

	removed := computeSharesRemovedRoundUp(pos.Shares, pos.InBalance, amount)
	if removed.Cmp(pos.Shares) > 0 {
		removed = new(big.Int).Set(pos.Shares)
	}
	if removed.Cmp(st.Shares) > 0 {
		removed = new(big.Int).Set(st.Shares)
	}

	st.Shares = new(big.Int).Sub(st.Shares, removed)
	st.InSupply = new(big.Int).Sub(st.InSupply, amount)
	pos.Shares = new(big.Int).Sub(pos.Shares, removed)
	pos.InBalance = new(big.Int).Sub(pos.InBalance, amount)

	if err := s.ledger.ReleaseHold(ctx, req.Owner, st.InDenom, amount, streamID); err != nil {
		return nil, fmt.Errorf("stream: release hold failed: %w", err)
	}

	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	if err := s.positions.Put(ctx, pos); err != nil {
		return nil, err
	}
	s.record(ctx, streamID, streamID, req.Owner, st.InDenom, amount, "withdrawn")
	withdrawalsTotal.Inc()
	return pos, nil
}

// UpdatePosition reconciles a position against the current stream state
// without otherwise mutating it — the "refresh my claim" operation named
// in spec.md §6.
func (s *Service) UpdatePosition(ctx context.Context, streamID, owner string) (*position.Position, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	now := time.Now()
	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	syncTime(st, now)

	pos, err := s.positions.Get(ctx, streamID, owner)
	if err != nil {
		return nil, err
	}
	if pos.IsClosed() {
		return nil, ErrPositionClosed
	}
	position.Reconcile(pos, st.DistIndex, st.InSupply, st.Shares, now)

	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	if err := s.positions.Put(ctx, pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// Finalize closes out an Ended stream: below threshold it behaves exactly
// like Cancel (the unmet-threshold path named in spec.md §4.2); otherwise
// it takes the protocol exit fee from spent_in and pays the remainder to
// the stream's treasury (or req.NewTreasury, if the caller is authorized to
// redirect it), then marks the stream Finalized.
func (s *Service) Finalize(ctx context.Context, streamID string, req FinalizeRequest) (*Stream, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	now := time.Now()
	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if req.Caller != st.StreamAdmin {
		return nil, ErrUnauthorized
	}
	syncTime(st, now)
	if st.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}
	if st.Status != StatusEnded {
		return nil, ErrInvalidStatus
	}

	if st.Threshold != nil && st.SpentIn.Cmp(st.Threshold) < 0 {
		return s.cancelLocked(ctx, st, now)
	}

	treasury := st.Treasury
	if req.NewTreasury != "" {
		treasury = req.NewTreasury
	}

	gross := new(big.Int).Set(st.SpentIn)
	exitFee := new(big.Int).Mul(gross, big.NewInt(s.exitFeeBPS))
	exitFee.Div(exitFee, big.NewInt(10000))
	creatorRevenue := new(big.Int).Sub(gross, exitFee)

	if creatorRevenue.Sign() > 0 {
		if err := s.ledger.Deposit(ctx, treasury, st.InDenom, creatorRevenue, streamID); err != nil {
			return nil, fmt.Errorf("stream: treasury payout failed: %w", err)
		}
	}
	if exitFee.Sign() > 0 {
		if err := s.ledger.Deposit(ctx, s.feeCollector, st.InDenom, exitFee, streamID); err != nil {
			return nil, fmt.Errorf("stream: fee payout failed: %w", err)
		}
	}

	st.Status = StatusFinalized
	st.Treasury = treasury
	st.LastUpdated = now

	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	s.record(ctx, streamID, streamID, treasury, st.InDenom, creatorRevenue, "finalized")
	streamsTerminal.WithLabelValues("finalized").Inc()
	streamDurationSeconds.Observe(now.Sub(st.CreatedAt).Seconds())
	return st, nil
}

// WithFeeCollector sets the address the protocol exit fee is paid to.
func (s *Service) WithFeeCollector(addr string) *Service {
	s.feeCollector = addr
	return s
}

// Cancel terminates a stream before it would otherwise finalize — either
// the protocol admin cutting off a misbehaving stream, or the
// threshold-miss path Finalize delegates to. The committed out_asset
// supply is returned to the treasury since no distribution is honored;
// buyers recover their contributions one by one via ExitCancelled.
func (s *Service) Cancel(ctx context.Context, streamID string, caller string) (*Stream, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	now := time.Now()
	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if caller != st.StreamAdmin {
		return nil, ErrUnauthorized
	}
	syncTime(st, now)
	return s.cancelLocked(ctx, st, now)
}

// cancelLocked performs the cancellation transition; caller must hold the
// stream's lock and must have already called syncTime.
func (s *Service) cancelLocked(ctx context.Context, st *Stream, now time.Time) (*Stream, error) {
	if st.Status.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	if st.OutTotal.Sign() > 0 {
		if err := s.ledger.Deposit(ctx, st.Treasury, st.OutDenom, st.OutTotal, st.ID); err != nil {
			return nil, fmt.Errorf("stream: refund of committed supply failed: %w", err)
		}
	}

	st.Status = StatusCancelled
	st.LastUpdated = now
	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	s.record(ctx, st.ID, st.ID, st.Treasury, st.OutDenom, st.OutTotal, "cancelled")
	streamsTerminal.WithLabelValues("cancelled").Inc()
	streamDurationSeconds.Observe(now.Sub(st.CreatedAt).Seconds())
	return st, nil
}

// CancelWithThreshold is Cancel under a different name for the operation
// surface named in spec.md §6. It has the same authorization check and the
// same cancelLocked refund path that Finalize takes on a threshold miss; it
// does not check the threshold itself, and no HTTP route calls it.
func (s *Service) CancelWithThreshold(ctx context.Context, streamID string, caller string) (*Stream, error) {
	return s.Cancel(ctx, streamID, caller)
}

// Exit settles a finalized position: the buyer's purchased output is
// delivered, and any unspent input dust still sitting in the position is
// released back to them (spec.md §6 exit_stream).
func (s *Service) Exit(ctx context.Context, streamID, owner string) (*position.Position, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	now := time.Now()
	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if st.Status != StatusFinalized {
		return nil, ErrInvalidStatus
	}

	pos, err := s.positions.Get(ctx, streamID, owner)
	if err != nil {
		return nil, err
	}
	if pos.IsClosed() {
		return nil, ErrPositionClosed
	}
	position.Reconcile(pos, st.DistIndex, st.InSupply, st.Shares, now)

	if pos.Purchased.Sign() > 0 {
		if err := s.ledger.Deposit(ctx, owner, st.OutDenom, pos.Purchased, streamID); err != nil {
			return nil, fmt.Errorf("stream: output delivery failed: %w", err)
		}
	}
	if pos.InBalance.Sign() > 0 {
		if err := s.ledger.ReleaseHold(ctx, owner, st.InDenom, pos.InBalance, streamID); err != nil {
			return nil, fmt.Errorf("stream: dust release failed: %w", err)
		}
	}

	exitTime := now
	pos.ExitDate = &exitTime
	if err := s.positions.Put(ctx, pos); err != nil {
		return nil, err
	}
	s.record(ctx, streamID, streamID, owner, st.OutDenom, pos.Purchased, "exited")
	return pos, nil
}

// ExitCancelled refunds a buyer's full original contribution — both the
// dust still sitting as in_balance and whatever had already been counted
// as spent — from a Cancelled stream. Per spec.md §8 scenario S3, buyers
// recover exactly what they put in regardless of how far spent_in had
// progressed before cancellation, since no output is ever delivered.
func (s *Service) ExitCancelled(ctx context.Context, streamID, owner string) (*position.Position, error) {
	unlock := s.locks.Lock(streamID)
	defer unlock()

	st, err := s.store.Get(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if st.Status != StatusCancelled {
		return nil, ErrInvalidStatus
	}

	pos, err := s.positions.Get(ctx, streamID, owner)
	if err != nil {
		return nil, err
	}
	if pos.IsClosed() {
		return nil, ErrPositionClosed
	}

	refund := new(big.Int).Add(pos.InBalance, pos.Spent)
	if refund.Sign() > 0 {
		if err := s.ledger.ReleaseHold(ctx, owner, st.InDenom, refund, streamID); err != nil {
			return nil, fmt.Errorf("stream: cancellation refund failed: %w", err)
		}
	}

	now := time.Now()
	pos.InBalance = big.NewInt(0)
	pos.Spent = big.NewInt(0)
	pos.ExitDate = &now
	if err := s.positions.Put(ctx, pos); err != nil {
		return nil, err
	}
	s.record(ctx, streamID, streamID, owner, st.InDenom, refund, "exit_cancelled")
	return pos, nil
}
