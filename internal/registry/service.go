package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/streamswap/engine/internal/idgen"
	"github.com/streamswap/engine/internal/security"
	"github.com/streamswap/engine/internal/stream"
	"github.com/streamswap/engine/internal/validation"
)

// StreamLedger mirrors the part of stream.LedgerService the registry needs
// directly: collecting the stream creation fee into the fee collector
// before the stream itself is minted.
type StreamLedger interface {
	Deposit(ctx context.Context, addr, denom string, amount *big.Int, reference string) error
}

// Service implements the registry operations of spec.md §4.3.
type Service struct {
	store   Store
	streams *stream.Service
	ledger  StreamLedger
}

// NewService wires the registry to its collaborators.
func NewService(store Store, streams *stream.Service, ledger StreamLedger) *Service {
	return &Service{store: store, streams: streams, ledger: ledger}
}

// QueryParams returns the current protocol-wide parameters.
func (s *Service) QueryParams(ctx context.Context) (*Params, error) {
	return s.store.GetParams(ctx)
}

// QueryStream is a pass-through convenience so callers do not need to
// import internal/stream directly just to look one up by ID.
func (s *Service) QueryStream(ctx context.Context, id string) (*stream.Stream, error) {
	return s.streams.Get(ctx, id)
}

// ListStreams pages through all registered streams.
func (s *Service) ListStreams(ctx context.Context, startAfter string, limit int) ([]*stream.Stream, error) {
	return s.streams.List(ctx, startAfter, limit)
}

// Freeze disables new stream creation registry-wide; in-flight streams are
// unaffected (spec.md §4.3 freeze).
func (s *Service) Freeze(ctx context.Context, caller, reason string) error {
	params, err := s.store.GetParams(ctx)
	if err != nil {
		return err
	}
	if caller != params.RegistryAdmin {
		return ErrUnauthorized
	}
	return s.store.PutFreezeState(ctx, &FreezeState{
		Frozen: true,
		Reason: reason,
		SetBy:  caller,
		SetAt:  time.Now(),
	})
}

// Unfreeze re-enables stream creation.
func (s *Service) Unfreeze(ctx context.Context, caller string) error {
	params, err := s.store.GetParams(ctx)
	if err != nil {
		return err
	}
	if caller != params.RegistryAdmin {
		return ErrUnauthorized
	}
	return s.store.PutFreezeState(ctx, &FreezeState{SetBy: caller, SetAt: time.Now()})
}

// UpdateParams replaces the protocol-wide parameters wholesale; only the
// registry admin may call this.
func (s *Service) UpdateParams(ctx context.Context, caller string, p Params) (*Params, error) {
	current, err := s.store.GetParams(ctx)
	if err != nil {
		return nil, err
	}
	if caller != current.RegistryAdmin {
		return nil, ErrUnauthorized
	}
	if p.ExitFeePercentBPS < 0 || p.ExitFeePercentBPS > 10000 {
		return nil, fmt.Errorf("%w: exitFeePercentBps must be between 0 and 10000", ErrInvalidParams)
	}
	if strings.TrimSpace(p.TosVersion) == "" {
		return nil, fmt.Errorf("%w: tosVersion must not be empty", ErrInvalidParams)
	}
	if err := s.store.PutParams(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func isAcceptedDenom(denom string, accepted []string) bool {
	for _, d := range accepted {
		if d == denom {
			return true
		}
	}
	return len(accepted) == 0 // empty allowlist means "accept anything validly formatted"
}

// CreateStream validates a creation request against the registry's
// invariants (frozen check, min-duration floors, accepted denom,
// fee-bag equality), collects the creation fee, assigns a stream ID, and
// delegates to the distribution engine to persist the new Stream
// (spec.md §4.3 create_stream).
func (s *Service) CreateStream(ctx context.Context, req CreateStreamRequest) (*stream.Stream, error) {
	freeze, err := s.store.GetFreezeState(ctx)
	if err != nil {
		return nil, err
	}
	if freeze.Frozen {
		return nil, ErrFrozen
	}

	params, err := s.store.GetParams(ctx)
	if err != nil {
		return nil, err
	}

	if errs := validation.Validate(
		validation.ValidStreamName("name", req.Name),
		validation.ValidURL("url", req.URL),
		validation.ValidAddress("streamAdmin", req.StreamAdmin),
		validation.Required("streamAdmin", req.StreamAdmin),
		validation.ValidAddress("treasury", req.Treasury),
		validation.Required("treasury", req.Treasury),
		validation.ValidDenom("outDenom", req.OutDenom),
		validation.ValidAmount("outAmount", req.OutAmount),
		validation.ValidDenom("inDenom", req.InDenom),
	); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParams, errs.Error())
	}

	if !isAcceptedDenom(req.InDenom, params.AcceptedInDenoms) {
		return nil, ErrDenomNotAllowed
	}

	if req.InDenom == req.OutDenom {
		return nil, ErrDenomConflict
	}

	if req.TosVersion != params.TosVersion {
		return nil, ErrTosMismatch
	}

	if req.URL != "" {
		if err := security.ValidateEndpointURL(req.URL); err != nil {
			return nil, fmt.Errorf("%w: url %v", ErrInvalidParams, err)
		}
	}

	now := time.Now()
	if req.BootstrappingStartTime.Sub(now) < time.Duration(params.MinWaitingDurationSecs)*time.Second {
		return nil, fmt.Errorf("%w: waiting period shorter than the protocol minimum", ErrInvalidParams)
	}
	if req.StartTime.Sub(req.BootstrappingStartTime) < time.Duration(params.MinBootstrappingDurationSecs)*time.Second {
		return nil, fmt.Errorf("%w: bootstrapping window shorter than the protocol minimum", ErrInvalidParams)
	}
	if req.EndTime.Sub(req.StartTime) < time.Duration(params.MinStreamDurationSecs)*time.Second {
		return nil, fmt.Errorf("%w: stream duration shorter than the protocol minimum", ErrInvalidParams)
	}

	outAmount, ok := new(big.Int).SetString(req.OutAmount, 10)
	if !ok || outAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: outAmount must be a positive integer", ErrInvalidParams)
	}

	var threshold *big.Int
	if strings.TrimSpace(req.Threshold) != "" {
		threshold, ok = new(big.Int).SetString(req.Threshold, 10)
		if !ok || threshold.Sign() < 0 {
			return nil, fmt.Errorf("%w: threshold must be a non-negative integer", ErrInvalidParams)
		}
	}

	expected := []Coin{
		{Denom: params.StreamCreationFeeDenom, Amount: params.StreamCreationFeeAmount},
		{Denom: req.OutDenom, Amount: req.OutAmount},
	}
	if err := CheckPayment(expected, req.Payment); err != nil {
		return nil, err
	}

	id := idgen.WithPrefix("str_")

	if s.ledger != nil {
		feeAmount, ok := new(big.Int).SetString(params.StreamCreationFeeAmount, 10)
		if ok && feeAmount.Sign() > 0 {
			if err := s.ledger.Deposit(ctx, params.FeeCollector, params.StreamCreationFeeDenom, feeAmount, id); err != nil {
				return nil, fmt.Errorf("registry: fee collection failed: %w", err)
			}
		}
	}

	st := stream.New(id, stream.Params{
		Name:                    req.Name,
		URL:                     req.URL,
		StreamAdmin:             req.StreamAdmin,
		Treasury:                req.Treasury,
		OutDenom:                req.OutDenom,
		OutAmount:               outAmount,
		InDenom:                 req.InDenom,
		BootstrappingStartTime:  req.BootstrappingStartTime,
		StartTime:               req.StartTime,
		EndTime:                 req.EndTime,
		Threshold:               threshold,
	}, now)

	if err := s.streams.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
