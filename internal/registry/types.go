// Package registry implements the stream registry: the administrative
// surface that mints new continuous-rate auctions, holds their
// protocol-wide parameters, and lets callers discover and inspect existing
// streams. The distribution math itself lives in internal/stream; this
// package only validates creation requests, assigns identity, and tracks
// the freeze switch.
package registry

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("registry: entry not found")
	ErrFrozen          = errors.New("registry: registry is frozen")
	ErrUnauthorized    = errors.New("registry: not authorized")
	ErrInvalidParams   = errors.New("registry: invalid parameters")
	ErrDenomNotAllowed = errors.New("registry: input denom not accepted")
	ErrDenomConflict   = errors.New("registry: in_denom and out_asset denom must differ")
	ErrPaymentMismatch = errors.New("registry: payment does not match expected fee")
	ErrTosMismatch     = errors.New("registry: tos_version does not match the registry's current value")
)

// Params are the protocol-wide controls an admin can tune, mirroring the
// fields carried in internal/config (spec.md §4.3 update_params).
type Params struct {
	RegistryAdmin                string   `json:"registryAdmin"`
	FeeCollector                 string   `json:"feeCollector"`
	StreamCreationFeeDenom       string   `json:"streamCreationFeeDenom"`
	StreamCreationFeeAmount      string   `json:"streamCreationFeeAmount"` // decimal string, big.Int under the hood
	ExitFeePercentBPS            int64    `json:"exitFeePercentBps"`
	AcceptedInDenoms              []string `json:"acceptedInDenoms"`
	MinWaitingDurationSecs        int64    `json:"minWaitingDurationSecs"`
	MinBootstrappingDurationSecs int64    `json:"minBootstrappingDurationSecs"`
	MinStreamDurationSecs         int64    `json:"minStreamDurationSecs"`
	TosVersion                    string   `json:"tosVersion"`
}

// FreezeState is the registry-wide kill switch independent of any single
// stream's lifecycle — freezing blocks new CreateStream calls without
// touching streams already in flight.
type FreezeState struct {
	Frozen   bool      `json:"frozen"`
	Reason   string    `json:"reason,omitempty"`
	SetBy    string    `json:"setBy,omitempty"`
	SetAt    time.Time `json:"setAt,omitempty"`
}

// Coin is a (denom, amount) pair as received on a creation request; Amount
// is a decimal string to keep the wire shape consistent with how clients
// already send amounts elsewhere, parsed to *big.Int internally.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// CreateStreamRequest is the registry-facing shape of spec.md §4.3
// create_stream; it is translated into stream.Params after validation.
type CreateStreamRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	StreamAdmin string `json:"streamAdmin"`
	Treasury    string `json:"treasury"`

	OutDenom  string `json:"outDenom"`
	OutAmount string `json:"outAmount"`
	InDenom   string `json:"inDenom"`

	BootstrappingStartTime time.Time `json:"bootstrappingStartTime"`
	StartTime              time.Time `json:"startTime"`
	EndTime                time.Time `json:"endTime"`

	Threshold string `json:"threshold,omitempty"`

	// TosVersion must match Params.TosVersion exactly; it pins the caller's
	// acknowledgment of the terms of service in force at creation time.
	TosVersion string `json:"tosVersion"`

	// Payment is the fee bag the caller attached; CheckPayment verifies it
	// against Params.StreamCreationFee{Denom,Amount} plus the out_asset
	// coin ({OutDenom, OutAmount}) by multiset equality.
	Payment []Coin `json:"payment"`
}
