package registry

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamswap/engine/internal/position"
	"github.com/streamswap/engine/internal/stream"
)

type mockLedger struct {
	calls int
}

func (m *mockLedger) Hold(context.Context, string, string, *big.Int, string) error         { return nil }
func (m *mockLedger) ConfirmHold(context.Context, string, string, *big.Int, string) error  { return nil }
func (m *mockLedger) ReleaseHold(context.Context, string, string, *big.Int, string) error  { return nil }
func (m *mockLedger) Deposit(context.Context, string, string, *big.Int, string) error {
	m.calls++
	return nil
}

func testParams() Params {
	return Params{
		RegistryAdmin:                 "0xadmin0000000000000000000000000000000001",
		FeeCollector:                  "0xfee000000000000000000000000000000000002",
		StreamCreationFeeDenom:        "uusdc",
		StreamCreationFeeAmount:       "1000000",
		ExitFeePercentBPS:             100,
		AcceptedInDenoms:              []string{"uusdc"},
		MinWaitingDurationSecs:        0,
		MinBootstrappingDurationSecs: 60,
		MinStreamDurationSecs:        3600,
		TosVersion:                   "1",
	}
}

func newTestRegistry(t *testing.T) (*Service, *mockLedger) {
	t.Helper()
	store := NewMemoryStore(testParams())
	streamStore := stream.NewMemoryStore()
	positionStore := position.NewMemoryStore()
	ledger := &mockLedger{}
	streamSvc := stream.NewService(streamStore, positionStore, ledger, 100)
	return NewService(store, streamSvc, ledger), ledger
}

func validCreateRequest(now time.Time) CreateStreamRequest {
	return CreateStreamRequest{
		Name:                    "genesis-drop",
		StreamAdmin:             "0xc000000000000000000000000000000000000001",
		Treasury:                "0xd000000000000000000000000000000000000002",
		OutDenom:                "token",
		OutAmount:               "1000000",
		InDenom:                 "uusdc",
		BootstrappingStartTime:  now.Add(time.Minute),
		StartTime:               now.Add(2 * time.Minute),
		EndTime:                 now.Add(2*time.Minute + 2*time.Hour),
		TosVersion:              "1",
		Payment:                 []Coin{{Denom: "uusdc", Amount: "1000000"}, {Denom: "token", Amount: "1000000"}},
	}
}

func TestCreateStreamSucceedsAndCollectsFee(t *testing.T) {
	svc, ledger := newTestRegistry(t)
	ctx := context.Background()

	s, err := svc.CreateStream(ctx, validCreateRequest(time.Now()))
	require.NoError(t, err)
	require.Equal(t, stream.StatusWaiting, s.Status)
	require.Equal(t, 1, ledger.calls)
}

func TestCreateStreamRejectsWrongFee(t *testing.T) {
	svc, _ := newTestRegistry(t)
	ctx := context.Background()

	req := validCreateRequest(time.Now())
	req.Payment = []Coin{{Denom: "uusdc", Amount: "1"}}

	_, err := svc.CreateStream(ctx, req)
	require.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestCreateStreamRejectsUnacceptedDenom(t *testing.T) {
	svc, _ := newTestRegistry(t)
	ctx := context.Background()

	req := validCreateRequest(time.Now())
	req.InDenom = "notallowed"

	_, err := svc.CreateStream(ctx, req)
	require.ErrorIs(t, err, ErrDenomNotAllowed)
}

func TestCreateStreamRejectsShortDuration(t *testing.T) {
	svc, _ := newTestRegistry(t)
	ctx := context.Background()

	req := validCreateRequest(time.Now())
	req.EndTime = req.StartTime.Add(time.Minute) // below MinStreamDurationSecs

	_, err := svc.CreateStream(ctx, req)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestFrozenRegistryRejectsCreate(t *testing.T) {
	svc, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, svc.Freeze(ctx, "0xadmin0000000000000000000000000000000001", "pausing for audit"))

	_, err := svc.CreateStream(ctx, validCreateRequest(time.Now()))
	require.ErrorIs(t, err, ErrFrozen)

	require.NoError(t, svc.Unfreeze(ctx, "0xadmin0000000000000000000000000000000001"))
	_, err = svc.CreateStream(ctx, validCreateRequest(time.Now()))
	require.NoError(t, err)
}

func TestFreezeRequiresRegistryAdmin(t *testing.T) {
	svc, _ := newTestRegistry(t)
	ctx := context.Background()

	err := svc.Freeze(ctx, "0xnotadmin000000000000000000000000000009", "nope")
	require.ErrorIs(t, err, ErrUnauthorized)
}
