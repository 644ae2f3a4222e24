package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDepositHoldReleaseRoundTrip(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "alice", "uusdc", big.NewInt(1000), "seed"))

	bal, err := l.GetBalance(ctx, "alice", "uusdc")
	require.NoError(t, err)
	require.Equal(t, "1000", bal.Available)

	require.NoError(t, l.Hold(ctx, "alice", "uusdc", big.NewInt(400), "sub-1"))
	bal, _ = l.GetBalance(ctx, "alice", "uusdc")
	require.Equal(t, "600", bal.Available)
	require.Equal(t, "400", bal.Pending)

	require.NoError(t, l.ReleaseHold(ctx, "alice", "uusdc", big.NewInt(150), "withdraw-1"))
	bal, _ = l.GetBalance(ctx, "alice", "uusdc")
	require.Equal(t, "750", bal.Available)
	require.Equal(t, "250", bal.Pending)
}

func TestHoldRejectsInsufficientBalance(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "bob", "uusdc", big.NewInt(100), "seed"))
	err := l.Hold(ctx, "bob", "uusdc", big.NewInt(500), "sub-1")
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestConfirmHoldMovesToTotalOut(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "carol", "uusdc", big.NewInt(1000), "seed"))
	require.NoError(t, l.Hold(ctx, "carol", "uusdc", big.NewInt(1000), "sub-1"))
	require.NoError(t, l.ConfirmHold(ctx, "carol", "uusdc", big.NewInt(1000), "finalize-1"))

	bal, _ := l.GetBalance(ctx, "carol", "uusdc")
	require.Equal(t, "0", bal.Pending)
	require.Equal(t, "1000", bal.TotalOut)
}

func TestBalancesAreIsolatedPerDenom(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "dana", "uusdc", big.NewInt(500), "seed"))
	require.NoError(t, l.Deposit(ctx, "dana", "token", big.NewInt(20), "seed"))

	balances, err := l.ListBalances(ctx, "dana")
	require.NoError(t, err)
	require.Len(t, balances, 2)
}

func TestInvalidAmountRejected(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	require.ErrorIs(t, l.Deposit(ctx, "eve", "uusdc", big.NewInt(0), "seed"), ErrInvalidAmount)
	require.ErrorIs(t, l.Deposit(ctx, "eve", "uusdc", big.NewInt(-5), "seed"), ErrInvalidAmount)
}
