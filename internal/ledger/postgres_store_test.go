package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamswap/engine/internal/testutil"
)

// TestPostgresLedgerRoundTrip exercises the real atomic-arithmetic SQL in
// PostgresStore, not just the in-memory stand-in. Uses POSTGRES_URL or an
// ephemeral container; see testutil.PGTest.
func TestPostgresLedgerRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	l := New(NewPostgresStore(db))
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "alice", "uusdc", big.NewInt(1000), "seed"))
	bal, err := l.GetBalance(ctx, "alice", "uusdc")
	require.NoError(t, err)
	require.Equal(t, "1000", bal.Available)

	require.NoError(t, l.Hold(ctx, "alice", "uusdc", big.NewInt(400), "sub-1"))
	bal, err = l.GetBalance(ctx, "alice", "uusdc")
	require.NoError(t, err)
	require.Equal(t, "600", bal.Available)
	require.Equal(t, "400", bal.Pending)

	require.NoError(t, l.ConfirmHold(ctx, "alice", "uusdc", big.NewInt(400), "finalize-1"))
	bal, err = l.GetBalance(ctx, "alice", "uusdc")
	require.NoError(t, err)
	require.Equal(t, "0", bal.Pending)
	require.Equal(t, "400", bal.TotalOut)
}

// TestPostgresLedgerHoldRejectsInsufficientBalance checks the WHERE-clause
// guard on the UPDATE statement, not just the Go-side bookkeeping.
func TestPostgresLedgerHoldRejectsInsufficientBalance(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	l := New(NewPostgresStore(db))
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "bob", "uusdc", big.NewInt(100), "seed"))
	err := l.Hold(ctx, "bob", "uusdc", big.NewInt(500), "sub-1")
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

// TestPostgresLedgerBalancesIsolatedPerDenom ensures the (owner, denom)
// composite primary key keeps balances from leaking across denoms.
func TestPostgresLedgerBalancesIsolatedPerDenom(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	l := New(NewPostgresStore(db))
	ctx := context.Background()

	require.NoError(t, l.Deposit(ctx, "dana", "uusdc", big.NewInt(500), "seed"))
	require.NoError(t, l.Deposit(ctx, "dana", "token", big.NewInt(20), "seed"))

	balances, err := l.ListBalances(ctx, "dana")
	require.NoError(t, err)
	require.Len(t, balances, 2)
}
