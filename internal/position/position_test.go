package position

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamswap/engine/internal/rational"
)

func TestReconcileNoSharesIsNoop(t *testing.T) {
	now := time.Now()
	p := New("str_1", "0xbuyer", now)
	dist := rational.New(big.NewInt(5), big.NewInt(1))

	Reconcile(p, dist, big.NewInt(0), big.NewInt(0), now.Add(time.Second))

	require.Equal(t, 0, p.Purchased.Sign())
	require.Equal(t, 0, dist.Cmp(p.Index))
}

func TestReconcileCreditsWholeAndCarriesFraction(t *testing.T) {
	now := time.Now()
	p := New("str_1", "0xbuyer", now)
	p.Shares = big.NewInt(3)
	p.InBalance = big.NewInt(1000)

	// delta = 1/3 per share -> purchasedFraction = 3 * (1/3) = 1 exactly.
	dist := rational.New(big.NewInt(1), big.NewInt(3))
	Reconcile(p, dist, big.NewInt(1000), big.NewInt(3), now.Add(time.Second))

	require.Equal(t, big.NewInt(1), p.Purchased)
	require.True(t, p.PendingPurchase.IsZero())
}

func TestReconcileIdempotentAtSameNow(t *testing.T) {
	// P4: two consecutive reconciliations at the same dist_index produce
	// identical state after the first.
	now := time.Now()
	p := New("str_1", "0xbuyer", now)
	p.Shares = big.NewInt(7)
	p.InBalance = big.NewInt(500)

	dist := rational.New(big.NewInt(5), big.NewInt(7))
	Reconcile(p, dist, big.NewInt(500), big.NewInt(7), now.Add(time.Second))

	purchasedAfterFirst := new(big.Int).Set(p.Purchased)
	spentAfterFirst := new(big.Int).Set(p.Spent)
	inBalanceAfterFirst := new(big.Int).Set(p.InBalance)

	Reconcile(p, dist, big.NewInt(500), big.NewInt(7), now.Add(time.Second))

	require.Equal(t, purchasedAfterFirst, p.Purchased)
	require.Equal(t, spentAfterFirst, p.Spent)
	require.Equal(t, inBalanceAfterFirst, p.InBalance)
}

func TestReconcileAccumulatesPendingAcrossCalls(t *testing.T) {
	// Three reconciliations each crediting 1/3 share-unit should eventually
	// yield exactly 1 whole unit purchased with no drift, demonstrating why
	// pending_purchase is mandatory (spec §4.1).
	now := time.Now()
	p := New("str_1", "0xbuyer", now)
	p.Shares = big.NewInt(1)

	dist := rational.Zero()
	for i := 0; i < 3; i++ {
		dist = dist.Add(rational.New(big.NewInt(1), big.NewInt(3)))
		Reconcile(p, dist, big.NewInt(0), big.NewInt(1), now.Add(time.Duration(i+1)*time.Second))
	}

	require.Equal(t, big.NewInt(1), p.Purchased)
	require.True(t, p.PendingPurchase.IsZero())
}
