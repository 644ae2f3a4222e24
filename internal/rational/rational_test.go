package rational

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func bi(n int64) *big.Int { return big.NewInt(n) }

func TestAddSubRoundTrip(t *testing.T) {
	a := New(bi(1), bi(3))
	b := New(bi(1), bi(6))
	sum := a.Add(b) // 1/3 + 1/6 = 1/2
	require.Equal(t, 0, sum.Cmp(New(bi(1), bi(2))))

	back := sum.Sub(b)
	require.Equal(t, 0, back.Cmp(a))
}

func TestFloorAndFracPart(t *testing.T) {
	r := New(bi(7), bi(2)) // 3.5
	require.Equal(t, bi(3), r.Floor())

	frac := r.FracPart()
	require.Equal(t, 0, frac.Cmp(New(bi(1), bi(2))))
}

func TestMulQuoInt(t *testing.T) {
	r := FromInt(bi(10))
	r = r.QuoInt(bi(4)) // 10/4 = 5/2
	require.Equal(t, 0, r.Cmp(New(bi(5), bi(2))))

	r = r.MulInt(bi(4)) // back to 10
	require.Equal(t, 0, r.Cmp(FromInt(bi(10))))
}

func TestSubNegativePanics(t *testing.T) {
	a := New(bi(1), bi(2))
	b := New(bi(1), bi(1))
	require.Panics(t, func() { a.Sub(b) })
}

func TestZeroIsZero(t *testing.T) {
	require.True(t, Zero().IsZero())
	require.False(t, FromInt(bi(1)).IsZero())
}

func TestPendingPurchaseAccumulatesExactly(t *testing.T) {
	// Simulates 1000 reconciliations each adding 1/3 of a share's worth,
	// verifying no drift accumulates versus the exact rational sum.
	acc := Zero()
	for i := 0; i < 1000; i++ {
		acc = acc.Add(New(bi(1), bi(3)))
	}
	require.Equal(t, 0, acc.Cmp(New(bi(1000), bi(3))))
}
