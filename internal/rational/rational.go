// Package rational provides exact non-negative rational arithmetic for the
// distribution engine's accumulators.
//
// dist_index and the per-position pending_purchase remainder both need a
// denominator at least as wide as the pool's share count, which can exceed
// what any fixed-point decimal (including a 128-bit one) can represent
// without drift for large streams. Rational keeps numerator and denominator
// as arbitrary-precision big.Int and reduces every result by their GCD.
package rational

import (
	"fmt"
	"math/big"
)

// Rational is a non-negative fraction num/den, den always > 0.
// The zero value is not valid; use Zero() or New.
type Rational struct {
	num *big.Int
	den *big.Int
}

// Zero returns the rational 0/1.
func Zero() Rational {
	return Rational{num: big.NewInt(0), den: big.NewInt(1)}
}

// FromInt returns the rational n/1.
func FromInt(n *big.Int) Rational {
	return Rational{num: new(big.Int).Set(n), den: big.NewInt(1)}
}

// New builds num/den. Panics if den is zero or either operand is negative —
// callers in this engine never construct a rational from untrusted input.
func New(num, den *big.Int) Rational {
	if den.Sign() == 0 {
		panic("rational: zero denominator")
	}
	if num.Sign() < 0 || den.Sign() < 0 {
		panic("rational: negative operand")
	}
	return Rational{num: new(big.Int).Set(num), den: new(big.Int).Set(den)}
}

// Num returns the numerator (not a copy; do not mutate).
func (r Rational) Num() *big.Int { return r.num }

// Den returns the denominator (not a copy; do not mutate).
func (r Rational) Den() *big.Int { return r.den }

// IsZero reports whether r == 0.
func (r Rational) IsZero() bool {
	return r.num.Sign() == 0
}

// Add returns r + o.
func (r Rational) Add(o Rational) Rational {
	// a/b + c/d = (a*d + c*b) / (b*d)
	num := new(big.Int).Add(
		new(big.Int).Mul(r.num, o.den),
		new(big.Int).Mul(o.num, r.den),
	)
	den := new(big.Int).Mul(r.den, o.den)
	return Rational{num: num, den: den}.reduce()
}

// MulInt returns r * n (n treated as n/1).
func (r Rational) MulInt(n *big.Int) Rational {
	num := new(big.Int).Mul(r.num, n)
	return Rational{num: num, den: new(big.Int).Set(r.den)}.reduce()
}

// QuoInt returns r / n, n must be positive.
func (r Rational) QuoInt(n *big.Int) Rational {
	if n.Sign() <= 0 {
		panic("rational: divide by non-positive")
	}
	den := new(big.Int).Mul(r.den, n)
	return Rational{num: new(big.Int).Set(r.num), den: den}.reduce()
}

// Sub returns r - o. Panics if the result would be negative — callers must
// only subtract a smaller-or-equal rational, mirroring the engine's
// non-negative accumulator invariant.
func (r Rational) Sub(o Rational) Rational {
	num := new(big.Int).Sub(
		new(big.Int).Mul(r.num, o.den),
		new(big.Int).Mul(o.num, r.den),
	)
	if num.Sign() < 0 {
		panic("rational: negative result")
	}
	den := new(big.Int).Mul(r.den, o.den)
	return Rational{num: num, den: den}.reduce()
}

// Cmp compares r to o: -1, 0, or 1.
func (r Rational) Cmp(o Rational) int {
	lhs := new(big.Int).Mul(r.num, o.den)
	rhs := new(big.Int).Mul(o.num, r.den)
	return lhs.Cmp(rhs)
}

// Floor returns floor(r) as a big.Int.
func (r Rational) Floor() *big.Int {
	q := new(big.Int)
	q.Div(r.num, r.den) // big.Int.Div implements Euclidean/floor division for non-negative operands
	return q
}

// FracPart returns r - floor(r), i.e. the remainder kept for the next
// reconciliation (position.pending_purchase in spec terms).
func (r Rational) FracPart() Rational {
	whole := r.Floor()
	return r.Sub(FromInt(whole))
}

func (r Rational) reduce() Rational {
	if r.num.Sign() == 0 {
		return Rational{num: big.NewInt(0), den: big.NewInt(1)}
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(r.num), new(big.Int).Abs(r.den))
	if g.Cmp(big.NewInt(1)) == 0 {
		return r
	}
	return Rational{
		num: new(big.Int).Div(r.num, g),
		den: new(big.Int).Div(r.den, g),
	}
}

// String renders num/den for logs and diagnostics.
func (r Rational) String() string {
	return fmt.Sprintf("%s/%s", r.num.String(), r.den.String())
}
