package registry

import "math/big"

// CheckPayment verifies that the caller's attached funds exactly match the
// expected fee bag, as a multiset of (denom, amount) pairs. Zero-amount
// entries in expected are dropped before comparison, so a fee schedule
// that charges nothing in some denom does not force the caller to attach
// an explicit zero coin for it (spec.md §7 check_payment).
func CheckPayment(expected, actual []Coin) error {
	want := make(map[string]*big.Int)
	for _, c := range expected {
		amt, ok := new(big.Int).SetString(c.Amount, 10)
		if !ok {
			return ErrInvalidParams
		}
		if amt.Sign() == 0 {
			continue
		}
		if existing, ok := want[c.Denom]; ok {
			existing.Add(existing, amt)
		} else {
			want[c.Denom] = amt
		}
	}

	got := make(map[string]*big.Int)
	for _, c := range actual {
		amt, ok := new(big.Int).SetString(c.Amount, 10)
		if !ok || amt.Sign() < 0 {
			return ErrPaymentMismatch
		}
		if amt.Sign() == 0 {
			continue
		}
		if existing, ok := got[c.Denom]; ok {
			existing.Add(existing, amt)
		} else {
			got[c.Denom] = amt
		}
	}

	if len(want) != len(got) {
		return ErrPaymentMismatch
	}
	for denom, wantAmt := range want {
		gotAmt, ok := got[denom]
		if !ok || gotAmt.Cmp(wantAmt) != 0 {
			return ErrPaymentMismatch
		}
	}
	return nil
}
