package ledger

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"
)

type balanceKey struct {
	owner string
	denom string
}

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[balanceKey]*Balance
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[balanceKey]*Balance)}
}

var _ Store = (*MemoryStore)(nil)

func zero() *Balance {
	return &Balance{Available: "0", Pending: "0", TotalIn: "0", TotalOut: "0"}
}

func (s *MemoryStore) get(owner, denom string) *Balance {
	key := balanceKey{owner, denom}
	b, ok := s.balances[key]
	if !ok {
		b = zero()
		b.Owner = owner
		b.Denom = denom
		s.balances[key] = b
	}
	return b
}

func addStr(a, b string) string {
	x, _ := new(big.Int).SetString(a, 10)
	y, _ := new(big.Int).SetString(b, 10)
	if x == nil {
		x = big.NewInt(0)
	}
	if y == nil {
		y = big.NewInt(0)
	}
	return new(big.Int).Add(x, y).String()
}

func subStr(a, b string) (string, error) {
	x, _ := new(big.Int).SetString(a, 10)
	y, _ := new(big.Int).SetString(b, 10)
	if x == nil {
		x = big.NewInt(0)
	}
	if y == nil {
		y = big.NewInt(0)
	}
	if x.Cmp(y) < 0 {
		return "", ErrInsufficientBalance
	}
	return new(big.Int).Sub(x, y).String(), nil
}

func (s *MemoryStore) GetBalance(ctx context.Context, owner, denom string) (*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *s.get(owner, denom)
	return &b, nil
}

func (s *MemoryStore) ListBalances(ctx context.Context, owner string) ([]*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Balance
	for k, b := range s.balances {
		if k.owner == owner {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

func (s *MemoryStore) Credit(ctx context.Context, owner, denom, amount, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(owner, denom)
	b.Available = addStr(b.Available, amount)
	b.TotalIn = addStr(b.TotalIn, amount)
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Hold(ctx context.Context, owner, denom, amount, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(owner, denom)
	avail, err := subStr(b.Available, amount)
	if err != nil {
		return ErrInsufficientBalance
	}
	b.Available = avail
	b.Pending = addStr(b.Pending, amount)
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ConfirmHold(ctx context.Context, owner, denom, amount, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(owner, denom)
	pending, err := subStr(b.Pending, amount)
	if err != nil {
		return ErrInsufficientHold
	}
	b.Pending = pending
	b.TotalOut = addStr(b.TotalOut, amount)
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ReleaseHold(ctx context.Context, owner, denom, amount, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.get(owner, denom)
	pending, err := subStr(b.Pending, amount)
	if err != nil {
		return ErrInsufficientHold
	}
	b.Pending = pending
	b.Available = addStr(b.Available, amount)
	b.UpdatedAt = time.Now()
	return nil
}
