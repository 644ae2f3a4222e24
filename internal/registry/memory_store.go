package registry

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for demo/development mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	params *Params
	freeze *FreezeState
}

// NewMemoryStore creates an in-memory store seeded with the given params.
func NewMemoryStore(initial Params) *MemoryStore {
	return &MemoryStore{
		params: &initial,
		freeze: &FreezeState{},
	}
}

func (m *MemoryStore) GetParams(_ context.Context) (*Params, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.params
	return &cp, nil
}

func (m *MemoryStore) PutParams(_ context.Context, p *Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.params = &cp
	return nil
}

func (m *MemoryStore) GetFreezeState(_ context.Context) (*FreezeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.freeze
	return &cp, nil
}

func (m *MemoryStore) PutFreezeState(_ context.Context, f *FreezeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.freeze = &cp
	return nil
}

var _ Store = (*MemoryStore)(nil)
