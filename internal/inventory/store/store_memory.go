package store

import (
	"context"
	"sync"

	"hemolink/internal/inventory"
)

// InMemoryUnitStore keeps raw inventory units in memory.
type InMemoryUnitStore struct {
	mu    sync.RWMutex
	units []inventory.Unit
	err   error
}

func NewInMemory(units ...inventory.Unit) *InMemoryUnitStore {
	return &InMemoryUnitStore{units: append([]inventory.Unit(nil), units...)}
}

func (s *InMemoryUnitStore) Add(units ...inventory.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append(s.units, units...)
}

// FailWith makes ListUnits return err until called again with nil.
func (s *InMemoryUnitStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *InMemoryUnitStore) ListUnits(ctx context.Context) ([]inventory.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]inventory.Unit(nil), s.units...), nil
}
