package store

import (
	"context"
	"sync"

	"hemolink/internal/notification"
	id "hemolink/pkg/domain"
	"hemolink/pkg/platform/sentinel"
)

// InMemoryDeliveryStore is an append-only delivery log guarded by a mutex.
type InMemoryDeliveryStore struct {
	mu      sync.RWMutex
	records []notification.DeliveryRecord
	keys    map[string]struct{}
	err     error
}

func NewInMemory() *InMemoryDeliveryStore {
	return &InMemoryDeliveryStore{
		keys: make(map[string]struct{}),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *InMemoryDeliveryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *InMemoryDeliveryStore) Append(_ context.Context, record notification.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if record.IdempotencyKey != "" {
		if _, taken := s.keys[record.IdempotencyKey]; taken {
			return sentinel.ErrConflict
		}
		s.keys[record.IdempotencyKey] = struct{}{}
	}
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryDeliveryStore) DeliveredKeys(_ context.Context, keys []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := s.keys[k]; ok {
			out[k] = true
		}
	}
	return out, nil
}

// Records returns a copy of the log in append order.
func (s *InMemoryDeliveryStore) Records() []notification.DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]notification.DeliveryRecord, len(s.records))
	copy(out, s.records)
	return out
}

// ListByRequest returns the records of one request in append order.
func (s *InMemoryDeliveryStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]notification.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]notification.DeliveryRecord, 0)
	for _, r := range s.records {
		if r.RequestID == requestID {
			out = append(out, r)
		}
	}
	return out, nil
}
