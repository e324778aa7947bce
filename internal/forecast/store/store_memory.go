package store

import (
	"context"
	"sync"

	"hemolink/internal/forecast"
)

// InMemoryForecastStore keeps raw demand counters keyed by blood type string.
type InMemoryForecastStore struct {
	mu      sync.RWMutex
	records map[string]forecast.RawForecast
	err     error
}

func NewInMemory(records ...forecast.RawForecast) *InMemoryForecastStore {
	s := &InMemoryForecastStore{records: make(map[string]forecast.RawForecast, len(records))}
	for _, r := range records {
		s.records[r.BloodType] = r
	}
	return s
}

// FailWith makes every call return err until called again with nil.
func (s *InMemoryForecastStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *InMemoryForecastStore) List(ctx context.Context) ([]forecast.RawForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]forecast.RawForecast, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *InMemoryForecastStore) Upsert(ctx context.Context, forecasts []forecast.Forecast) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, f := range forecasts {
		s.records[f.BloodType.String()] = forecast.RawForecast{
			BloodType:        f.BloodType.String(),
			ShortTermDemand:  f.ShortTermDemand,
			MediumTermDemand: f.MediumTermDemand,
			Urgency:          f.Urgency.String(),
			LastUpdated:      f.LastUpdated,
		}
	}
	return nil
}
