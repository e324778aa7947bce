package store

import (
	"context"
	"sync"

	"hemolink/internal/matching"
	id "hemolink/pkg/domain"
)

// InMemoryDonorStore keeps donors and their contact profiles in memory. It
// serves both matching.DonorStore and matching.ProfileStore, and is used by
// tests, the CLI and the server when no database is configured.
type InMemoryDonorStore struct {
	mu       sync.RWMutex
	donors   map[id.DonorID]matching.Donor
	profiles map[id.DonorID]matching.Profile
	// err, when set, is returned by every read.
	err error
}

func NewInMemory() *InMemoryDonorStore {
	return &InMemoryDonorStore{
		donors:   make(map[id.DonorID]matching.Donor),
		profiles: make(map[id.DonorID]matching.Profile),
	}
}

// Put stores a donor and its profile, replacing any previous entry.
func (s *InMemoryDonorStore) Put(donor matching.Donor, profile matching.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.DonorID = donor.ID
	s.donors[donor.ID] = donor
	s.profiles[donor.ID] = profile
}

// PutDonor stores a donor without a profile.
func (s *InMemoryDonorStore) PutDonor(donor matching.Donor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors[donor.ID] = donor
}

// FailWith makes every subsequent read return err. Pass nil to recover.
func (s *InMemoryDonorStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *InMemoryDonorStore) ListByBloodTypes(ctx context.Context, types []id.BloodType) ([]matching.Donor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	wanted := make(map[id.BloodType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	out := make([]matching.Donor, 0)
	for _, d := range s.donors {
		if _, ok := wanted[d.BloodType]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *InMemoryDonorStore) FetchProfiles(ctx context.Context, ids []id.DonorID) (map[id.DonorID]matching.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	out := make(map[id.DonorID]matching.Profile, len(ids))
	for _, donorID := range ids {
		if p, ok := s.profiles[donorID]; ok {
			out[donorID] = p
		}
	}
	return out, nil
}
