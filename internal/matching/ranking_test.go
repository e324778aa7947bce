package matching

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "hemolink/pkg/domain"
)

func TestSortMatches(t *testing.T) {
	day := func(d int) *time.Time {
		ts := time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}

	matches := []MatchedDonor{
		{ID: "cross-near", BloodType: id.BloodTypeONeg, DistanceKm: 1},
		{ID: "exact-far", BloodType: id.BloodTypeOPos, DistanceKm: 20},
		{ID: "exact-near-recent", BloodType: id.BloodTypeOPos, DistanceKm: 5, LastDonation: day(20)},
		{ID: "exact-near-old", BloodType: id.BloodTypeOPos, DistanceKm: 5, LastDonation: day(2)},
		{ID: "exact-near-never", BloodType: id.BloodTypeOPos, DistanceKm: 5},
	}
	SortMatches(id.BloodTypeOPos, matches)

	got := make([]id.DonorID, len(matches))
	for i, m := range matches {
		got[i] = m.ID
	}
	assert.Equal(t, []id.DonorID{
		"exact-near-never",
		"exact-near-old",
		"exact-near-recent",
		"exact-far",
		"cross-near",
	}, got)
}

func TestSortMatchesIsDeterministic(t *testing.T) {
	a := []MatchedDonor{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	b := []MatchedDonor{{ID: "b"}, {ID: "c"}, {ID: "a"}}
	SortMatches(id.BloodTypeAPos, a)
	SortMatches(id.BloodTypeAPos, b)
	assert.Equal(t, a, b)
}

func TestCapPolicy(t *testing.T) {
	tests := []struct {
		policy CapPolicy
		units  int
		want   int
	}{
		{CapOneAndHalf, 1, 2},
		{CapOneAndHalf, 2, 3},
		{CapOneAndHalf, 3, 5},
		{CapOneAndHalf, 0, 0},
		{CapOneAndHalf, 9, 14},
		{CapDouble, 3, 6},
		{CapDouble, -1, 0},
		{CapOneAndHalf, math.MaxInt - 1, math.MaxInt},
		{CapDouble, math.MaxInt - 1, math.MaxInt},
		{CapDouble, math.MaxInt / 2, math.MaxInt - 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.policy.Cap(tt.units), "%s(%d)", tt.policy, tt.units)
	}

	p, err := ParseCapPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, CapOneAndHalf, p)
	_, err = ParseCapPolicy("triple")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	matches := []MatchedDonor{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, truncate(matches, 2), 2)
	assert.Len(t, truncate(matches, math.MaxInt), 3)
	assert.Empty(t, truncate(matches, 0))
	assert.Empty(t, truncate(matches, -1))
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, OutcomeNoDonors, outcomeFor(0, 2))
	assert.Equal(t, OutcomeInsufficient, outcomeFor(1, 2))
	assert.Equal(t, OutcomeSufficient, outcomeFor(2, 2))
}
