package matching

import (
	"sort"

	id "hemolink/pkg/domain"
)

// SortMatches orders matches in place:
//  1. exact blood-type match before cross-compatible
//  2. ascending distance
//  3. oldest last donation first (never donated counts as oldest)
//  4. donor ID
//
// Pure domain logic - no I/O, no side effects.
func SortMatches(requested id.BloodType, matches []MatchedDonor) {
	sort.SliceStable(matches, func(i, j int) bool {
		return less(requested, matches[i], matches[j])
	})
}

func less(requested id.BloodType, a, b MatchedDonor) bool {
	aExact, bExact := a.BloodType == requested, b.BloodType == requested
	if aExact != bExact {
		return aExact
	}
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	switch {
	case a.LastDonation == nil && b.LastDonation != nil:
		return true
	case a.LastDonation != nil && b.LastDonation == nil:
		return false
	case a.LastDonation != nil && b.LastDonation != nil && !a.LastDonation.Equal(*b.LastDonation):
		return a.LastDonation.Before(*b.LastDonation)
	}
	return a.ID < b.ID
}

// truncate returns at most limit matches.
func truncate(matches []MatchedDonor, limit int) []MatchedDonor {
	if limit <= 0 {
		return matches[:0]
	}
	if len(matches) <= limit {
		return matches
	}
	return matches[:limit]
}
