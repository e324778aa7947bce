package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"hemolink/internal/scoring"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// Location is a WGS84 point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Donor is a read-only snapshot of a donor profile from the donor store.
// LastDonation is nil when the donor has never donated.
type Donor struct {
	ID           id.DonorID
	BloodType    id.BloodType
	LastDonation *time.Time
	Attributes   map[string]float64
	Location     *Location
}

// Profile is the contact side of a donor, joined by a batched read.
type Profile struct {
	DonorID   id.DonorID
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// DisplayName joins first and last name, falling back to "Unknown".
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return "Unknown"
	}
	return name
}

// MatchedDonor is the ranked view of a candidate. Created fresh per call and
// never persisted.
type MatchedDonor struct {
	ID               id.DonorID
	Name             string
	BloodType        id.BloodType
	ExactMatch       bool
	DistanceKm       float64
	LastDonation     *time.Time
	Score            float64
	Tier             scoring.Tier
	Breakdown        scoring.Breakdown
	EligibleToNotify bool
	Email            string
	Phone            string
}

// CapPolicy decides how many matches are returned for a number of units.
type CapPolicy string

const (
	// CapOneAndHalf returns ceil(units * 1.5) donors.
	CapOneAndHalf CapPolicy = "one_and_half"
	// CapDouble returns units * 2 donors.
	CapDouble CapPolicy = "double"
)

// ParseCapPolicy validates a cap policy name.
func ParseCapPolicy(s string) (CapPolicy, error) {
	switch p := CapPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case CapOneAndHalf, CapDouble:
		return p, nil
	case "":
		return CapOneAndHalf, nil
	default:
		return "", dErrors.New(dErrors.CodeConfiguration, "unknown cap policy: "+s)
	}
}

// MaxUnitsNeeded bounds a single ranking request.
const MaxUnitsNeeded = 10_000

// Cap returns the maximum result length for units. It saturates at
// math.MaxInt instead of overflowing.
func (p CapPolicy) Cap(units int) int {
	if units <= 0 {
		return 0
	}
	if p == CapDouble {
		if units > math.MaxInt/2 {
			return math.MaxInt
		}
		return units * 2
	}
	if units > math.MaxInt/3*2 {
		return math.MaxInt
	}
	// ceil(units * 1.5)
	return units + (units+1)/2
}

// Outcome is the caller-visible signal of a ranking call.
type Outcome string

const (
	OutcomeNoDonors         Outcome = "no_donors"
	OutcomeInsufficient     Outcome = "insufficient"
	OutcomeSufficient       Outcome = "sufficient"
	OutcomeStoreUnavailable Outcome = "store_unavailable"
)

// RankRequest describes a ranking call.
type RankRequest struct {
	BloodType         id.BloodType
	UnitsNeeded       int
	ExcludeIDs        []id.DonorID
	IncludeIneligible bool
	// Now is the reference time for eligibility and recency. When zero the
	// request-scoped time from the context is used.
	Now time.Time
	// Distance overrides the service's DistanceProvider for this call.
	Distance DistanceProvider
}

// Validate checks the request and reports malformed input as CodeValidation.
func (r RankRequest) Validate() error {
	if !r.BloodType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown blood type: "+r.BloodType.String())
	}
	if r.UnitsNeeded <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units_needed must be positive")
	}
	if r.UnitsNeeded > MaxUnitsNeeded {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("units_needed cannot exceed %d", MaxUnitsNeeded))
	}
	return nil
}

// RankResult is the ordered, size-bounded match list plus its outcome.
type RankResult struct {
	Donors    []MatchedDonor
	Cap       int
	CapPolicy CapPolicy
	Outcome   Outcome
	// Candidates counts donors that passed every filter, before truncation.
	Candidates int
	// Eligible counts candidates that may be notified.
	Eligible int
	// StoreErr is set when Outcome is OutcomeStoreUnavailable.
	StoreErr error
}

func outcomeFor(eligible, unitsNeeded int) Outcome {
	switch {
	case eligible == 0:
		return OutcomeNoDonors
	case eligible < unitsNeeded:
		return OutcomeInsufficient
	default:
		return OutcomeSufficient
	}
}
