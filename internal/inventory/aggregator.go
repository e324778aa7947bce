package inventory

import (
	"fmt"
	"time"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// ExpiringWindow is how far ahead a unit counts as expiring soon.
const ExpiringWindow = 7 * 24 * time.Hour

// Aggregator folds raw units into per-type snapshots. Pure and safe for
// concurrent use.
type Aggregator struct {
	optimal map[id.BloodType]int
}

// NewAggregator copies table. Every blood type needs a positive target.
func NewAggregator(table OptimalTable) (*Aggregator, error) {
	optimal := make(map[id.BloodType]int, len(table))
	for _, bt := range id.AllBloodTypes() {
		target, ok := table[bt]
		if !ok {
			return nil, dErrors.New(dErrors.CodeConfiguration, "optimal table missing entry for "+bt.String())
		}
		if target <= 0 {
			return nil, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("optimal units for %s must be positive", bt))
		}
		optimal[bt] = target
	}
	for bt := range table {
		if !bt.IsValid() {
			return nil, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("optimal table has unknown blood type %q", bt))
		}
	}
	return &Aggregator{optimal: optimal}, nil
}

// Optimal returns the target units for bt.
func (a *Aggregator) Optimal(bt id.BloodType) int {
	return a.optimal[bt]
}

// Aggregate sums available units per blood type and, separately, units whose
// expiry falls in [now, now+7d). All eight types are present in canonical
// order, zero when absent from units. Unknown blood types or negative unit
// counts are validation errors.
func (a *Aggregator) Aggregate(units []Unit, now time.Time) ([]Snapshot, error) {
	current := make(map[id.BloodType]int, len(a.optimal))
	expiring := make(map[id.BloodType]int, len(a.optimal))
	horizon := now.Add(ExpiringWindow)

	for _, u := range units {
		if !u.BloodType.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("inventory unit %q has unknown blood type %q", u.ID, u.BloodType))
		}
		if u.Units < 0 {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("inventory unit %q has negative units", u.ID))
		}
		if !u.countable(now) {
			continue
		}
		current[u.BloodType] += u.Units
		if !u.ExpiresAt.IsZero() && u.ExpiresAt.Before(horizon) {
			expiring[u.BloodType] += u.Units
		}
	}

	out := make([]Snapshot, 0, len(a.optimal))
	for _, bt := range id.AllBloodTypes() {
		out = append(out, Snapshot{
			BloodType:     bt,
			CurrentUnits:  current[bt],
			OptimalUnits:  a.optimal[bt],
			ExpiringUnits: expiring[bt],
		})
	}
	return out, nil
}
