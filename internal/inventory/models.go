package inventory

import (
	"time"

	id "hemolink/pkg/domain"
)

// UnitStatus is the lifecycle state of a stored blood unit.
type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitReserved  UnitStatus = "reserved"
	UnitUsed      UnitStatus = "used"
	UnitExpired   UnitStatus = "expired"
)

// Unit is a raw inventory record as kept by the inventory store. A zero
// ExpiresAt means the expiry is unknown. An empty Status counts as available.
type Unit struct {
	ID        string
	BloodType id.BloodType
	Units     int
	ExpiresAt time.Time
	Status    UnitStatus
}

func (u Unit) countable(now time.Time) bool {
	switch u.Status {
	case "", UnitAvailable:
	default:
		return false
	}
	return u.ExpiresAt.IsZero() || !u.ExpiresAt.Before(now)
}

// Snapshot is the aggregated stock of one blood type.
type Snapshot struct {
	BloodType     id.BloodType
	CurrentUnits  int
	OptimalUnits  int
	ExpiringUnits int
}

// PercentOfOptimal returns current stock as a percentage of the target.
func (s Snapshot) PercentOfOptimal() float64 {
	if s.OptimalUnits <= 0 {
		return 0
	}
	return float64(s.CurrentUnits) / float64(s.OptimalUnits) * 100
}

// ExpiringShare returns the fraction of current stock expiring soon, 0 when
// there is no stock.
func (s Snapshot) ExpiringShare() float64 {
	if s.CurrentUnits <= 0 {
		return 0
	}
	return float64(s.ExpiringUnits) / float64(s.CurrentUnits)
}

// OptimalTable holds the target units per blood type.
type OptimalTable map[id.BloodType]int

// DefaultOptimalTable returns the reference stock targets.
func DefaultOptimalTable() OptimalTable {
	return OptimalTable{
		id.BloodTypeONeg:  50,
		id.BloodTypeOPos:  70,
		id.BloodTypeANeg:  30,
		id.BloodTypeAPos:  60,
		id.BloodTypeBNeg:  20,
		id.BloodTypeBPos:  35,
		id.BloodTypeABNeg: 10,
		id.BloodTypeABPos: 15,
	}
}
