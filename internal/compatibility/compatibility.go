// Package compatibility resolves which donor blood types may supply a
// recipient blood type under ABO/Rh rules.
package compatibility

import (
	"fmt"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// Table maps a recipient blood type to the donor types that may supply it.
type Table map[id.BloodType][]id.BloodType

// DefaultTable returns the standard ABO/Rh compatibility graph.
func DefaultTable() Table {
	return Table{
		id.BloodTypeONeg:  {id.BloodTypeONeg},
		id.BloodTypeOPos:  {id.BloodTypeONeg, id.BloodTypeOPos},
		id.BloodTypeANeg:  {id.BloodTypeONeg, id.BloodTypeANeg},
		id.BloodTypeAPos:  {id.BloodTypeONeg, id.BloodTypeOPos, id.BloodTypeANeg, id.BloodTypeAPos},
		id.BloodTypeBNeg:  {id.BloodTypeONeg, id.BloodTypeBNeg},
		id.BloodTypeBPos:  {id.BloodTypeONeg, id.BloodTypeOPos, id.BloodTypeBNeg, id.BloodTypeBPos},
		id.BloodTypeABNeg: {id.BloodTypeONeg, id.BloodTypeANeg, id.BloodTypeBNeg, id.BloodTypeABNeg},
		id.BloodTypeABPos: id.AllBloodTypes(),
	}
}

// Resolver answers compatibility lookups against an immutable table.
// Safe for concurrent use.
type Resolver struct {
	donors map[id.BloodType][]id.BloodType
	sets   map[id.BloodType]map[id.BloodType]struct{}
}

// NewResolver validates table and copies it. A missing recipient entry, an
// unknown blood type, a type that cannot receive from itself, an O- that is
// not a universal donor, or an AB+ that is not a universal recipient are
// configuration errors.
func NewResolver(table Table) (*Resolver, error) {
	r := &Resolver{
		donors: make(map[id.BloodType][]id.BloodType, len(table)),
		sets:   make(map[id.BloodType]map[id.BloodType]struct{}, len(table)),
	}
	for recipient, donors := range table {
		if !recipient.IsValid() {
			return nil, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("compatibility table has unknown recipient %q", recipient))
		}
		set := make(map[id.BloodType]struct{}, len(donors))
		ordered := make([]id.BloodType, 0, len(donors))
		for _, d := range donors {
			if !d.IsValid() {
				return nil, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("compatibility table entry %s has unknown donor %q", recipient, d))
			}
			if _, dup := set[d]; dup {
				continue
			}
			set[d] = struct{}{}
			ordered = append(ordered, d)
		}
		r.donors[recipient] = ordered
		r.sets[recipient] = set
	}

	for _, bt := range id.AllBloodTypes() {
		set, ok := r.sets[bt]
		if !ok {
			return nil, dErrors.New(dErrors.CodeConfiguration, "compatibility table missing entry for "+bt.String())
		}
		if _, self := set[bt]; !self {
			return nil, dErrors.New(dErrors.CodeConfiguration, bt.String()+" must be able to receive from itself")
		}
		if _, universal := set[id.BloodTypeONeg]; !universal {
			return nil, dErrors.New(dErrors.CodeConfiguration, "O- must be a compatible donor for "+bt.String())
		}
	}
	if len(r.sets[id.BloodTypeABPos]) != len(id.AllBloodTypes()) {
		return nil, dErrors.New(dErrors.CodeConfiguration, "AB+ must receive from all blood types")
	}
	return r, nil
}

// MustDefault returns a resolver over DefaultTable. It panics only if the
// built-in table is broken.
func MustDefault() *Resolver {
	r, err := NewResolver(DefaultTable())
	if err != nil {
		panic(err)
	}
	return r
}

// CompatibleDonorTypes returns the donor types that can supply requested.
// The returned slice is a copy; an invalid input yields nil.
func (r *Resolver) CompatibleDonorTypes(requested id.BloodType) []id.BloodType {
	donors, ok := r.donors[requested]
	if !ok {
		return nil
	}
	out := make([]id.BloodType, len(donors))
	copy(out, donors)
	return out
}

// CanDonate reports whether a donor of type donor may supply recipient.
func (r *Resolver) CanDonate(donor, recipient id.BloodType) bool {
	_, ok := r.sets[recipient][donor]
	return ok
}

// Recipients is the inverse view: the recipient types donor can supply.
func (r *Resolver) Recipients(donor id.BloodType) []id.BloodType {
	var out []id.BloodType
	for _, recipient := range id.AllBloodTypes() {
		if r.CanDonate(donor, recipient) {
			out = append(out, recipient)
		}
	}
	return out
}
