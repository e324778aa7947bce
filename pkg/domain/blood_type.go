package domain

import (
	"strings"

	dErrors "hemolink/pkg/domain-errors"
)

// BloodType is an ABO/Rh group.
// Invariant: the value must be one of the eight supported groups.
//
// Usage: construct via ParseBloodType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type BloodType string

const (
	BloodTypeONeg  BloodType = "O-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeAPos  BloodType = "A+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeABPos BloodType = "AB+"
)

// bloodTypeOrder is the single source of truth for valid groups and their
// canonical order (universal donor first, universal recipient last).
var bloodTypeOrder = map[BloodType]int{
	BloodTypeONeg:  0,
	BloodTypeOPos:  1,
	BloodTypeANeg:  2,
	BloodTypeAPos:  3,
	BloodTypeBNeg:  4,
	BloodTypeBPos:  5,
	BloodTypeABNeg: 6,
	BloodTypeABPos: 7,
}

// AllBloodTypes returns the eight groups in canonical order. The slice is a
// fresh copy on every call.
func AllBloodTypes() []BloodType {
	return []BloodType{
		BloodTypeONeg, BloodTypeOPos,
		BloodTypeANeg, BloodTypeAPos,
		BloodTypeBNeg, BloodTypeBPos,
		BloodTypeABNeg, BloodTypeABPos,
	}
}

// ParseBloodType constructs a BloodType from external input. Surrounding
// whitespace is ignored and the group letters are matched case-insensitively;
// the Rh sign must be present.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseBloodType(s string) (BloodType, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeValidation, "blood type cannot be empty")
	}
	bt := BloodType(trimmed)
	if !bt.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown blood type: "+s)
	}
	return bt, nil
}

// IsValid checks if the blood type is one of the supported groups.
func (b BloodType) IsValid() bool {
	_, ok := bloodTypeOrder[b]
	return ok
}

// Index returns the canonical position of the group, or -1 when invalid.
func (b BloodType) Index() int {
	if i, ok := bloodTypeOrder[b]; ok {
		return i
	}
	return -1
}

func (b BloodType) String() string {
	return string(b)
}
