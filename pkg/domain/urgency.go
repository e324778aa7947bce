package domain

import (
	"strings"

	dErrors "hemolink/pkg/domain-errors"
)

// UrgencyLevel classifies how stressed a supply or request is.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

var urgencyRank = map[UrgencyLevel]int{
	UrgencyLow:      0,
	UrgencyMedium:   1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// ParseUrgencyLevel parses an urgency level case-insensitively.
//
// Errors: returns CodeValidation for empty or unknown values.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	normalized := UrgencyLevel(strings.ToLower(strings.TrimSpace(s)))
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeValidation, "urgency level cannot be empty")
	}
	if !normalized.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown urgency level: "+s)
	}
	return normalized, nil
}

func (u UrgencyLevel) IsValid() bool {
	_, ok := urgencyRank[u]
	return ok
}

// Rank orders levels from low (0) to critical (3); invalid levels rank -1.
func (u UrgencyLevel) Rank() int {
	if r, ok := urgencyRank[u]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether u is as urgent as other.
func (u UrgencyLevel) AtLeast(other UrgencyLevel) bool {
	return u.Rank() >= other.Rank()
}

func (u UrgencyLevel) String() string {
	return string(u)
}
