// Package eligibility decides whether a donor has waited the minimum
// interval since their last donation.
package eligibility

import (
	"time"

	dErrors "hemolink/pkg/domain-errors"
)

// DefaultMinIntervalDays is the whole-blood deferral period.
const DefaultMinIntervalDays = 56

// Evaluator applies a fixed minimum-interval rule. The zero value is not
// usable; construct with New or Default.
type Evaluator struct {
	minIntervalDays int
}

// New returns an evaluator requiring minIntervalDays whole days between
// donations.
func New(minIntervalDays int) (*Evaluator, error) {
	if minIntervalDays <= 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "minimum donation interval must be positive")
	}
	return &Evaluator{minIntervalDays: minIntervalDays}, nil
}

// Default returns an evaluator using the 56-day interval.
func Default() *Evaluator {
	return &Evaluator{minIntervalDays: DefaultMinIntervalDays}
}

// MinIntervalDays returns the configured interval.
func (e *Evaluator) MinIntervalDays() int {
	return e.minIntervalDays
}

// IsEligible reports whether a donor last seen at lastDonation may donate at
// now. A nil lastDonation (never donated) is always eligible.
func (e *Evaluator) IsEligible(lastDonation *time.Time, now time.Time) bool {
	if lastDonation == nil {
		return true
	}
	return ElapsedDays(*lastDonation, now) >= e.minIntervalDays
}

// NextEligibleDate returns the first calendar day (UTC midnight) on which the
// donor becomes eligible. Never-donated donors are eligible on now's date.
func (e *Evaluator) NextEligibleDate(lastDonation *time.Time, now time.Time) time.Time {
	if lastDonation == nil {
		return calendarDate(now)
	}
	return calendarDate(*lastDonation).AddDate(0, 0, e.minIntervalDays)
}

// ElapsedDays returns the number of whole calendar days from `from` to `to`.
// Both instants are truncated to their UTC calendar date first, so the result
// does not depend on time of day. Negative when `to` precedes `from`.
func ElapsedDays(from, to time.Time) int {
	d := calendarDate(to).Sub(calendarDate(from))
	return int(d / (24 * time.Hour))
}

func calendarDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
