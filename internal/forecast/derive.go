package forecast

import (
	"time"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// Derive builds demand counters from pending requests: short-term demand is
// the pending unit total, medium-term demand scales it by the 30/7 horizon
// ratio and urgency is the highest urgency among the type's requests. Types
// with no pending requests are omitted; Normalize fills them in.
func Derive(pending []PendingRequest, now time.Time) ([]RawForecast, error) {
	type acc struct {
		units   int
		urgency id.UrgencyLevel
	}
	totals := make(map[id.BloodType]*acc)
	for _, p := range pending {
		if !p.BloodType.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "pending request has unknown blood type: "+p.BloodType.String())
		}
		if p.Units <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "pending request units must be positive")
		}
		urgency := p.Urgency
		if urgency == "" {
			urgency = id.UrgencyLow
		}
		if !urgency.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "pending request has unknown urgency: "+urgency.String())
		}
		a, ok := totals[p.BloodType]
		if !ok {
			a = &acc{urgency: urgency}
			totals[p.BloodType] = a
		}
		a.units += p.Units
		if urgency.Rank() > a.urgency.Rank() {
			a.urgency = urgency
		}
	}

	out := make([]RawForecast, 0, len(totals))
	for _, bt := range id.AllBloodTypes() {
		a, ok := totals[bt]
		if !ok {
			continue
		}
		short := float64(a.units)
		out = append(out, RawForecast{
			BloodType:        bt.String(),
			ShortTermDemand:  short,
			MediumTermDemand: short * MediumTermHorizonDays / ShortTermHorizonDays,
			Urgency:          a.urgency.String(),
			LastUpdated:      now,
		})
	}
	return out, nil
}
