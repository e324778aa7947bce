// Package urgency combines inventory snapshots with demand forecasts to pick
// the most needed blood type and the appeal to send for it.
package urgency

import (
	"fmt"
	"math"

	"hemolink/internal/forecast"
	"hemolink/internal/inventory"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// Appeal is the tier of a recommendation message.
type Appeal string

const (
	AppealUrgent    Appeal = "urgent"
	AppealModerate  Appeal = "moderate"
	AppealFreshness Appeal = "freshness"
	AppealSteady    Appeal = "steady"
	// AppealGeneral is used when data for the type is missing.
	AppealGeneral Appeal = "general"
)

const (
	generalMessage  = "We need donors of all blood types. Please consider donating today!"
	fallbackMessage = "We always need blood donors of all types. Your donation can save up to three lives!"
)

// Thresholds are fractions: stock below Urgent*optimal is an urgent appeal,
// below Moderate*optimal a moderate one; expiring units above
// Expiring*current call for fresh donations.
type Thresholds struct {
	Urgent   float64
	Moderate float64
	Expiring float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Urgent: 0.3, Moderate: 0.7, Expiring: 0.3}
}

// Recommendation is the chosen appeal for a blood type.
type Recommendation struct {
	BloodType id.BloodType
	Appeal    Appeal
	Message   string
}

// Classifier is a pure decision table over inventory and demand.
type Classifier struct {
	thresholds Thresholds
}

func NewClassifier(t Thresholds) (*Classifier, error) {
	if t.Urgent <= 0 || t.Moderate <= t.Urgent || t.Expiring <= 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("invalid urgency thresholds %+v: need 0 < urgent < moderate and expiring > 0", t))
	}
	return &Classifier{thresholds: t}, nil
}

// DefaultClassifier uses the 30%/70%/30% table.
func DefaultClassifier() *Classifier {
	return &Classifier{thresholds: DefaultThresholds()}
}

// MostCriticalType picks, among types forecast at high or critical urgency,
// the one with the lowest stock-to-short-term-demand ratio. Zero demand ranks
// as +Inf and ties go to canonical order. O- when nothing qualifies.
func (c *Classifier) MostCriticalType(stock []inventory.Snapshot, demand []forecast.Forecast) id.BloodType {
	current := make(map[id.BloodType]int, len(stock))
	for _, s := range stock {
		current[s.BloodType] = s.CurrentUnits
	}

	best := id.BloodTypeONeg
	bestRatio := math.Inf(1)
	found := false
	for _, f := range demand {
		if !f.Urgency.AtLeast(id.UrgencyHigh) {
			continue
		}
		units, ok := current[f.BloodType]
		if !ok {
			continue
		}
		ratio := math.Inf(1)
		if f.ShortTermDemand > 0 {
			ratio = float64(units) / f.ShortTermDemand
		}
		if !found || ratio < bestRatio || (ratio == bestRatio && f.BloodType.Index() < best.Index()) {
			best, bestRatio, found = f.BloodType, ratio, true
		}
	}
	return best
}

// Recommend selects the appeal for bt. Missing inventory or demand data for
// bt yields the general all-types appeal.
func (c *Classifier) Recommend(bt id.BloodType, stock []inventory.Snapshot, demand []forecast.Forecast) Recommendation {
	snap, okStock := findSnapshot(stock, bt)
	_, okDemand := findForecast(demand, bt)
	if !okStock || !okDemand {
		return Recommendation{BloodType: bt, Appeal: AppealGeneral, Message: generalMessage}
	}

	current := float64(snap.CurrentUnits)
	optimal := float64(snap.OptimalUnits)
	var appeal Appeal
	switch {
	case current < optimal*c.thresholds.Urgent:
		appeal = AppealUrgent
	case current < optimal*c.thresholds.Moderate:
		appeal = AppealModerate
	case float64(snap.ExpiringUnits) > current*c.thresholds.Expiring:
		appeal = AppealFreshness
	default:
		appeal = AppealSteady
	}
	return Recommendation{BloodType: bt, Appeal: appeal, Message: MessageFor(appeal, bt)}
}

// RecommendationMessage is Recommend reduced to its text.
func (c *Classifier) RecommendationMessage(bt id.BloodType, stock []inventory.Snapshot, demand []forecast.Forecast) string {
	return c.Recommend(bt, stock, demand).Message
}

// MessageFor renders the appeal text for bt.
func MessageFor(appeal Appeal, bt id.BloodType) string {
	switch appeal {
	case AppealUrgent:
		return fmt.Sprintf("We urgently need %s donors. Our inventory is critically low and patients' lives depend on these donations.", bt)
	case AppealModerate:
		return fmt.Sprintf("%s blood is in high demand. Your donation would help us meet patient needs in the coming days.", bt)
	case AppealFreshness:
		return fmt.Sprintf("We have %s units that will expire soon. New fresh donations would help maintain our supply.", bt)
	case AppealSteady:
		return fmt.Sprintf("Our %s supply is currently stable, but regular donations help us stay prepared for emergencies.", bt)
	default:
		return generalMessage
	}
}

func findSnapshot(stock []inventory.Snapshot, bt id.BloodType) (inventory.Snapshot, bool) {
	for _, s := range stock {
		if s.BloodType == bt {
			return s, true
		}
	}
	return inventory.Snapshot{}, false
}

func findForecast(demand []forecast.Forecast, bt id.BloodType) (forecast.Forecast, bool) {
	for _, f := range demand {
		if f.BloodType == bt {
			return f, true
		}
	}
	return forecast.Forecast{}, false
}
