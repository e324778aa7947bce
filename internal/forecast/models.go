// Package forecast normalizes per-blood-type demand counters into complete,
// typed forecasts and derives those counters from pending blood requests.
package forecast

import (
	"time"

	id "hemolink/pkg/domain"
)

const (
	ShortTermHorizonDays  = 7
	MediumTermHorizonDays = 30
)

// Forecast is the normalized demand outlook for one blood type.
type Forecast struct {
	BloodType        id.BloodType
	ShortTermDemand  float64
	MediumTermDemand float64
	Urgency          id.UrgencyLevel
	LastUpdated      time.Time
}

// RawForecast is a demand counter as persisted or received from outside.
// Demand values may be any JSON-ish number representation; the urgency level
// may use any letter case. Empty fields take defaults during normalization.
type RawForecast struct {
	BloodType        string
	ShortTermDemand  any
	MediumTermDemand any
	Urgency          string
	LastUpdated      time.Time
}

// PendingRequest is an open blood request counted toward demand.
type PendingRequest struct {
	BloodType id.BloodType
	Units     int
	Urgency   id.UrgencyLevel
}
