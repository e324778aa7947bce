package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// Normalize turns raw counters into one Forecast per blood type, in canonical
// order. Types without a record get low urgency and zero demand, stamped with
// now. When a type appears more than once the most recently updated record
// wins. Unknown blood types, unknown urgency levels and non-numeric or
// negative demand values are validation errors.
func Normalize(raw []RawForecast, now time.Time) ([]Forecast, error) {
	byType := make(map[id.BloodType]Forecast, len(raw))
	for i, r := range raw {
		f, err := normalizeOne(r)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("forecast record %d", i))
		}
		if prev, ok := byType[f.BloodType]; ok && prev.LastUpdated.After(f.LastUpdated) {
			continue
		}
		byType[f.BloodType] = f
	}

	out := make([]Forecast, 0, len(id.AllBloodTypes()))
	for _, bt := range id.AllBloodTypes() {
		f, ok := byType[bt]
		if !ok {
			f = Forecast{BloodType: bt, Urgency: id.UrgencyLow, LastUpdated: now}
		}
		out = append(out, f)
	}
	return out, nil
}

func normalizeOne(r RawForecast) (Forecast, error) {
	bt, err := id.ParseBloodType(r.BloodType)
	if err != nil {
		return Forecast{}, err
	}
	urgency := id.UrgencyLow
	if strings.TrimSpace(r.Urgency) != "" {
		urgency, err = id.ParseUrgencyLevel(r.Urgency)
		if err != nil {
			return Forecast{}, err
		}
	}
	short, err := Coerce(r.ShortTermDemand)
	if err != nil {
		return Forecast{}, fmt.Errorf("short-term demand: %w", err)
	}
	medium, err := Coerce(r.MediumTermDemand)
	if err != nil {
		return Forecast{}, fmt.Errorf("medium-term demand: %w", err)
	}
	return Forecast{
		BloodType:        bt,
		ShortTermDemand:  short,
		MediumTermDemand: medium,
		Urgency:          urgency,
		LastUpdated:      r.LastUpdated,
	}, nil
}

// Coerce converts a demand value to float64. nil and blank strings are 0.
func Coerce(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, dErrors.New(dErrors.CodeValidation, "not a number: "+n.String())
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, dErrors.New(dErrors.CodeValidation, "not a number: "+n)
		}
		f = parsed
	default:
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported demand type %T", v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, dErrors.New(dErrors.CodeValidation, "demand must be finite")
	}
	if f < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "demand cannot be negative")
	}
	return f, nil
}
