package handler

import (
	"strings"

	"hemolink/internal/matching"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

const maxExcludeIDs = 1000

// RankRequest is the HTTP request body for POST /v1/matching/rank.
type RankRequest struct {
	BloodType         string             `json:"blood_type"`
	UnitsNeeded       int                `json:"units_needed"`
	ExcludeIDs        []string           `json:"exclude_ids,omitempty"`
	IncludeIneligible bool               `json:"include_ineligible,omitempty"`
	Origin            *matching.Location `json:"origin,omitempty"`
	// Distances supplies precomputed per-donor distances in km. Ignored when
	// Origin is set.
	Distances map[string]float64 `json:"distances,omitempty"`

	parsedBloodType id.BloodType
	parsedExclude   []id.DonorID
}

func (r *RankRequest) Normalize() {
	if r == nil {
		return
	}
	r.BloodType = strings.TrimSpace(r.BloodType)
}

// Validate parses the blood type and exclude list.
func (r *RankRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.ExcludeIDs) > maxExcludeIDs {
		return dErrors.New(dErrors.CodeValidation, "too many exclude_ids")
	}
	bt, err := id.ParseBloodType(r.BloodType)
	if err != nil {
		return err
	}
	if r.UnitsNeeded <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units_needed must be positive")
	}
	if r.UnitsNeeded > matching.MaxUnitsNeeded {
		return dErrors.New(dErrors.CodeValidation, "units_needed is too large")
	}
	exclude, err := id.ParseDonorIDs(r.ExcludeIDs)
	if err != nil {
		return err
	}
	r.parsedBloodType = bt
	r.parsedExclude = exclude
	return nil
}

// ToDomain builds the service request. Call after Validate.
func (r *RankRequest) ToDomain() matching.RankRequest {
	req := matching.RankRequest{
		BloodType:         r.parsedBloodType,
		UnitsNeeded:       r.UnitsNeeded,
		ExcludeIDs:        r.parsedExclude,
		IncludeIneligible: r.IncludeIneligible,
	}
	switch {
	case r.Origin != nil:
		req.Distance = matching.Geodesic{Origin: *r.Origin}
	case len(r.Distances) > 0:
		req.Distance = matching.Mock(r.Distances)
	}
	return req
}
