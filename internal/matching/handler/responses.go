package handler

import (
	"time"

	"hemolink/internal/matching"
	"hemolink/internal/scoring"
)

// RankResponse is the HTTP response body for POST /v1/matching/rank.
type RankResponse struct {
	RequestID   string          `json:"request_id,omitempty"`
	BloodType   string          `json:"blood_type"`
	UnitsNeeded int             `json:"units_needed"`
	Outcome     string          `json:"outcome"`
	Cap         int             `json:"cap"`
	CapPolicy   string          `json:"cap_policy"`
	Candidates  int             `json:"candidates"`
	Eligible    int             `json:"eligible"`
	Donors      []DonorResponse `json:"donors"`
}

type DonorResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	BloodType        string            `json:"blood_type"`
	ExactMatch       bool              `json:"exact_match"`
	DistanceKm       float64           `json:"distance_km"`
	LastDonation     *time.Time        `json:"last_donation"`
	Score            float64           `json:"score"`
	Tier             string            `json:"tier"`
	Breakdown        scoring.Breakdown `json:"breakdown"`
	EligibleToNotify bool              `json:"eligible_to_notify"`
	Email            string            `json:"email,omitempty"`
	Phone            string            `json:"phone,omitempty"`
}

// FromResult converts a ranking result into its response body.
func FromResult(requestID string, req matching.RankRequest, result *matching.RankResult) RankResponse {
	resp := RankResponse{
		RequestID:   requestID,
		BloodType:   req.BloodType.String(),
		UnitsNeeded: req.UnitsNeeded,
		Outcome:     string(result.Outcome),
		Cap:         result.Cap,
		CapPolicy:   string(result.CapPolicy),
		Candidates:  result.Candidates,
		Eligible:    result.Eligible,
		Donors:      make([]DonorResponse, len(result.Donors)),
	}
	for i, d := range result.Donors {
		resp.Donors[i] = DonorResponse{
			ID:               d.ID.String(),
			Name:             d.Name,
			BloodType:        d.BloodType.String(),
			ExactMatch:       d.ExactMatch,
			DistanceKm:       d.DistanceKm,
			LastDonation:     d.LastDonation,
			Score:            d.Score,
			Tier:             string(d.Tier),
			Breakdown:        d.Breakdown,
			EligibleToNotify: d.EligibleToNotify,
			Email:            d.Email,
			Phone:            d.Phone,
		}
	}
	return resp
}
