package handler

import (
	"time"

	"hemolink/internal/notification"
	"hemolink/internal/notification/appeal"
	id "hemolink/pkg/domain"
)

type DispatchResponse struct {
	RequestID    string            `json:"request_id"`
	SuccessCount int               `json:"success_count"`
	Failures     []string          `json:"failures"`
	Skipped      []string          `json:"skipped"`
	Errors       map[string]string `json:"errors,omitempty"`
	Partial      bool              `json:"partial"`
}

type AppealResponse struct {
	BloodType    string           `json:"blood_type"`
	Appeal       string           `json:"appeal"`
	Message      string           `json:"message"`
	Selected     bool             `json:"selected"`
	CurrentUnits int              `json:"current_units"`
	OptimalUnits int              `json:"optimal_units"`
	UnitsNeeded  int              `json:"units_needed"`
	Dispatch     DispatchResponse `json:"dispatch"`
}

type DeliveriesResponse struct {
	RequestID  string             `json:"request_id"`
	Sent       int                `json:"sent"`
	Failed     int                `json:"failed"`
	Deliveries []DeliveryResponse `json:"deliveries"`
}

type DeliveryResponse struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	EventType   string    `json:"event_type"`
	BloodType   string    `json:"blood_type"`
	Units       int       `json:"units"`
	Subject     string    `json:"subject"`
	Bulk        bool      `json:"is_bulk"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Channel     string    `json:"channel"`
	CreatedAt   time.Time `json:"created_at"`
}

func dispatchResponse(r *notification.Result) DispatchResponse {
	resp := DispatchResponse{
		RequestID:    r.RequestID.String(),
		SuccessCount: r.SuccessCount,
		Failures:     make([]string, len(r.Failures)),
		Skipped:      make([]string, len(r.Skipped)),
		Partial:      r.Partial(),
	}
	for i, f := range r.Failures {
		resp.Failures[i] = f.String()
	}
	for i, s := range r.Skipped {
		resp.Skipped[i] = s.String()
	}
	if len(r.Errors) > 0 {
		resp.Errors = make(map[string]string, len(r.Errors))
		for donorID, msg := range r.Errors {
			resp.Errors[donorID.String()] = msg
		}
	}
	return resp
}

func appealResponse(r *appeal.Result) AppealResponse {
	return AppealResponse{
		BloodType:    r.Recommendation.BloodType.String(),
		Appeal:       string(r.Recommendation.Appeal),
		Message:      r.Recommendation.Message,
		Selected:     r.Selected,
		CurrentUnits: r.Stock.CurrentUnits,
		OptimalUnits: r.Stock.OptimalUnits,
		UnitsNeeded:  r.UnitsNeeded,
		Dispatch:     dispatchResponse(r.Dispatch),
	}
}

func deliveriesResponse(requestID id.RequestID, records []notification.DeliveryRecord) DeliveriesResponse {
	resp := DeliveriesResponse{
		RequestID:  requestID.String(),
		Deliveries: make([]DeliveryResponse, len(records)),
	}
	for i, r := range records {
		if r.Status == notification.StatusSent {
			resp.Sent++
		} else {
			resp.Failed++
		}
		resp.Deliveries[i] = DeliveryResponse{
			ID:          r.ID.String(),
			RecipientID: r.RecipientID.String(),
			EventType:   string(r.EventType),
			BloodType:   r.BloodType.String(),
			Units:       r.Units,
			Subject:     r.Subject,
			Bulk:        r.Bulk,
			Status:      string(r.Status),
			Error:       r.Error,
			Channel:     r.Channel,
			CreatedAt:   r.CreatedAt,
		}
	}
	return resp
}
