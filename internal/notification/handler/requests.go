package handler

import (
	"strings"

	"hemolink/internal/notification"
	"hemolink/internal/notification/appeal"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

const maxRecipients = 5000

// DispatchRequest is the body of POST /v1/notifications/dispatch.
type DispatchRequest struct {
	RequestID     string   `json:"request_id,omitempty"`
	DonorIDs      []string `json:"donor_ids"`
	EventType     string   `json:"event_type,omitempty"`
	BloodType     string   `json:"blood_type"`
	Units         int      `json:"units"`
	Urgency       string   `json:"urgency,omitempty"`
	RequesterName string   `json:"requester_name,omitempty"`
	Subject       string   `json:"subject,omitempty"`
	Message       string   `json:"message,omitempty"`
	Idempotent    bool     `json:"idempotent,omitempty"`

	parsedDonors  []id.DonorID
	parsedRequest notification.Request
}

func (r *DispatchRequest) Normalize() {
	if r == nil {
		return
	}
	r.RequestID = strings.TrimSpace(r.RequestID)
	r.EventType = strings.ToLower(strings.TrimSpace(r.EventType))
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
}

func (r *DispatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.DonorIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "donor_ids is required")
	}
	if len(r.DonorIDs) > maxRecipients {
		return dErrors.New(dErrors.CodeValidation, "too many donor_ids")
	}
	donors, err := id.ParseDonorIDs(r.DonorIDs)
	if err != nil {
		return err
	}
	bt, err := id.ParseBloodType(r.BloodType)
	if err != nil {
		return err
	}
	var level id.UrgencyLevel
	if r.Urgency != "" {
		if level, err = id.ParseUrgencyLevel(r.Urgency); err != nil {
			return err
		}
	}
	req := notification.Request{
		RequestID:     id.RequestID(r.RequestID),
		EventType:     notification.EventType(r.EventType),
		BloodType:     bt,
		Units:         r.Units,
		Urgency:       level,
		RequesterName: r.RequesterName,
		Subject:       r.Subject,
		Message:       r.Message,
		Idempotent:    r.Idempotent,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	r.parsedDonors = donors
	r.parsedRequest = req
	return nil
}

// AppealRequest is the body of POST /v1/notifications/appeal. An empty blood
// type appeals for the most critical type.
type AppealRequest struct {
	RequestID  string `json:"request_id,omitempty"`
	BloodType  string `json:"blood_type,omitempty"`
	Idempotent bool   `json:"idempotent,omitempty"`

	parsed appeal.Request
}

func (r *AppealRequest) Normalize() {
	if r == nil {
		return
	}
	r.RequestID = strings.TrimSpace(r.RequestID)
	r.BloodType = strings.TrimSpace(r.BloodType)
}

func (r *AppealRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.parsed = appeal.Request{
		RequestID:  id.RequestID(r.RequestID),
		Idempotent: r.Idempotent,
	}
	if r.BloodType != "" {
		bt, err := id.ParseBloodType(r.BloodType)
		if err != nil {
			return err
		}
		r.parsed.BloodType = &bt
	}
	return nil
}
