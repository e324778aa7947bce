package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
)

// EventType names the reason a donor was contacted.
type EventType string

const (
	EventBloodRequest EventType = "blood_request"
	EventLowStock     EventType = "low_stock"
)

func (e EventType) IsValid() bool {
	return e == EventBloodRequest || e == EventLowStock
}

// Status is the terminal state of a single delivery attempt.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Request describes one bulk notification. For low-stock appeals Units is the
// current stock rather than the units needed.
type Request struct {
	RequestID     id.RequestID
	EventType     EventType
	BloodType     id.BloodType
	Units         int
	Urgency       id.UrgencyLevel
	RequesterName string

	// Subject and Message override the rendered templates when set.
	Subject string
	Message string

	// Idempotent enables requestID:donorID delivery keys. Retries of the same
	// request then never send twice to a donor already marked as delivered.
	Idempotent bool
}

// Validate checks the request and fills defaults. A missing request ID is
// generated, which makes idempotency meaningless for that call.
func (r *Request) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "notification request is required")
	}
	if r.EventType == "" {
		r.EventType = EventBloodRequest
	}
	if !r.EventType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown event type: "+string(r.EventType))
	}
	if !r.BloodType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown blood type: "+string(r.BloodType))
	}
	if r.EventType == EventBloodRequest && r.Units <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units must be positive")
	}
	if r.Units < 0 {
		return dErrors.New(dErrors.CodeValidation, "units cannot be negative")
	}
	if r.Urgency != "" && !r.Urgency.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown urgency level: "+string(r.Urgency))
	}
	r.RequesterName = strings.TrimSpace(r.RequesterName)
	if r.RequestID.IsNil() {
		r.RequestID = id.NewRequestID()
	}
	return nil
}

// Recipient is the contact side of a donor as needed by a channel.
type Recipient struct {
	DonorID id.DonorID
	Name    string
	Email   string
	Phone   string
}

// Envelope is a rendered message addressed to one recipient.
type Envelope struct {
	RecordID  uuid.UUID
	RequestID id.RequestID
	Recipient Recipient
	EventType EventType
	BloodType id.BloodType
	Units     int
	Subject   string
	Message   string
}

// DeliveryRecord is the append-only audit entry for one attempted delivery.
// IdempotencyKey is only set on sent records of idempotent requests.
type DeliveryRecord struct {
	ID             uuid.UUID
	RecipientID    id.DonorID
	RequestID      id.RequestID
	Subject        string
	Message        string
	EventType      EventType
	BloodType      id.BloodType
	Units          int
	Bulk           bool
	Status         Status
	Error          string
	IdempotencyKey string
	Channel        string
	CreatedAt      time.Time
}

// IdempotencyKey builds the delivery key for a donor within a request.
func IdempotencyKey(requestID id.RequestID, donorID id.DonorID) string {
	return requestID.String() + ":" + donorID.String()
}

// Result summarizes a dispatch. Skipped donors were already delivered and are
// included in SuccessCount. Errors carries the failure reason per donor.
type Result struct {
	RequestID    id.RequestID
	SuccessCount int
	Failures     []id.DonorID
	Skipped      []id.DonorID
	Errors       map[id.DonorID]string
}

// Partial reports whether some but not all recipients failed.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0 && r.SuccessCount > 0
}
