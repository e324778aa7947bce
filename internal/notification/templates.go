package notification

import (
	"fmt"
)

const defaultRequester = "A hospital"

// Render returns the subject and body for req. Overrides on the request win
// over the templates.
func Render(req Request) (subject, message string) {
	switch req.EventType {
	case EventLowStock:
		subject = fmt.Sprintf("Urgent: %s Blood Stock is Low", req.BloodType)
		message = fmt.Sprintf(
			"Our %s blood supply is critically low with only %d units available. "+
				"Your donation can save lives. Please consider donating soon.",
			req.BloodType, req.Units)
	default:
		requester := req.RequesterName
		if requester == "" {
			requester = defaultRequester
		}
		subject = fmt.Sprintf("Urgent Blood Donation Request: %s", req.BloodType)
		message = fmt.Sprintf(
			"%s urgently needs %d units of %s blood. Please consider donating as soon as possible.",
			requester, req.Units, req.BloodType)
	}
	if req.Subject != "" {
		subject = req.Subject
	}
	if req.Message != "" {
		message = req.Message
	}
	return subject, message
}
