package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "hemolink/pkg/domain-errors"
)

// DonorID identifies a donor profile in the external donor store. The store
// owns the format, so only emptiness is validated here.
type DonorID string

// RequestID identifies a blood request. Generated IDs are UUIDs.
type RequestID string

// ParseDonorID validates a donor identifier from external input.
func ParseDonorID(s string) (DonorID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "donor id cannot be empty")
	}
	return DonorID(trimmed), nil
}

// ParseDonorIDs validates a list of identifiers, dropping duplicates while
// preserving first-seen order.
func ParseDonorIDs(values []string) ([]DonorID, error) {
	seen := make(map[DonorID]struct{}, len(values))
	out := make([]DonorID, 0, len(values))
	for _, v := range values {
		id, err := ParseDonorID(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// ParseRequestID validates a request identifier; empty input is rejected.
func ParseRequestID(s string) (RequestID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request id cannot be empty")
	}
	return RequestID(trimmed), nil
}

// NewRequestID returns a random UUID-based request identifier.
func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

func (id DonorID) String() string   { return string(id) }
func (id RequestID) String() string { return string(id) }

func (id DonorID) IsNil() bool   { return id == "" }
func (id RequestID) IsNil() bool { return id == "" }
