package adapters

import (
	"context"
	"fmt"

	"hemolink/internal/matching"
	"hemolink/internal/notification"
	id "hemolink/pkg/domain"
)

// ProfileContacts resolves notification recipients from donor profiles.
type ProfileContacts struct {
	profiles matching.ProfileStore
}

func NewProfileContacts(profiles matching.ProfileStore) *ProfileContacts {
	return &ProfileContacts{profiles: profiles}
}

func (a *ProfileContacts) FetchRecipients(ctx context.Context, ids []id.DonorID) (map[id.DonorID]notification.Recipient, error) {
	profiles, err := a.profiles.FetchProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	out := make(map[id.DonorID]notification.Recipient, len(profiles))
	for donorID, p := range profiles {
		out[donorID] = notification.Recipient{
			DonorID: donorID,
			Name:    p.DisplayName(),
			Email:   p.Email,
			Phone:   p.Phone,
		}
	}
	return out, nil
}
