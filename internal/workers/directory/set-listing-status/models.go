package setlistingstatus

import (
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
)

// Input is the moderation decision of a review task.
type Input struct {
	ListingID  string   `json:"listingId"`
	Status     string   `json:"status"`
	ActorID    string   `json:"actorId"`
	ActorRoles []string `json:"actorRoles,omitempty"`
}

func (in *Input) Actor(adminRole string) identity.Identity {
	if in.ActorID == "" {
		return identity.Identity{}
	}
	return identity.Identity{
		UserID:       in.ActorID,
		Capabilities: identity.CapabilitiesFromRoles(in.ActorRoles, adminRole),
	}
}

type Output struct {
	ListingStatus    listing.Status `json:"listingStatus"`
	PreviousStatus   listing.Status `json:"previousStatus"`
	StatusChanged    bool           `json:"statusChanged"`
	ListingUpdatedAt string         `json:"listingUpdatedAt"`
}
