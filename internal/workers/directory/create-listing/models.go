package createlisting

import (
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

type Input struct {
	DirectoryID string         `json:"directoryId"`
	Payload     schema.Payload `json:"payload"`
	ActorID     string         `json:"actorId"`
	ActorRoles  []string       `json:"actorRoles,omitempty"`
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
	ListingID     string           `json:"listingId"`
	ListingStatus listing.Status   `json:"listingStatus"`
	Listing       *listing.Listing `json:"listing"`
}
