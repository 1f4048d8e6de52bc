package service

import (
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

type SchemaResponse struct {
	Schema   *schema.Model  `json:"schema"`
	Sample   schema.Payload `json:"sample"`
	Fallback bool           `json:"fallback"`
}

type AutofillRequest struct {
	DirectoryID string `json:"directoryId"`
	EntityName  string `json:"entityName"`
	EntityURL   string `json:"entityUrl,omitempty"`
}

type AutofillResponse struct {
	Payload  schema.Payload `json:"payload"`
	Fallback bool           `json:"fallback"`
}

type CreateListingRequest struct {
	DirectoryID string         `json:"directoryId"`
	Payload     schema.Payload `json:"payload"`
}

type StatusResponse struct {
	Listing  *listing.Listing `json:"listing"`
	Previous listing.Status   `json:"previous"`
	Changed  bool             `json:"changed"`
}

type ListRequest struct {
	DirectoryID string
	Status      string
	Limit       int
	Offset      int
}

type SearchRequest struct {
	DirectoryID string
	Query       string
	Limit       int
	Offset      int
}
