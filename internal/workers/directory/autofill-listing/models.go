package autofilllisting

import "directory-engine/internal/schema"

type Input struct {
	DirectoryID string `json:"directoryId"`
	EntityName  string `json:"entityName"`
	EntityURL   string `json:"entityUrl,omitempty"`
}

type Output struct {
	Payload  schema.Payload `json:"payload"`
	Fallback bool           `json:"autofillFallback"`
}
