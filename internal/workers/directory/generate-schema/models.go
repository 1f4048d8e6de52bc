package generateschema

import "directory-engine/internal/schema"

// Input mirrors the operator interview carried in process variables.
type Input struct {
	DirectoryType   string `json:"directoryType"`
	ExampleEntities string `json:"exampleEntities,omitempty"`
	RequiredFields  string `json:"requiredFields,omitempty"`
	OptionalFields  string `json:"optionalFields,omitempty"`
}

func (in *Input) Interview() schema.Interview {
	return schema.Interview{
		DirectoryType:   in.DirectoryType,
		ExampleEntities: in.ExampleEntities,
		RequiredFields:  in.RequiredFields,
		OptionalFields:  in.OptionalFields,
	}
}

type Output struct {
	Schema   *schema.Model  `json:"schema"`
	Sample   schema.Payload `json:"sample"`
	Fallback bool           `json:"schemaFallback"`
}
