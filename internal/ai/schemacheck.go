package ai

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// generatedSchemaShape is the structure a model-produced schema document must
// have before it is turned into a schema.Model.
var generatedSchemaShape = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["properties"],
	"properties": {
		"type": {"type": "string"},
		"title": {"type": "string"},
		"required": {"type": "array", "items": {"type": "string"}},
		"properties": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"properties": {
					"type": {"type": ["string", "array"]},
					"format": {"type": "string"},
					"title": {"type": "string"},
					"description": {"type": "string"}
				}
			}
		}
	}
}`)

// checkSchemaDocument validates doc against generatedSchemaShape.
func checkSchemaDocument(doc []byte) error {
	result, err := gojsonschema.Validate(generatedSchemaShape, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("generated schema rejected: %s", strings.Join(msgs, "; "))
}
