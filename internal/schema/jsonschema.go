package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// property is the JSON Schema subset understood for a single field.
type property struct {
	Type        json.RawMessage `json:"type,omitempty"`
	Format      string          `json:"format,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
}

type document struct {
	Type       string          `json:"type,omitempty"`
	Title      string          `json:"title,omitempty"`
	Required   []string        `json:"required,omitempty"`
	Properties orderedProperty `json:"properties,omitempty"`
}

type namedProperty struct {
	name string
	prop property
}

// orderedProperty decodes a JSON object while keeping key order, which is
// the declaration order of the schema.
type orderedProperty []namedProperty

func (o *orderedProperty) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties must be an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var p property
		// non-object property values such as `true` are treated as untyped
		_ = json.Unmarshal(raw, &p)
		*o = append(*o, namedProperty{name: key, prop: p})
	}

	_, err = dec.Token()
	return err
}

// decodeType accepts "string" or ["string","null"] forms.
func decodeType(raw json.RawMessage) FieldType {
	if len(raw) == 0 {
		return TypeString
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return TypeString
		}
		return FieldType(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t != "null" && t != "" {
				return FieldType(t)
			}
		}
	}
	return TypeString
}

// FromJSONSchema parses a JSON Schema document, repairing it into a valid
// Model: required names without a property become string fields, formats on
// non-string fields are dropped and duplicate names keep their first entry.
func FromJSONSchema(data []byte) (*Model, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return fromDocument(doc)
}

func fromDocument(doc document) (*Model, error) {
	seen := make(map[string]bool, len(doc.Properties))
	fields := make([]FieldSpec, 0, len(doc.Properties)+len(doc.Required))

	for _, np := range doc.Properties {
		if np.name == "" || seen[np.name] {
			continue
		}
		seen[np.name] = true

		f := FieldSpec{
			Name:        np.name,
			Type:        decodeType(np.prop.Type),
			Format:      np.prop.Format,
			Title:       np.prop.Title,
			Description: np.prop.Description,
		}
		if f.Type != TypeString {
			f.Format = ""
		}
		fields = append(fields, f)
	}

	required := make([]string, 0, len(doc.Required))
	for _, name := range doc.Required {
		if name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			fields = append(fields, FieldSpec{Name: name, Type: TypeString})
		}
		required = append(required, name)
	}

	return New(doc.Title, fields, required)
}

// MarshalJSON renders the model as a JSON Schema object with properties in
// declaration order.
func (m *Model) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object"`)

	if m.title != "" {
		writeKey(&buf, "title")
		if err := writeValue(&buf, m.title); err != nil {
			return nil, err
		}
	}

	writeKey(&buf, "required")
	required := m.required
	if required == nil {
		required = []string{}
	}
	if err := writeValue(&buf, required); err != nil {
		return nil, err
	}

	writeKey(&buf, "properties")
	buf.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')

		typ, _ := json.Marshal(string(f.Type))
		if err := writeValue(&buf, property{
			Type:        typ,
			Format:      f.Format,
			Title:       f.Title,
			Description: f.Description,
		}); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")

	return buf.Bytes(), nil
}

// UnmarshalJSON is FromJSONSchema in place.
func (m *Model) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSONSchema(data)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// ToMap renders the model as a generic JSON value, for validators that take
// decoded documents.
func (m *Model) ToMap() (map[string]interface{}, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeKey(buf *bytes.Buffer, key string) {
	buf.WriteString(`,"`)
	buf.WriteString(key)
	buf.WriteString(`":`)
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
