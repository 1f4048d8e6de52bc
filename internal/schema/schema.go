// Package schema holds the in-memory field schema of a directory and the
// typed values that listings carry for it.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateField   = errors.New("duplicate field")
	ErrUnknownRequired  = errors.New("required field not declared")
	ErrFormatNotAllowed = errors.New("format is only valid on string fields")
	ErrEmptyFieldName   = errors.New("field name is empty")
)

// FieldType is the declared JSON type of a field. Values outside the known
// set are preserved as-is so that documents produced elsewhere survive a
// round-trip.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

func (t FieldType) Known() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Common format hints. Any other string is accepted as a free-form hint.
const (
	FormatURI   = "uri"
	FormatEmail = "email"
	FormatDate  = "date"
	FormatPhone = "phone"
)

// FieldSpec describes one field of a directory.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Format      string
	Title       string
	Description string
}

// Label is the human-facing name of the field.
func (f FieldSpec) Label() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Name
}

// Model is an immutable, ordered field schema. Every required name is a
// declared field.
type Model struct {
	title    string
	fields   []FieldSpec
	index    map[string]int
	required []string
	isReq    map[string]bool
}

// New builds a Model, rejecting schemas that break its invariants.
func New(title string, fields []FieldSpec, required []string) (*Model, error) {
	m := &Model{
		title:  title,
		fields: make([]FieldSpec, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
		isReq:  make(map[string]bool, len(required)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, ErrEmptyFieldName
		}
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}
		if f.Format != "" && f.Type != TypeString {
			return nil, fmt.Errorf("%w: %s", ErrFormatNotAllowed, f.Name)
		}
		m.index[f.Name] = len(m.fields)
		m.fields = append(m.fields, f)
	}

	for _, name := range required {
		if _, ok := m.index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRequired, name)
		}
		if m.isReq[name] {
			continue
		}
		m.isReq[name] = true
		m.required = append(m.required, name)
	}

	return m, nil
}

// MustNew is New for statically known schemas.
func MustNew(title string, fields []FieldSpec, required []string) *Model {
	m, err := New(title, fields, required)
	if err != nil {
		panic(err)
	}
	return m
}

// A nil *Model reads as an empty schema: no fields, nothing required.

func (m *Model) Title() string {
	if m == nil {
		return ""
	}
	return m.title
}

// Fields returns the fields in declaration order.
func (m *Model) Fields() []FieldSpec {
	if m == nil {
		return nil
	}
	out := make([]FieldSpec, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m *Model) Field(name string) (FieldSpec, bool) {
	if m == nil {
		return FieldSpec{}, false
	}
	i, ok := m.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return m.fields[i], true
}

// Required returns the required names in declaration order of the required list.
func (m *Model) Required() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.required))
	copy(out, m.required)
	return out
}

func (m *Model) IsRequired(name string) bool { return m != nil && m.isReq[name] }

func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// DescribeFields renders one line per field, in declaration order, in the
// form "name: type (required|optional) - description".
func (m *Model) DescribeFields() []string {
	lines := make([]string, 0, m.Len())
	for _, f := range m.Fields() {
		presence := "optional"
		if m.IsRequired(f.Name) {
			presence = "required"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s (%s)", f.Name, f.Type, presence)
		desc := f.Description
		if desc == "" {
			desc = f.Title
		}
		if desc != "" {
			b.WriteString(" - ")
			b.WriteString(desc)
		}
		lines = append(lines, b.String())
	}
	return lines
}

// WithRequired returns a copy in which f.Name is declared and required. A
// missing field is placed first; an existing declaration is kept.
func (m *Model) WithRequired(f FieldSpec) *Model {
	if f.Name == "" {
		return m
	}
	if f.Type != TypeString {
		f.Format = ""
	}

	fields := m.Fields()
	if _, ok := m.Field(f.Name); !ok {
		fields = append([]FieldSpec{f}, fields...)
	}

	required := m.Required()
	if !m.IsRequired(f.Name) {
		required = append([]string{f.Name}, required...)
	}

	// invariants already hold for m and f.Name is declared above
	return MustNew(m.Title(), fields, required)
}
