package listing

import (
	"errors"
	"fmt"

	"directory-engine/internal/schema"
)

var ErrMissingRequiredField = errors.New("missing required field")

// MissingFieldError names the first required field a payload lacks.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingRequiredField }

// Validate checks the payload against the schema's required fields in
// declaration order and reports the first one that is absent or a blank
// string. Fields the schema does not declare are never inspected.
func Validate(m *schema.Model, p schema.Payload) error {
	if m == nil {
		return nil
	}
	for _, name := range m.Required() {
		v, ok := p[name]
		if !ok || v.Blank() {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}
