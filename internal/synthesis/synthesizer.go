// Package synthesis turns an operator interview into a directory schema.
package synthesis

import (
	"context"
	"strings"
	"unicode"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/schema"
	"directory-engine/internal/synthetic"
)

const defaultSampleEntity = "Sample Entry"

// SchemaGenerator is the model-backed schema source.
type SchemaGenerator interface {
	SynthesizeSchema(ctx context.Context, in schema.Interview) (*schema.Model, error)
}

// Result is a synthesized schema plus a preview listing for it.
type Result struct {
	Schema   *schema.Model
	Sample   schema.Payload
	Fallback bool
}

type Synthesizer struct {
	generator SchemaGenerator
	preview   *synthetic.Generator
	logger    logger.Logger
}

// New builds a Synthesizer. generator may be nil, in which case every call
// takes the deterministic path.
func New(generator SchemaGenerator, preview *synthetic.Generator, log logger.Logger) *Synthesizer {
	if preview == nil {
		preview = synthetic.New(synthetic.SchemaPreviewPolicy)
	}
	return &Synthesizer{
		generator: generator,
		preview:   preview,
		logger:    logger.Component(log, "schema-synthesizer"),
	}
}

// Synthesize tries the model first and falls back to Derive on any failure.
// It never fails.
func (s *Synthesizer) Synthesize(ctx context.Context, in schema.Interview) Result {
	res := Result{Fallback: true}

	if s.generator != nil {
		m, err := s.generator.SynthesizeSchema(ctx, in)
		if err == nil {
			res.Schema = s.enforceInterview(m, in)
			res.Fallback = false
		} else {
			s.logger.Warn("schema generation fell back to derivation", map[string]interface{}{
				"directoryType": in.DirectoryType,
				"error":         err.Error(),
			})
		}
	}

	if res.Schema == nil {
		res.Schema = s.Derive(in)
	}

	res.Sample = s.preview.Generate(res.Schema, sampleEntity(in))
	return res
}

// Derive builds a schema from the interview alone: required fields first,
// then optional ones, every field a string unless its name suggests
// otherwise, and a required name field always present.
func (s *Synthesizer) Derive(in schema.Interview) *schema.Model {
	var (
		fields   []schema.FieldSpec
		required []string
		seen     = map[string]bool{}
	)

	add := func(raw string, isRequired bool) {
		name := NormalizeFieldName(raw)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		fields = append(fields, deriveField(name))
		if isRequired {
			required = append(required, name)
		}
	}

	for _, f := range schema.SplitList(in.RequiredFields) {
		add(f, true)
	}
	for _, f := range schema.SplitList(in.OptionalFields) {
		add(f, false)
	}

	// every name came from deriveField, so invariants hold
	m := schema.MustNew(strings.TrimSpace(in.DirectoryType), fields, required)
	return m.WithRequired(nameSpec())
}

// enforceInterview makes the operator's required fields and the name field
// required on a generated schema.
func (s *Synthesizer) enforceInterview(m *schema.Model, in schema.Interview) *schema.Model {
	requested := schema.SplitList(in.RequiredFields)
	for i := len(requested) - 1; i >= 0; i-- {
		name := NormalizeFieldName(requested[i])
		if name == "" || m.IsRequired(name) {
			continue
		}
		spec, ok := m.Field(name)
		if !ok {
			spec = deriveField(name)
		}
		m = m.WithRequired(spec)
	}
	return m.WithRequired(nameSpec())
}

func nameSpec() schema.FieldSpec {
	return schema.FieldSpec{Name: synthetic.NameField, Type: schema.TypeString, Title: "Name"}
}

func deriveField(name string) schema.FieldSpec {
	f := schema.FieldSpec{Name: name, Type: schema.TypeString, Title: humanize(name)}

	switch {
	case strings.Contains(name, "year"), strings.Contains(name, "count"), strings.Contains(name, "size"):
		f.Type = schema.TypeInteger
	case strings.Contains(name, "email"):
		f.Format = schema.FormatEmail
	case strings.Contains(name, "url"), strings.Contains(name, "website"):
		f.Format = schema.FormatURI
	case strings.Contains(name, "date"):
		f.Format = schema.FormatDate
	case strings.Contains(name, "phone"):
		f.Format = schema.FormatPhone
	}
	return f
}

// NormalizeFieldName lower-cases raw, turns whitespace and hyphens into single
// underscores and drops anything else that is not a letter or digit.
func NormalizeFieldName(raw string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}

func humanize(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func sampleEntity(in schema.Interview) string {
	if examples := in.Examples(); len(examples) > 0 {
		return examples[0]
	}
	return defaultSampleEntity
}
