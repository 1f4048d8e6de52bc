// Package synthetic produces deterministic placeholder listings for a schema.
// It never fails and never calls out, so it is always available as the
// fallback for model-backed generation.
package synthetic

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"directory-engine/internal/schema"
)

const (
	NameField = "name"

	PlaceholderPhone   = "+1 (555) 123-4567"
	PlaceholderAddress = "123 Main Street, Springfield, USA"
	Headcount          = 50
	DefaultNumber      = 100

	// AutofillYear is the founding year used by the listing-autofill policy.
	AutofillYear = 2010
	// SchemaPreviewYearsAgo is the offset used by the schema-generation policy.
	SchemaPreviewYearsAgo = 10

	fallbackSlug = "example"
)

// YearPolicy chooses the value of numeric "year" fields.
type YearPolicy interface {
	Year(now time.Time) int
	Name() string
}

type relativeYears int

func (r relativeYears) Year(now time.Time) int { return now.Year() - int(r) }
func (r relativeYears) Name() string           { return fmt.Sprintf("current-year-minus-%d", int(r)) }

type fixedYear int

func (f fixedYear) Year(time.Time) int { return int(f) }
func (f fixedYear) Name() string       { return fmt.Sprintf("fixed-%d", int(f)) }

// RelativeYears yields the current year minus n.
func RelativeYears(n int) YearPolicy { return relativeYears(n) }

// FixedYear always yields year.
func FixedYear(year int) YearPolicy { return fixedYear(year) }

var (
	// SchemaPreviewPolicy is used when previewing a freshly generated schema.
	SchemaPreviewPolicy = RelativeYears(SchemaPreviewYearsAgo)
	// AutofillPolicy is used when pre-populating a listing.
	AutofillPolicy = FixedYear(AutofillYear)
)

// Generator builds placeholder payloads.
type Generator struct {
	years YearPolicy
	now   func() time.Time
}

type Option func(*Generator)

// WithClock fixes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(years YearPolicy, opts ...Option) *Generator {
	if years == nil {
		years = AutofillPolicy
	}
	g := &Generator{years: years, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy reports the year policy in use.
func (g *Generator) Policy() YearPolicy { return g.years }

// Generate returns a value for every declared field. The name field is
// always present and always equals entityName.
func (g *Generator) Generate(m *schema.Model, entityName string) schema.Payload {
	slug := Slug(entityName)
	out := make(schema.Payload, m.Len()+1)

	for _, f := range m.Fields() {
		if f.Name == NameField {
			continue
		}
		out[f.Name] = g.value(f, entityName, slug)
	}
	out[NameField] = schema.String(entityName)

	return out
}

func (g *Generator) value(f schema.FieldSpec, entityName, slug string) schema.Value {
	lower := strings.ToLower(f.Name)

	switch f.Type {
	case schema.TypeString:
		return schema.String(stringValue(f, lower, entityName, slug))

	case schema.TypeInteger, schema.TypeNumber:
		switch {
		case strings.Contains(lower, "year"):
			return schema.Int(g.years.Year(g.now()))
		case strings.Contains(lower, "employee"), strings.Contains(lower, "size"):
			return schema.Int(Headcount)
		default:
			return schema.Int(DefaultNumber)
		}

	case schema.TypeBoolean:
		return schema.Bool(true)

	case schema.TypeArray:
		return schema.Array(schema.String("Sample item 1"), schema.String("Sample item 2"))

	case schema.TypeObject:
		return schema.Object(map[string]schema.Value{
			"key1": schema.String("value1"),
			"key2": schema.String("value2"),
		})
	}

	return schema.Null()
}

func stringValue(f schema.FieldSpec, lower, entityName, slug string) string {
	switch {
	case f.Format == schema.FormatURI || strings.Contains(lower, "website") || strings.Contains(lower, "url"):
		return Website(slug)
	case f.Format == schema.FormatEmail || strings.Contains(lower, "email"):
		return fmt.Sprintf("contact@%s.com", slug)
	case f.Format == schema.FormatPhone || strings.Contains(lower, "phone"):
		return PlaceholderPhone
	case strings.Contains(lower, "description"):
		return fmt.Sprintf("%s is a leading organization known for quality and innovation in its field.", entityName)
	case strings.Contains(lower, "address"):
		return PlaceholderAddress
	case strings.Contains(lower, "logo"), strings.Contains(lower, "image"):
		return "https://placehold.co/200x200?text=" + url.QueryEscape(entityName)
	default:
		return "Sample " + f.Label()
	}
}

// Slug lower-cases entityName and strips all whitespace.
func Slug(entityName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(entityName) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// Website is the placeholder site for a slug.
func Website(slug string) string {
	return fmt.Sprintf("https://www.%s.com", slug)
}
