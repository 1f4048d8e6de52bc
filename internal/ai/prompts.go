package ai

import (
	"fmt"
	"regexp"
	"strings"

	"directory-engine/internal/schema"
)

const (
	schemaSystemPrompt = "You are a data architect who designs JSON Schemas for directory websites. " +
		"Respond with a single JSON object only."

	listingSystemPrompt = "You are a research assistant who fills in directory listings with accurate, concise facts. " +
		"Respond with a single JSON object only."
)

func buildSchemaPrompt(in schema.Interview) string {
	parts := []string{
		fmt.Sprintf("Design a JSON Schema for a directory of %s.", strings.TrimSpace(in.DirectoryType)),
	}
	if examples := in.Examples(); len(examples) > 0 {
		parts = append(parts, "Example entries: "+strings.Join(examples, ", ")+".")
	}
	if required := schema.SplitList(in.RequiredFields); len(required) > 0 {
		parts = append(parts, "Required fields: "+strings.Join(required, ", ")+".")
	}
	if optional := schema.SplitList(in.OptionalFields); len(optional) > 0 {
		parts = append(parts, "Optional fields: "+strings.Join(optional, ", ")+".")
	}
	parts = append(parts,
		`The object must have "type": "object", a "required" array of field names and a "properties" object.`,
		`Each property needs a "type" (string, integer, number, boolean, array or object), a "title" and a "description".`,
		`Use "format" only on string properties, e.g. "uri", "email" or "date".`,
		`Use snake_case field names and always include a required "name" field.`,
		"Return only the JSON object, no markdown, no explanation.",
	)
	return scrubSecrets(strings.Join(parts, "\n"))
}

func buildListingPrompt(m *schema.Model, entityName, entityURL string) string {
	subject := fmt.Sprintf("%q", entityName)
	if entityURL != "" {
		subject += fmt.Sprintf(" (website: %s)", entityURL)
	}
	parts := []string{
		fmt.Sprintf("Generate directory listing data for %s.", subject),
	}
	if title := m.Title(); title != "" {
		parts = append(parts, fmt.Sprintf("The directory lists %s.", title))
	}
	parts = append(parts, "Return a single JSON object with exactly these keys:")
	for _, line := range m.DescribeFields() {
		parts = append(parts, "- "+line)
	}
	parts = append(parts,
		"Use null for values you cannot determine.",
		"Return only the JSON object, no markdown, no explanation.",
	)
	return scrubSecrets(strings.Join(parts, "\n"))
}

var secretPatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(OPENAI_API_KEY|ANTHROPIC_API_KEY|AWS_SECRET_ACCESS_KEY|DB_PASSWORD)\s*=\s*([^\s]+)`), "$1=[REDACTED]"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), "[REDACTED:API_KEY]"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "[REDACTED:AWS_KEY]"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`), "Bearer [REDACTED]"},
}

// scrubSecrets removes credential-looking strings from operator input before
// it leaves the process.
func scrubSecrets(content string) string {
	for _, p := range secretPatterns {
		content = p.regex.ReplaceAllString(content, p.replacement)
	}
	return content
}
