package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Stage names the extraction step that selected the JSON text.
type Stage string

const (
	StageFence  Stage = "fence"
	StageBraces Stage = "braces"
	StageRaw    Stage = "raw"
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

// FromFence returns the interior of the first fenced code block.
func FromFence(raw string) (string, bool) {
	m := fencedBlock.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FromBraces returns the first balanced top-level {...} span. Braces inside
// JSON strings do not count.
func FromBraces(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// FromRaw treats the whole response as JSON.
func FromRaw(raw string) string {
	return strings.TrimSpace(raw)
}

// Select applies the stages in order and returns the first match.
func Select(raw string) (string, Stage) {
	if s, ok := FromFence(raw); ok {
		return s, StageFence
	}
	if s, ok := FromBraces(raw); ok {
		return s, StageBraces
	}
	return FromRaw(raw), StageRaw
}

// ExtractObject selects the JSON text and checks it decodes as an object.
// Any failure wraps ErrExtraction.
func ExtractObject(raw string) ([]byte, Stage, error) {
	text, stage := Select(raw)
	if text == "" {
		return nil, stage, fmt.Errorf("%w: nothing selected", ErrExtraction)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, stage, fmt.Errorf("%w: %s stage: %v", ErrExtraction, stage, err)
	}
	if obj == nil {
		return nil, stage, fmt.Errorf("%w: %s stage: null", ErrExtraction, stage)
	}
	return []byte(text), stage, nil
}
