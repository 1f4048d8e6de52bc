package schema

import "strings"

// Interview is the operator's free-text description of a new directory.
type Interview struct {
	DirectoryType   string `json:"directoryType"`
	ExampleEntities string `json:"exampleEntities"`
	RequiredFields  string `json:"requiredFields"`
	OptionalFields  string `json:"optionalFields"`
}

// Examples splits the example entity list.
func (i Interview) Examples() []string {
	return SplitList(i.ExampleEntities)
}

// SplitList splits a comma separated list, trimming entries and dropping empty ones.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
