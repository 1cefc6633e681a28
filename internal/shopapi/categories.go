package shopapi

import (
	"encoding/json"
	"strings"
)

type categoryRecord struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// NormalizeCategories turns the categories payload into labels. Entries may
// be plain strings or records; records contribute their slug, or their name
// when the slug is missing. Entries that yield no label are dropped.
func NormalizeCategories(raw []json.RawMessage) []string {
	labels := make([]string, 0, len(raw))
	for _, entry := range raw {
		if label := normalizeCategory(entry); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

func normalizeCategory(entry json.RawMessage) string {
	var label string
	if err := json.Unmarshal(entry, &label); err == nil {
		return strings.TrimSpace(label)
	}

	var rec categoryRecord
	if err := json.Unmarshal(entry, &rec); err != nil {
		return ""
	}
	if s := strings.TrimSpace(rec.Slug); s != "" {
		return s
	}
	return strings.TrimSpace(rec.Name)
}
