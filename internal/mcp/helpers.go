package mcpserver

import (
	"encoding/json"
	"strings"

	"emailbuilder/internal/domain"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

func boolPtr(v bool) *bool { return &v }

// splitIDs splits a comma-separated list, dropping blanks.
func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

type blockSummary struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Preview  string         `json:"preview,omitempty"`
	Children []blockSummary `json:"children,omitempty"`
}

// summarizeTree is the compact view agents read instead of full content.
func summarizeTree(blocks []*domain.Block) []blockSummary {
	out := make([]blockSummary, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockSummary{
			ID:       b.ID,
			Type:     b.Type,
			Preview:  preview(b.Content),
			Children: summarizeTree(b.Children),
		})
	}
	return out
}

// preview is the first textual field of a block, cut to 80 runes.
func preview(c domain.Content) string {
	for _, key := range []string{"text", "title", "name", "code", "description"} {
		if v := c.String(key); v != "" {
			r := []rune(v)
			if len(r) > 80 {
				return string(r[:80]) + "..."
			}
			return v
		}
	}
	return ""
}
