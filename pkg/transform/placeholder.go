package transform

import (
	"fmt"
	"strings"

	"deckster/pkg/deck"
)

// placeholderFor builds the literal placeholder string for an asset field.
// Image, chart, diagram, and table fields are never generated here; the
// rendering layer replaces placeholders with real assets.
func placeholderFor(fieldName string, slide *deck.Slide) string {
	var kind, hint string
	lower := strings.ToLower(fieldName)

	switch {
	case strings.Contains(lower, "chart"):
		kind, hint = "CHART", slide.AnalyticsNeeded
	case strings.Contains(lower, "diagram"):
		kind, hint = "DIAGRAM", slide.DiagramsNeeded
	case strings.Contains(lower, "table"):
		kind, hint = "TABLE", slide.TablesNeeded
	case strings.Contains(lower, "image"), strings.Contains(lower, "photo"), strings.Contains(lower, "icon"):
		kind, hint = "IMAGE", slide.VisualsNeeded
	default:
		kind, hint = "ASSET", ""
	}

	description := extractContentHint(hint)
	if description == "" {
		description = slide.Title
	}
	return fmt.Sprintf("PLACEHOLDER_%s: %s", kind, description)
}

// extractContentHint pulls the Content portion out of an asset hint written
// in the **Goal:** / **Content:** / **Style:** convention. Hints without
// that structure are returned as-is.
func extractContentHint(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}

	const marker = "**Content:**"
	idx := strings.Index(hint, marker)
	if idx < 0 {
		return hint
	}

	rest := hint[idx+len(marker):]
	if end := strings.Index(rest, "**"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// isAssetField reports whether a schema field holds an asset reference
// rather than text.
func isAssetField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, marker := range []string{"image", "photo", "chart", "diagram", "icon"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
