package transform

import (
	"fmt"
	"strings"
)

// Legacy-mode parsing limits. Lines shorter than minLineChars are noise
// (stray markers, fragments) and are dropped.
const (
	minLineChars        = 10
	numberedTitleChars  = 40
	numberedDescChars   = 150
	minUsableLegacyRows = 2
)

// bulletMarkers are the leading list markers stripped from legacy lines.
const bulletMarkers = "•-*–"

// parseBulletLines parses a legacy plain-string list: one item per line,
// leading bullet markers stripped, short lines dropped, capped at maxItems.
// Best effort only; callers fall back to the slide's key points when fewer
// than two usable items survive.
func parseBulletLines(text string, maxItems, maxCharsPerItem int) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, bulletMarkers)
		line = strings.TrimSpace(line)

		if len(line) < minLineChars {
			continue
		}
		if maxCharsPerItem > 0 {
			line = Truncate(line, maxCharsPerItem, false)
		}
		items = append(items, line)
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}
	return items
}

// numberedItem is one synthetic step parsed from legacy text.
type numberedItem struct {
	Title       string
	Description string
}

// parseNumberedItems parses legacy text into titled steps. A ":" or ". "
// delimiter splits title from description; without one the whole line
// becomes the description under a synthetic "Step N" title. Splitting is on
// the first delimiter only, so descriptions may themselves contain colons.
func parseNumberedItems(text string, maxItems int) []numberedItem {
	lines := parseBulletLines(text, maxItems, 0)

	items := make([]numberedItem, 0, len(lines))
	for i, line := range lines {
		title, desc := splitNumberedLine(line, i+1)
		items = append(items, numberedItem{
			Title:       Truncate(title, numberedTitleChars, false),
			Description: Truncate(desc, numberedDescChars, false),
		})
	}
	return items
}

func splitNumberedLine(line string, ordinal int) (title, desc string) {
	if idx := strings.Index(line, ":"); idx > 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
	}
	if idx := strings.Index(line, ". "); idx > 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+2:])
	}
	return fmt.Sprintf("Step %d", ordinal), line
}
