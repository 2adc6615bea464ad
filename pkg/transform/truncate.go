// Package transform converts generic slides into layout-specific,
// character-budgeted render payloads.
package transform

import (
	"strings"
	"unicode/utf8"
)

// sentenceBoundaryRatio is the fraction of the budget after which a
// sentence-ending cut is acceptable.
const sentenceBoundaryRatio = 0.7

// Truncate shortens text to at most maxChars characters (runes, so multibyte
// input never gets split mid-character). Preference order: cut at the last
// sentence-ending punctuation found at or after 70% of the budget, then at
// the last whitespace boundary, then a hard cut. The ellipsis is appended
// only on request; by default the rendering layer owns overflow indication.
// Text already within budget is returned unchanged.
func Truncate(text string, maxChars int, addEllipsis bool) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	window := string(runes[:maxChars])
	threshold := int(float64(maxChars) * sentenceBoundaryRatio)

	cut := -1 // rune count to keep
	for _, ending := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(window, ending); idx >= 0 {
			// Keep the punctuation, drop the trailing space.
			keep := utf8.RuneCountInString(window[:idx+1])
			if keep > cut && keep >= threshold {
				cut = keep
			}
		}
	}

	if cut < 0 {
		if idx := strings.LastIndexFunc(window, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); idx > 0 {
			cut = utf8.RuneCountInString(window[:idx])
		}
	}

	if cut < 0 {
		cut = maxChars
	}

	out := strings.TrimRight(string(runes[:cut]), " \t\n")
	if addEllipsis {
		out += "..."
	}
	return out
}
