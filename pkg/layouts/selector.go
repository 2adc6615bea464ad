package layouts

import (
	"context"
	"fmt"
	"strings"

	"deckster/pkg/deck"
	"deckster/pkg/llm"
	"deckster/pkg/logx"
)

// Fixed layout assignments used by positional overrides.
const (
	LayoutTitle   = "L01"
	LayoutDivider = "L02"
	LayoutClosing = "L03"
	// LayoutFallback is the bullet-list layout used when semantic selection
	// fails or no better match exists.
	LayoutFallback = "L05"
)

// FallbackConfidence is reported when selection degrades to the fallback layout.
const FallbackConfidence = 0.5

// Position of a slide within its presentation.
type Position string

const (
	PositionFirst  Position = "first"
	PositionMiddle Position = "middle"
	PositionLast   Position = "last"
)

// PositionOf derives the position from a slide number and total count.
func PositionOf(slideNumber, totalSlides int) Position {
	switch {
	case slideNumber == 1:
		return PositionFirst
	case slideNumber == totalSlides:
		return PositionLast
	default:
		return PositionMiddle
	}
}

// Selection is the result of layout selection for one slide.
type Selection struct {
	LayoutID   string
	Reasoning  string
	Confidence float64
}

// Selector assigns a layout to each slide: positional overrides first, then
// semantic matching against the catalog's best-use-case text.
type Selector struct {
	catalog *Catalog
	client  llm.LLMClient
	logger  *logx.Logger
}

// NewSelector creates a layout selector. The client may be nil, in which
// case semantic selection is skipped and middle slides are matched against
// the catalog keyword lists instead.
func NewSelector(catalog *Catalog, client llm.LLMClient) *Selector {
	return &Selector{
		catalog: catalog,
		client:  client,
		logger:  logx.NewLogger("layouts"),
	}
}

// DeriveByPosition applies only the positional rules: first slide gets the
// title layout, last the closing layout, section dividers the divider
// layout, everything else the fallback. Used when a slide reaches the
// transformer without an assigned layout.
func DeriveByPosition(slide *deck.Slide, position Position) string {
	switch {
	case position == PositionFirst:
		return LayoutTitle
	case position == PositionLast:
		return LayoutClosing
	case slide.SlideType == deck.SlideTypeSectionDivider:
		return LayoutDivider
	default:
		return LayoutFallback
	}
}

// SelectLayout chooses a layout for the slide. Positional overrides are
// checked in strict priority order before any model call; the semantic step
// is a one-shot decision whose failure degrades to the fallback layout.
func (s *Selector) SelectLayout(ctx context.Context, slide *deck.Slide, position Position, totalSlides int) Selection {
	switch {
	case position == PositionFirst:
		return Selection{LayoutID: LayoutTitle, Reasoning: "first slide always uses the title layout", Confidence: 1.0}
	case position == PositionLast:
		return Selection{LayoutID: LayoutClosing, Reasoning: "last slide always uses the closing layout", Confidence: 1.0}
	case slide.SlideType == deck.SlideTypeSectionDivider:
		return Selection{LayoutID: LayoutDivider, Reasoning: "section dividers always use the divider layout", Confidence: 1.0}
	}

	if s.client == nil {
		return s.keywordFallback(slide)
	}

	result, err := llm.GenerateObject[selectionResult](ctx, s.client, llm.GenerateRequest{
		System:      selectionSystemPrompt,
		Prompt:      s.buildSelectionPrompt(slide, totalSlides),
		Schema:      selectionSchema(),
		MaxTokens:   500,
		Temperature: llm.TemperatureSelect,
	})
	if err != nil {
		s.logger.Warn("layout selection failed for slide %d, falling back to %s: %v", slide.SlideNumber, LayoutFallback, err)
		return Selection{
			LayoutID:   LayoutFallback,
			Reasoning:  fmt.Sprintf("selection failed (%v), using bullet-list fallback", err),
			Confidence: FallbackConfidence,
		}
	}

	if !s.catalog.Has(result.LayoutID) || isFixedLayout(result.LayoutID) {
		s.logger.Warn("selection model chose unusable layout %q for slide %d, falling back to %s", result.LayoutID, slide.SlideNumber, LayoutFallback)
		return Selection{
			LayoutID:   LayoutFallback,
			Reasoning:  fmt.Sprintf("model chose unusable layout %q, using bullet-list fallback", result.LayoutID),
			Confidence: FallbackConfidence,
		}
	}

	confidence := result.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = FallbackConfidence
	}

	s.logger.Debug("slide %d -> %s (confidence %.2f)", slide.SlideNumber, result.LayoutID, confidence)
	return Selection{LayoutID: result.LayoutID, Reasoning: result.Reasoning, Confidence: confidence}
}

// keywordFallback matches the slide's structural hints against the catalog
// keyword lists when no selection model is configured. The first matching
// selectable layout wins; slides with no matching hints get the bullet-list
// fallback.
func (s *Selector) keywordFallback(slide *deck.Slide) Selection {
	for _, id := range s.catalog.KeywordSearch(slideKeywordTerms(slide)) {
		if isFixedLayout(id) {
			continue
		}
		return Selection{
			LayoutID:   id,
			Reasoning:  "matched catalog keywords from the slide's structural hints",
			Confidence: FallbackConfidence,
		}
	}
	return Selection{
		LayoutID:   LayoutFallback,
		Reasoning:  "no selection model configured and no keyword match, using bullet-list fallback",
		Confidence: FallbackConfidence,
	}
}

func slideKeywordTerms(slide *deck.Slide) []string {
	var terms []string
	for _, field := range []string{
		slide.AnalyticsNeeded,
		slide.VisualsNeeded,
		slide.DiagramsNeeded,
		slide.TablesNeeded,
		slide.StructurePreference,
		slide.Title,
	} {
		for _, word := range strings.Fields(field) {
			terms = append(terms, strings.Trim(word, ".,;:!?()\"'"))
		}
	}
	return terms
}

func isFixedLayout(layoutID string) bool {
	return layoutID == LayoutTitle || layoutID == LayoutDivider || layoutID == LayoutClosing
}

type selectionResult struct {
	LayoutID   string  `json:"layout_id"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

const selectionSystemPrompt = `You select the best presentation layout for a slide.
Pick exactly one layout_id from the catalog below the slide description.

Tie-break rules take precedence over generic similarity:
- testimonial or quote content -> L07
- comparison, pros/cons, before/after -> L20
- KPIs, metrics, dashboard -> L19
- a chart plus insights about it -> L17
- sequential or numbered steps -> L06
- simple discrete bullets -> L05
- long-form narrative text -> L04

Return layout_id, a one-sentence reasoning, and a confidence in (0, 1].`

func (s *Selector) buildSelectionPrompt(slide *deck.Slide, totalSlides int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Slide %d of %d\n", slide.SlideNumber, totalSlides)
	fmt.Fprintf(&b, "Title: %s\n", slide.Title)
	fmt.Fprintf(&b, "Type: %s\n", slide.SlideType)
	fmt.Fprintf(&b, "Narrative: %s\n", slide.Narrative)

	keyPoints := slide.KeyPoints
	if len(keyPoints) > 5 {
		keyPoints = keyPoints[:5]
	}
	if len(keyPoints) > 0 {
		b.WriteString("Key points:\n")
		for _, kp := range keyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
	}

	hints := []struct{ label, value string }{
		{"Analytics needed", slide.AnalyticsNeeded},
		{"Visuals needed", slide.VisualsNeeded},
		{"Diagrams needed", slide.DiagramsNeeded},
		{"Tables needed", slide.TablesNeeded},
		{"Structure", slide.StructurePreference},
	}
	for _, h := range hints {
		if h.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", h.label, h.value)
		}
	}

	b.WriteString("\nAvailable layouts:\n")
	b.WriteString(s.catalog.FormatForPrompt([]string{LayoutTitle, LayoutDivider, LayoutClosing}))

	return b.String()
}

func selectionSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"layout_id":  {Type: "string", Description: "ID of the chosen layout, e.g. L05"},
			"reasoning":  {Type: "string", Description: "One sentence justifying the choice"},
			"confidence": {Type: "number", Description: "Confidence in (0, 1]"},
		},
		Required: []string{"layout_id", "reasoning", "confidence"},
	}
}
