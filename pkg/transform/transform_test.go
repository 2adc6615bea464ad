package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckster/pkg/deck"
	"deckster/pkg/layouts"
)

func newTransformer(t *testing.T) *Transformer {
	t.Helper()
	catalog, err := layouts.NewCatalog()
	require.NoError(t, err)
	return NewTransformer(catalog)
}

func sampleStrawman() *deck.PresentationStrawman {
	return &deck.PresentationStrawman{
		MainTitle:            "Scaling the Platform",
		OverallTheme:         "professional",
		TargetAudience:       "engineering leadership",
		PresentationDuration: 15,
		Slides: []deck.Slide{
			{SlideNumber: 1, SlideID: "slide_001", SlideType: deck.SlideTypeTitle, Title: "Scaling the Platform", Narrative: "Why we need to scale now.", LayoutID: "L01"},
			{SlideNumber: 2, SlideID: "slide_002", SlideType: deck.SlideTypeContentHeavy, Title: "Current State", Narrative: "Where the system stands today.", KeyPoints: []string{"Point 1", "Point 2", "Point 3", "Point 4"}, LayoutID: "L05"},
			{SlideNumber: 3, SlideID: "slide_003", SlideType: deck.SlideTypeConclusion, Title: "Next Steps", Narrative: "What we do on Monday.", LayoutID: "L03"},
		},
	}
}

func TestTransformSlideBulletFallbackFromKeyPoints(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]

	payload := tr.TransformSlide(slide, "L05", strawman, nil)

	assert.Equal(t, "L05", payload.Layout)
	assert.Equal(t, "Current State", payload.Content["slide_title"])
	assert.Equal(t, []string{"Point 1", "Point 2", "Point 3", "Point 4"}, payload.Content["bullets"])
}

func TestTransformSlideStructuredPassThrough(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]

	structured := map[string]any{
		"slide_title": "A Title The Service Wrote",
		"bullets":     []any{"Exactly as generated, even if it is much longer than any per-item budget would normally allow without truncation"},
		"not_in_schema": "dropped",
	}
	raw, err := json.Marshal(structured)
	require.NoError(t, err)

	enriched := &deck.EnrichedSlide{
		Slide:         *slide,
		GeneratedText: &deck.GeneratedContent{Content: raw},
	}

	payload := tr.TransformSlide(slide, "L05", strawman, enriched)

	assert.Equal(t, structured["slide_title"], payload.Content["slide_title"])
	assert.Equal(t, structured["bullets"], payload.Content["bullets"], "structured content must pass through unmodified")
	assert.NotContains(t, payload.Content, "not_in_schema")
}

func TestTransformSlideLegacyStringParsed(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]

	raw, err := json.Marshal("• First finding from the data\n• Second finding from the data\n• x")
	require.NoError(t, err)

	enriched := &deck.EnrichedSlide{
		Slide:         *slide,
		GeneratedText: &deck.GeneratedContent{Content: raw},
	}

	payload := tr.TransformSlide(slide, "L05", strawman, enriched)
	assert.Equal(t, []string{"First finding from the data", "Second finding from the data"}, payload.Content["bullets"])
}

func TestTransformSlideLegacyTooSparseFallsBackToKeyPoints(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]

	raw, err := json.Marshal("only one usable line of text here")
	require.NoError(t, err)

	enriched := &deck.EnrichedSlide{
		Slide:         *slide,
		GeneratedText: &deck.GeneratedContent{Content: raw},
	}

	payload := tr.TransformSlide(slide, "L05", strawman, enriched)
	assert.Equal(t, []string{"Point 1", "Point 2", "Point 3", "Point 4"}, payload.Content["bullets"])
}

func TestTransformSlideFailedEnrichmentUsesPlaceholders(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]

	enriched := &deck.EnrichedSlide{Slide: *slide, HasTextFailure: true}
	payload := tr.TransformSlide(slide, "L05", strawman, enriched)

	assert.Equal(t, []string{"Point 1", "Point 2", "Point 3", "Point 4"}, payload.Content["bullets"])
}

func TestTransformPresentationDerivesMissingLayouts(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	for i := range strawman.Slides {
		strawman.Slides[i].LayoutID = ""
	}

	payload := tr.TransformPresentation(strawman, nil)

	require.Len(t, payload.Slides, 3)
	assert.Equal(t, layouts.LayoutTitle, payload.Slides[0].Layout)
	assert.Equal(t, layouts.LayoutFallback, payload.Slides[1].Layout)
	assert.Equal(t, layouts.LayoutClosing, payload.Slides[2].Layout)
	assert.Equal(t, "Scaling the Platform", payload.Title)
}

func TestTransformSlideUnknownLayoutSubstitutesFallback(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]

	payload := tr.TransformSlide(slide, "L99", strawman, nil)
	assert.Equal(t, layouts.LayoutFallback, payload.Layout)
}

func TestTransformSlideChartPlaceholder(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]
	slide.AnalyticsNeeded = "**Goal:** show growth **Content:** quarterly revenue bar chart **Style:** clean"

	payload := tr.TransformSlide(slide, "L17", strawman, nil)

	assert.Equal(t, "PLACEHOLDER_CHART: quarterly revenue bar chart", payload.Content["chart_url"])
	assert.Equal(t, []string{"Point 1", "Point 2", "Point 3", "Point 4"}, payload.Content["key_insights"])
}

func TestTransformSlideNumberedStepsFromKeyPoints(t *testing.T) {
	tr := newTransformer(t)
	strawman := sampleStrawman()
	slide := &strawman.Slides[1]
	slide.KeyPoints = []string{"Audit: review the current deployment", "Migrate: move services in dependency order"}

	payload := tr.TransformSlide(slide, "L06", strawman, nil)

	items, ok := payload.Content["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Audit", first["title"])
	assert.Equal(t, "review the current deployment", first["description"])
}

func TestTransformPayloadValidatesAgainstCatalog(t *testing.T) {
	tr := newTransformer(t)
	catalog, err := layouts.NewCatalog()
	require.NoError(t, err)

	payload := tr.TransformPresentation(sampleStrawman(), nil)
	for _, slide := range payload.Slides {
		ok, errs := catalog.Validate(slide.Layout, slide.Content)
		assert.True(t, ok, "layout %s content invalid: %v", slide.Layout, errs)
	}
}
