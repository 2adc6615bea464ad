package transform

import (
	"fmt"
	"strings"

	"deckster/pkg/deck"
	"deckster/pkg/layouts"
	"deckster/pkg/logx"
)

// SlidePayload is one render-ready slide: a layout ID and the content
// mapping that layout's schema requires.
type SlidePayload struct {
	Layout  string         `json:"layout"`
	Content map[string]any `json:"content"`
}

// PresentationPayload is the full render request body.
type PresentationPayload struct {
	Title  string         `json:"title"`
	Slides []SlidePayload `json:"slides"`
}

// Transformer maps generic slides onto layout-specific field sets.
type Transformer struct {
	catalog *layouts.Catalog
	logger  *logx.Logger
}

// NewTransformer creates a transformer bound to a loaded layout catalog.
func NewTransformer(catalog *layouts.Catalog) *Transformer {
	return &Transformer{
		catalog: catalog,
		logger:  logx.NewLogger("transform"),
	}
}

// TransformPresentation converts a strawman (optionally enriched) into a
// render payload. Slides missing a layout assignment get a position-derived
// one; enrichment results are matched to slides by list order.
func (t *Transformer) TransformPresentation(strawman *deck.PresentationStrawman, enriched *deck.EnrichedPresentationStrawman) PresentationPayload {
	payload := PresentationPayload{
		Title:  strawman.MainTitle,
		Slides: make([]SlidePayload, 0, len(strawman.Slides)),
	}

	total := len(strawman.Slides)
	for i := range strawman.Slides {
		slide := &strawman.Slides[i]

		layoutID := slide.LayoutID
		if layoutID == "" {
			layoutID = layouts.DeriveByPosition(slide, layouts.PositionOf(i+1, total))
			t.logger.Warn("slide %d has no layout assignment, derived %s from position", slide.SlideNumber, layoutID)
		}

		var enrichedSlide *deck.EnrichedSlide
		if enriched != nil && i < len(enriched.Slides) {
			enrichedSlide = &enriched.Slides[i]
		}

		payload.Slides = append(payload.Slides, t.TransformSlide(slide, layoutID, strawman, enrichedSlide))
	}

	return payload
}

// TransformSlide converts one slide into its layout's field set.
//
// Content resolution per field follows the ownership rule: structured
// generated content matching the schema passes through unmodified; legacy
// string content is parsed best-effort into the layout's primary field;
// absent any enrichment, placeholders are built from the slide's own fields.
func (t *Transformer) TransformSlide(slide *deck.Slide, layoutID string, strawman *deck.PresentationStrawman, enrichedSlide *deck.EnrichedSlide) SlidePayload {
	schema, err := t.catalog.SchemaFor(layoutID)
	if err != nil {
		t.logger.Warn("slide %d references %v, substituting %s", slide.SlideNumber, err, layouts.LayoutFallback)
		layoutID = layouts.LayoutFallback
		schema, _ = t.catalog.SchemaFor(layoutID)
	}

	legacy := ""
	var structured map[string]any
	if enrichedSlide != nil && enrichedSlide.GeneratedText != nil && !enrichedSlide.HasTextFailure {
		if m, ok := enrichedSlide.GeneratedText.StructuredContent(); ok {
			structured = m
		} else if s, ok := enrichedSlide.GeneratedText.LegacyText(); ok {
			legacy = s
		}
	}

	content := t.mapperFor(layoutID)(slide, strawman, schema, legacy)

	// Pass-through: the text service owns formatting of structured fields,
	// so values are copied without truncation or re-parsing.
	for field, value := range structured {
		if _, inSchema := schema.ContentSchema[field]; inSchema {
			content[field] = value
		}
	}

	return SlidePayload{Layout: layoutID, Content: content}
}

// mapper builds the placeholder/legacy content for one layout.
type mapper func(slide *deck.Slide, strawman *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any

func (t *Transformer) mapperFor(layoutID string) mapper {
	switch layoutID {
	case layouts.LayoutTitle:
		return t.mapTitleSlide
	case layouts.LayoutDivider:
		return t.mapSectionDivider
	case layouts.LayoutClosing:
		return t.mapClosingSlide
	case "L04":
		return t.mapTextSummary
	case "L05":
		return t.mapBulletList
	case "L06":
		return t.mapNumberedSteps
	case "L10":
		return t.mapImageWithText
	case "L17":
		return t.mapChartWithInsights
	default:
		return t.mapGeneric
	}
}

func fieldBudget(schema *layouts.LayoutSchema, field string, fallback int) int {
	if fs, ok := schema.ContentSchema[field]; ok && fs.MaxChars > 0 {
		return fs.MaxChars
	}
	return fallback
}

func listBudget(schema *layouts.LayoutSchema, field string) (maxItems, maxCharsPerItem int) {
	fs, ok := schema.ContentSchema[field]
	if !ok {
		return 5, 120
	}
	maxItems, maxCharsPerItem = fs.MaxItems, fs.MaxCharsPerItem
	if maxItems <= 0 {
		maxItems = 5
	}
	return maxItems, maxCharsPerItem
}

func (t *Transformer) mapTitleSlide(slide *deck.Slide, strawman *deck.PresentationStrawman, schema *layouts.LayoutSchema, _ string) map[string]any {
	title := strawman.MainTitle
	if title == "" {
		title = slide.Title
	}
	content := map[string]any{
		"title": Truncate(title, fieldBudget(schema, "title", 80), false),
	}
	if subtitle := firstNonEmpty(slide.Narrative, strawman.OverallTheme); subtitle != "" {
		content["subtitle"] = Truncate(subtitle, fieldBudget(schema, "subtitle", 120), false)
	}
	return content
}

func (t *Transformer) mapSectionDivider(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, _ string) map[string]any {
	return map[string]any{
		"section_title":  Truncate(slide.Title, fieldBudget(schema, "section_title", 60), false),
		"section_number": fmt.Sprintf("%02d", slide.SlideNumber),
	}
}

func (t *Transformer) mapClosingSlide(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, _ string) map[string]any {
	content := map[string]any{
		"title": Truncate(slide.Title, fieldBudget(schema, "title", 80), false),
	}
	if slide.Narrative != "" {
		content["subtitle"] = Truncate(slide.Narrative, fieldBudget(schema, "subtitle", 150), false)
	}
	return content
}

func (t *Transformer) mapTextSummary(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any {
	budget := fieldBudget(schema, "text_content", 800)

	text := legacy
	if text == "" {
		text = slide.Narrative
		if len(slide.KeyPoints) > 0 {
			text += "\n\n" + strings.Join(slide.KeyPoints, " ")
		}
	}

	return map[string]any{
		"slide_title":  Truncate(slide.Title, fieldBudget(schema, "slide_title", 80), false),
		"text_content": Truncate(text, budget, false),
	}
}

func (t *Transformer) mapBulletList(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any {
	maxItems, perItem := listBudget(schema, "bullets")

	bullets := t.legacyOrKeyPoints(slide, legacy, maxItems, perItem)

	return map[string]any{
		"slide_title": Truncate(slide.Title, fieldBudget(schema, "slide_title", 80), false),
		"bullets":     bullets,
	}
}

func (t *Transformer) mapNumberedSteps(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any {
	maxItems, _ := listBudget(schema, "items")

	var parsed []numberedItem
	if legacy != "" {
		parsed = parseNumberedItems(legacy, maxItems)
	}
	if len(parsed) < minUsableLegacyRows {
		// Legacy parse unusable: build steps from the slide's own key points.
		parsed = parsed[:0]
		for i, kp := range slide.KeyPoints {
			if i >= maxItems {
				break
			}
			title, desc := splitNumberedLine(kp, i+1)
			parsed = append(parsed, numberedItem{
				Title:       Truncate(title, numberedTitleChars, false),
				Description: Truncate(desc, numberedDescChars, false),
			})
		}
	}

	items := make([]any, 0, len(parsed))
	for _, item := range parsed {
		items = append(items, map[string]any{
			"title":       item.Title,
			"description": item.Description,
		})
	}

	return map[string]any{
		"slide_title": Truncate(slide.Title, fieldBudget(schema, "slide_title", 80), false),
		"items":       items,
	}
}

func (t *Transformer) mapImageWithText(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any {
	text := legacy
	if text == "" {
		text = slide.Narrative
	}

	return map[string]any{
		"slide_title":  Truncate(slide.Title, fieldBudget(schema, "slide_title", 80), false),
		"image":        placeholderFor("image", slide),
		"text_content": Truncate(text, fieldBudget(schema, "text_content", 400), false),
	}
}

func (t *Transformer) mapChartWithInsights(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any {
	maxItems, perItem := listBudget(schema, "key_insights")

	insights := t.legacyOrKeyPoints(slide, legacy, maxItems, perItem)

	return map[string]any{
		"slide_title":  Truncate(slide.Title, fieldBudget(schema, "slide_title", 80), false),
		"chart_url":    placeholderFor("chart_url", slide),
		"key_insights": insights,
	}
}

// mapGeneric fills whatever of slide_title, subtitle, and bullets the target
// schema defines, plus placeholders for any required asset fields.
func (t *Transformer) mapGeneric(slide *deck.Slide, _ *deck.PresentationStrawman, schema *layouts.LayoutSchema, legacy string) map[string]any {
	content := make(map[string]any)

	if _, ok := schema.ContentSchema["slide_title"]; ok {
		content["slide_title"] = Truncate(slide.Title, fieldBudget(schema, "slide_title", 80), false)
	}
	if _, ok := schema.ContentSchema["subtitle"]; ok && slide.Narrative != "" {
		content["subtitle"] = Truncate(slide.Narrative, fieldBudget(schema, "subtitle", 120), false)
	}
	if _, ok := schema.ContentSchema["bullets"]; ok {
		maxItems, perItem := listBudget(schema, "bullets")
		content["bullets"] = t.legacyOrKeyPoints(slide, legacy, maxItems, perItem)
	}

	// Required asset fields still need placeholders so validation passes.
	for _, fieldName := range schema.FieldNames() {
		fs := schema.ContentSchema[fieldName]
		if fs.Required && isAssetField(fieldName) {
			content[fieldName] = placeholderFor(fieldName, slide)
		}
	}

	return content
}

// legacyOrKeyPoints parses legacy text into list items, falling back to the
// slide's raw key points when the parse yields fewer than two usable items.
func (t *Transformer) legacyOrKeyPoints(slide *deck.Slide, legacy string, maxItems, perItem int) []string {
	if legacy != "" {
		if parsed := parseBulletLines(legacy, maxItems, perItem); len(parsed) >= minUsableLegacyRows {
			return parsed
		}
		t.logger.Debug("legacy parse for slide %d yielded too few items, using key points", slide.SlideNumber)
	}

	items := make([]string, 0, maxItems)
	for i, kp := range slide.KeyPoints {
		if i >= maxItems {
			break
		}
		if perItem > 0 {
			kp = Truncate(kp, perItem, false)
		}
		items = append(items, kp)
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
