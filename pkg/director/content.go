package director

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"deckster/pkg/deck"
	"deckster/pkg/session"
	"deckster/pkg/textsvc"
)

// defaultContentBudget bounds generated text when a slide's layout declares
// no character budgets of its own.
const defaultContentBudget = 600

// runContentGeneration enriches every slide with generated text, then
// renders the result. Per-slide failures never abort the batch; a rendering
// failure falls back to the placeholder payload with content_generated=false.
func (d *Director) runContentGeneration(ctx context.Context, sess *session.Session) (*Response, error) {
	if sess.Strawman == nil {
		return nil, fmt.Errorf("session %s: %w", sess.ID, ErrNoStrawman)
	}
	strawman := sess.Strawman
	start := time.Now()

	enrichedSlides := make([]deck.EnrichedSlide, len(strawman.Slides))

	g := new(errgroup.Group)
	g.SetLimit(d.maxConcurrent)
	for i := range strawman.Slides {
		g.Go(func() error {
			// Failures are recorded on the slide, never returned, so one
			// slide cannot cancel its siblings.
			enrichedSlides[i] = d.enrichSlide(ctx, sess, strawman, i)
			return nil
		})
	}
	_ = g.Wait()

	enriched := &deck.EnrichedPresentationStrawman{
		Strawman:         *strawman,
		Slides:           enrichedSlides,
		GenerationTimeMS: time.Since(start).Milliseconds(),
	}
	for i := range enrichedSlides {
		if enrichedSlides[i].HasTextFailure {
			enriched.FailedSlides++
		} else {
			enriched.SuccessfulSlides++
		}
	}
	sess.Enriched = enriched
	d.logger.Info("session %s: content generation finished, %d/%d slides succeeded in %dms",
		sess.ID, enriched.SuccessfulSlides, len(enrichedSlides), enriched.GenerationTimeMS)

	resp := &Response{
		Enriched:         enriched,
		SuccessfulSlides: enriched.SuccessfulSlides,
		FailedSlides:     enriched.FailedSlides,
	}

	url, id, ok := d.render(ctx, sess, strawman, enriched)
	if ok {
		resp.ContentGenerated = true
	} else {
		// Enriched render failed (or no renderer): try the placeholder
		// payload so the user still gets a deck.
		url, id, ok = d.render(ctx, sess, strawman, nil)
	}
	if ok {
		sess.PresentationID = id
		sess.LastPresentationURL = url
		resp.PresentationURL = url
		resp.PresentationID = id
	}

	message := fmt.Sprintf("Generated content for %d of %d slides.", enriched.SuccessfulSlides, len(enrichedSlides))
	if enriched.FailedSlides > 0 {
		message += fmt.Sprintf(" %d slides fell back to outline content.", enriched.FailedSlides)
	}
	switch {
	case resp.ContentGenerated:
		message += fmt.Sprintf("\nYour presentation is ready: %s", url)
	case ok:
		message += fmt.Sprintf("\nRendering with generated content failed; a placeholder version is at %s", url)
	default:
		message += "\nRendering is unavailable right now; the enriched outline is attached."
	}

	resp.Message = message
	return resp, nil
}

// enrichSlide generates text for one slide. Any failure marks the slide and
// keeps its place in the batch.
func (d *Director) enrichSlide(ctx context.Context, sess *session.Session, strawman *deck.PresentationStrawman, idx int) deck.EnrichedSlide {
	slide := strawman.Slides[idx]

	if d.textSvc == nil {
		return deck.EnrichedSlide{Slide: slide, HasTextFailure: true}
	}

	previous := make([]string, 0, idx)
	for _, prior := range strawman.Slides[:idx] {
		previous = append(previous, prior.Title)
	}

	result, err := d.textSvc.Generate(ctx, &textsvc.Request{
		PresentationID: sess.PresentationID,
		SlideID:        slide.SlideID,
		SlideNumber:    slide.SlideNumber,
		Topics:         slide.KeyPoints,
		Narrative:      slide.Narrative,
		Context: textsvc.ReqContext{
			PresentationContext: fmt.Sprintf("%s. Theme: %s. Audience: %s.",
				strawman.MainTitle, strawman.OverallTheme, strawman.TargetAudience),
			SlideContext:   slide.Title,
			PreviousSlides: previous,
		},
		Constraints: textsvc.Constraints{
			MaxCharacters: d.contentBudget(slide.LayoutID),
			Tone:          strawman.OverallTheme,
			Format:        "structured",
		},
	})
	if err != nil {
		d.logger.Warn("session %s: text generation failed for slide %s: %v", sess.ID, slide.SlideID, err)
		return deck.EnrichedSlide{Slide: slide, HasTextFailure: true}
	}

	return deck.EnrichedSlide{
		Slide: slide,
		GeneratedText: &deck.GeneratedContent{
			Content:   result.Content,
			WordCount: result.Metadata.WordCount,
			ModelUsed: result.Metadata.ModelUsed,
		},
	}
}

// contentBudget sums the text capacity of a layout's content schema so the
// text service knows roughly how much to write.
func (d *Director) contentBudget(layoutID string) int {
	if d.catalog == nil {
		return defaultContentBudget
	}
	schema, err := d.catalog.SchemaFor(layoutID)
	if err != nil {
		return defaultContentBudget
	}

	total := 0
	for _, name := range schema.FieldNames() {
		fs := schema.ContentSchema[name]
		switch {
		case fs.MaxChars > 0:
			total += fs.MaxChars
		case fs.MaxItems > 0 && fs.MaxCharsPerItem > 0:
			total += fs.MaxItems * fs.MaxCharsPerItem
		}
	}
	if total == 0 {
		return defaultContentBudget
	}
	return total
}
