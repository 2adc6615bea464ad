package director

import (
	"context"
	"fmt"
	"strings"

	"deckster/pkg/deck"
	"deckster/pkg/layouts"
	"deckster/pkg/llm"
	"deckster/pkg/session"
)

// Slide-count bounds for confirmation plans.
const (
	minSlideCount = 2
	maxSlideCount = 30
)

// Question-count bounds for the clarifying stage.
const (
	minQuestions = 3
	maxQuestions = 5
)

// stageErr wraps a fatal generation failure with stage context. Model errors
// keep their classified type so the caller can distinguish quota problems
// from bad prompts.
func (d *Director) stageErr(sess *session.Session, err error) error {
	return fmt.Errorf("stage %s generation failed for session %s: %w", sess.CurrentStage, sess.ID, err)
}

const greetingSystem = `You are Deckster, an assistant that builds slide presentations.
Greet the user warmly in two or three sentences and ask what their
presentation should be about. Plain text only, no markdown headings.`

func (d *Director) runGreeting(ctx context.Context, sess *session.Session) (*Response, error) {
	resp, err := d.clients.Greeting.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(greetingSystem),
			llm.NewUserMessage(historyPrompt(sess)),
		},
		MaxTokens:   500,
		Temperature: llm.TemperatureGreeting,
	})
	if err != nil {
		return nil, d.stageErr(sess, err)
	}
	return &Response{Message: strings.TrimSpace(resp.Content)}, nil
}

const questionsSystem = `You gather requirements for a slide presentation.
Given the user's topic, ask between three and five clarifying questions that
pin down audience, purpose, duration, scope, and desired emphasis. Questions
must be specific to the topic, not generic.`

func (d *Director) runQuestions(ctx context.Context, sess *session.Session) (*Response, error) {
	questions, err := llm.GenerateObject[deck.ClarifyingQuestions](ctx, d.clients.Questions, llm.GenerateRequest{
		System:      questionsSystem,
		Prompt:      fmt.Sprintf("Topic: %s\n\n%s", sess.UserInitialRequest, historyPrompt(sess)),
		Schema:      questionsSchema(),
		MaxTokens:   1000,
		Temperature: llm.TemperatureQuestions,
	})
	if err != nil {
		return nil, d.stageErr(sess, err)
	}

	if len(questions.Questions) == 0 {
		return nil, d.stageErr(sess, fmt.Errorf("model produced no clarifying questions"))
	}
	if len(questions.Questions) > maxQuestions {
		questions.Questions = questions.Questions[:maxQuestions]
	}
	if len(questions.Questions) < minQuestions {
		d.logger.Warn("session %s: only %d clarifying questions generated", sess.ID, len(questions.Questions))
	}

	sess.Questions = &questions

	var b strings.Builder
	b.WriteString("A few questions before I draft your presentation:\n")
	for i, q := range questions.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return &Response{Message: b.String(), Questions: sess.Questions}, nil
}

const planSystem = `You summarize a presentation request into a plan for user
confirmation. Produce a one-paragraph summary of the request, the key
assumptions you are making, and a proposed slide count between 2 and 30.`

func (d *Director) runPlan(ctx context.Context, sess *session.Session) (*Response, error) {
	plan, err := llm.GenerateObject[deck.ConfirmationPlan](ctx, d.clients.Plan, llm.GenerateRequest{
		System:      planSystem,
		Prompt:      d.buildPlanPrompt(sess),
		Schema:      planSchema(),
		MaxTokens:   2000,
		Temperature: llm.TemperaturePlan,
	})
	if err != nil {
		return nil, d.stageErr(sess, err)
	}

	if plan.ProposedSlideCount < minSlideCount {
		d.logger.Warn("session %s: plan proposed %d slides, clamping to %d", sess.ID, plan.ProposedSlideCount, minSlideCount)
		plan.ProposedSlideCount = minSlideCount
	}
	if plan.ProposedSlideCount > maxSlideCount {
		d.logger.Warn("session %s: plan proposed %d slides, clamping to %d", sess.ID, plan.ProposedSlideCount, maxSlideCount)
		plan.ProposedSlideCount = maxSlideCount
	}

	sess.Plan = &plan

	var b strings.Builder
	fmt.Fprintf(&b, "Here's my plan:\n\n%s\n\nAssumptions:\n", plan.SummaryOfUserRequest)
	for _, a := range plan.KeyAssumptions {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	fmt.Fprintf(&b, "\nProposed slide count: %d\n\nShall I go ahead and draft the outline?", plan.ProposedSlideCount)
	return &Response{Message: b.String(), Plan: sess.Plan}, nil
}

func (d *Director) buildPlanPrompt(sess *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", sess.UserInitialRequest)
	if sess.Questions != nil && len(sess.Questions.Questions) > 0 {
		b.WriteString("Questions asked:\n")
		for _, q := range sess.Questions.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	if sess.ClarifyingAnswers != "" {
		fmt.Fprintf(&b, "User's answers: %s\n", sess.ClarifyingAnswers)
	}
	return b.String()
}

const strawmanSystem = `You draft a complete slide presentation outline.
Produce a main title, overall theme, target audience, duration in minutes,
optional design suggestions, and the full ordered slide list. Every slide
needs slide_number (contiguous from 1), slide_id ("slide_001" style), a
slide_type, a title, a one-paragraph narrative, and key points. Use the
optional needs fields (analytics_needed, visuals_needed, diagrams_needed,
tables_needed) only where the slide genuinely calls for that asset.`

// strawmanPromptTokenBudget is the point past which refinement context has
// grown enough to risk model truncation; crossing it is logged, not fatal.
const strawmanPromptTokenBudget = 16000

// runStrawman handles both first generation and refinement; feedback is
// empty on first generation and carries the user's change request otherwise.
func (d *Director) runStrawman(ctx context.Context, sess *session.Session, feedback string) (*Response, error) {
	client := d.clients.Strawman
	if feedback != "" {
		client = d.clients.Refine
	}

	prompt := d.buildStrawmanPrompt(sess, feedback)
	if d.tokenCounter != nil && !d.tokenCounter.WithinLimit(prompt, strawmanPromptTokenBudget) {
		d.logger.Warn("session %s: strawman prompt exceeds %d tokens, output may truncate", sess.ID, strawmanPromptTokenBudget)
	}

	strawman, err := llm.GenerateObject[deck.PresentationStrawman](ctx, client, llm.GenerateRequest{
		System:      strawmanSystem,
		Prompt:      prompt,
		Schema:      strawmanSchema(),
		MaxTokens:   8000,
		Temperature: llm.TemperatureStrawman,
	})
	if err != nil {
		return nil, d.stageErr(sess, err)
	}
	if len(strawman.Slides) == 0 {
		return nil, d.stageErr(sess, fmt.Errorf("model produced a strawman with no slides"))
	}

	// Models occasionally misnumber; restore the contiguous-from-1 invariant
	// rather than failing the whole turn.
	if err := strawman.Validate(); err != nil {
		d.logger.Warn("session %s: %v, renumbering slides", sess.ID, err)
		for i := range strawman.Slides {
			strawman.Slides[i].SlideNumber = i + 1
			if strawman.Slides[i].SlideID == "" {
				strawman.Slides[i].SlideID = fmt.Sprintf("slide_%03d", i+1)
			}
		}
	}

	d.assignLayouts(ctx, &strawman)
	sess.Strawman = &strawman

	resp := &Response{Strawman: sess.Strawman}

	action := "drafted"
	if feedback != "" {
		action = "revised"
	}
	message := fmt.Sprintf("I've %s %q: %d slides for %s.", action, strawman.MainTitle, len(strawman.Slides), strawman.TargetAudience)

	if url, id, ok := d.render(ctx, sess, &strawman, nil); ok {
		sess.PresentationID = id
		sess.LastPresentationURL = url
		resp.PresentationURL = url
		resp.PresentationID = id
		message += fmt.Sprintf("\nPreview: %s", url)
	} else {
		message += "\nA rendered preview isn't available right now; the outline is below."
	}
	message += "\nAccept the outline to generate the final content, or tell me what to change."

	resp.Message = message
	return resp, nil
}

func (d *Director) buildStrawmanPrompt(sess *session.Session, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", sess.UserInitialRequest)
	if sess.ClarifyingAnswers != "" {
		fmt.Fprintf(&b, "Clarifications: %s\n", sess.ClarifyingAnswers)
	}
	if sess.Plan != nil {
		fmt.Fprintf(&b, "Agreed plan: %s\n", sess.Plan.SummaryOfUserRequest)
		for _, a := range sess.Plan.KeyAssumptions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		fmt.Fprintf(&b, "Target slide count: %d\n", sess.Plan.ProposedSlideCount)
	}
	if feedback != "" && sess.Strawman != nil {
		fmt.Fprintf(&b, "\nCurrent outline title: %s (%d slides)\n", sess.Strawman.MainTitle, len(sess.Strawman.Slides))
		b.WriteString("Current slides:\n")
		for _, s := range sess.Strawman.Slides {
			fmt.Fprintf(&b, "%d. %s: %s\n", s.SlideNumber, s.Title, s.Narrative)
		}
		fmt.Fprintf(&b, "\nRequested changes: %s\nProduce the full revised outline, not a diff.\n", feedback)
	}
	return b.String()
}

// assignLayouts runs layout selection for every slide. Selection never
// fails a slide; the selector degrades to the fallback layout on its own.
func (d *Director) assignLayouts(ctx context.Context, strawman *deck.PresentationStrawman) {
	total := len(strawman.Slides)
	for i := range strawman.Slides {
		slide := &strawman.Slides[i]
		sel := d.selector.SelectLayout(ctx, slide, layouts.PositionOf(i+1, total), total)
		slide.LayoutID = sel.LayoutID
		slide.LayoutReasoning = sel.Reasoning
	}
}

// render transforms and submits a payload, returning ok=false on any
// failure so callers can fall back to the structured artifact.
func (d *Director) render(ctx context.Context, sess *session.Session, strawman *deck.PresentationStrawman, enriched *deck.EnrichedPresentationStrawman) (url, id string, ok bool) {
	if d.renderer == nil || d.transformer == nil {
		return "", "", false
	}

	payload := d.transformer.TransformPresentation(strawman, enriched)
	result, err := d.renderer.CreatePresentation(ctx, &payload)
	if err != nil {
		d.logger.Warn("session %s: rendering failed, returning raw artifact: %v", sess.ID, err)
		return "", "", false
	}
	return d.renderer.GetFullURL(result.URL), result.ID, true
}

func historyPrompt(sess *session.Session) string {
	history := sess.History
	if len(history) > 6 {
		history = history[len(history)-6:]
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}

func questionsSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"questions": {
				Type:  "array",
				Items: &llm.Schema{Type: "string"},
			},
		},
		Required: []string{"questions"},
	}
}

func planSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"summary_of_user_request": {Type: "string"},
			"key_assumptions": {
				Type:  "array",
				Items: &llm.Schema{Type: "string"},
			},
			"proposed_slide_count": {Type: "integer", Description: "Between 2 and 30"},
		},
		Required: []string{"summary_of_user_request", "key_assumptions", "proposed_slide_count"},
	}
}

func strawmanSchema() *llm.Schema {
	slideSchema := &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"slide_number": {Type: "integer"},
			"slide_id":     {Type: "string", Description: "Stable id, e.g. slide_001"},
			"slide_type": {Type: "string", Enum: []string{
				string(deck.SlideTypeTitle), string(deck.SlideTypeSectionDivider),
				string(deck.SlideTypeContentHeavy), string(deck.SlideTypeVisualHeavy),
				string(deck.SlideTypeDataDriven), string(deck.SlideTypeDiagramFocused),
				string(deck.SlideTypeMixedContent), string(deck.SlideTypeConclusion),
			}},
			"title":     {Type: "string"},
			"narrative": {Type: "string", Description: "One-paragraph story of the slide"},
			"key_points": {
				Type:  "array",
				Items: &llm.Schema{Type: "string"},
			},
			"analytics_needed":     {Type: "string"},
			"visuals_needed":       {Type: "string"},
			"diagrams_needed":      {Type: "string"},
			"tables_needed":        {Type: "string"},
			"structure_preference": {Type: "string"},
			"speaker_notes":        {Type: "string"},
		},
		Required: []string{"slide_number", "slide_id", "slide_type", "title", "narrative", "key_points"},
	}

	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"main_title":            {Type: "string"},
			"overall_theme":         {Type: "string"},
			"design_suggestions":    {Type: "string"},
			"target_audience":       {Type: "string"},
			"presentation_duration": {Type: "integer", Description: "Minutes"},
			"slides": {
				Type:  "array",
				Items: slideSchema,
			},
		},
		Required: []string{"main_title", "overall_theme", "target_audience", "presentation_duration", "slides"},
	}
}
