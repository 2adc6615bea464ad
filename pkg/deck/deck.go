// Package deck defines the presentation outline domain model: slides,
// strawmen, and their enriched counterparts produced by content generation.
package deck

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion tags persisted deck artifacts so checkpoints written by an
// older build can be detected instead of silently misparsed.
const SchemaVersion = 1

// SlideType categorizes the intended visual treatment of a slide.
type SlideType string

const (
	SlideTypeTitle          SlideType = "title_slide"
	SlideTypeSectionDivider SlideType = "section_divider"
	SlideTypeContentHeavy   SlideType = "content_heavy"
	SlideTypeVisualHeavy    SlideType = "visual_heavy"
	SlideTypeDataDriven     SlideType = "data_driven"
	SlideTypeDiagramFocused SlideType = "diagram_focused"
	SlideTypeMixedContent   SlideType = "mixed_content"
	SlideTypeConclusion     SlideType = "conclusion_slide"
)

// Slide is a generic, layout-agnostic description of one presentation slide.
// LayoutID is empty until layout selection has run; once set it is not
// changed for the remainder of the pipeline.
type Slide struct {
	SlideNumber         int       `json:"slide_number"`
	SlideID             string    `json:"slide_id"`
	SlideType           SlideType `json:"slide_type"`
	Title               string    `json:"title"`
	Narrative           string    `json:"narrative"`
	KeyPoints           []string  `json:"key_points"`
	AnalyticsNeeded     string    `json:"analytics_needed,omitempty"`
	VisualsNeeded       string    `json:"visuals_needed,omitempty"`
	DiagramsNeeded      string    `json:"diagrams_needed,omitempty"`
	TablesNeeded        string    `json:"tables_needed,omitempty"`
	StructurePreference string    `json:"structure_preference,omitempty"`
	SpeakerNotes        string    `json:"speaker_notes,omitempty"`
	LayoutID            string    `json:"layout_id,omitempty"`
	LayoutReasoning     string    `json:"layout_reasoning,omitempty"`
}

// PresentationStrawman is the full draft outline of a presentation.
type PresentationStrawman struct {
	MainTitle            string  `json:"main_title"`
	OverallTheme         string  `json:"overall_theme"`
	DesignSuggestions    string  `json:"design_suggestions,omitempty"`
	TargetAudience       string  `json:"target_audience"`
	PresentationDuration int     `json:"presentation_duration"`
	Slides               []Slide `json:"slides"`
}

// Validate checks the slide numbering invariant: contiguous from 1,
// matching list order.
func (p *PresentationStrawman) Validate() error {
	for i := range p.Slides {
		if want := i + 1; p.Slides[i].SlideNumber != want {
			return fmt.Errorf("slide at index %d has slide_number %d, want %d", i, p.Slides[i].SlideNumber, want)
		}
	}
	return nil
}

// ClarifyingQuestions is the output of the question-asking stage.
type ClarifyingQuestions struct {
	Questions []string `json:"questions"`
}

// ConfirmationPlan summarizes the understood request before strawman generation.
type ConfirmationPlan struct {
	SummaryOfUserRequest string   `json:"summary_of_user_request"`
	KeyAssumptions       []string `json:"key_assumptions"`
	ProposedSlideCount   int      `json:"proposed_slide_count"`
}

// GeneratedContent is the text-generation result for one slide. Content is
// either a plain string (legacy mode) or a structured mapping whose keys
// match the slide's layout content schema.
type GeneratedContent struct {
	Content   json.RawMessage `json:"content"`
	WordCount int             `json:"word_count,omitempty"`
	ModelUsed string          `json:"model_used,omitempty"`
}

// StructuredContent decodes Content as a structured field mapping. The
// second return is false when Content is a plain string (legacy mode) or
// absent.
func (g *GeneratedContent) StructuredContent() (map[string]any, bool) {
	if len(g.Content) == 0 {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(g.Content, &m); err != nil {
		return nil, false
	}
	return m, true
}

// LegacyText decodes Content as a plain string. The second return is false
// when Content is structured or absent.
func (g *GeneratedContent) LegacyText() (string, bool) {
	if len(g.Content) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(g.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// EnrichedSlide pairs an original slide with its generated text content.
// HasTextFailure records a per-slide generation failure; failed slides keep
// their place in the batch.
type EnrichedSlide struct {
	Slide          Slide             `json:"slide"`
	GeneratedText  *GeneratedContent `json:"generated_text,omitempty"`
	HasTextFailure bool              `json:"has_text_failure"`
}

// EnrichedPresentationStrawman is the terminal artifact of content
// generation: the original strawman plus per-slide enrichment results and
// aggregate metadata.
type EnrichedPresentationStrawman struct {
	Strawman         PresentationStrawman `json:"strawman"`
	Slides           []EnrichedSlide      `json:"slides"`
	SuccessfulSlides int                  `json:"successful_slides"`
	FailedSlides     int                  `json:"failed_slides"`
	GenerationTimeMS int64                `json:"generation_time_ms"`
}
