// Package intent classifies one user turn into a directional intent that
// drives stage routing.
package intent

import (
	"context"
	"fmt"
	"strings"

	"deckster/pkg/llm"
	"deckster/pkg/logx"
	"deckster/pkg/workflow"
)

// Type is the classification of one user turn.
type Type string

const (
	SubmitInitialTopic         Type = "Submit_Initial_Topic"
	SubmitClarificationAnswers Type = "Submit_Clarification_Answers"
	AcceptPlan                 Type = "Accept_Plan"
	RejectPlan                 Type = "Reject_Plan"
	AcceptStrawman             Type = "Accept_Strawman"
	SubmitRefinementRequest    Type = "Submit_Refinement_Request"
	ChangeTopic                Type = "Change_Topic"
	ChangeParameter            Type = "Change_Parameter"
	AskHelpOrQuestion          Type = "Ask_Help_Or_Question"
)

// IsValid reports whether t is one of the nine known intent types.
func (t Type) IsValid() bool {
	switch t {
	case SubmitInitialTopic, SubmitClarificationAnswers, AcceptPlan, RejectPlan,
		AcceptStrawman, SubmitRefinementRequest, ChangeTopic, ChangeParameter,
		AskHelpOrQuestion:
		return true
	default:
		return false
	}
}

// defaultConfidence is reported when classification degrades to the safe default.
const defaultConfidence = 0.5

// Intent is the classification result for one user turn. ExtractedInfo is a
// single optional free-text payload, e.g. the new topic on Change_Topic.
type Intent struct {
	Type          Type
	Confidence    float64
	ExtractedInfo string
}

// SafeDefault is the intent returned when classification fails for any
// reason. It never errors; a conservative help intent keeps the
// conversation recoverable.
func SafeDefault() Intent {
	return Intent{Type: AskHelpOrQuestion, Confidence: defaultConfidence}
}

// Turn is one prior message in the conversation, for classification context.
type Turn struct {
	Role    string
	Content string
}

// Context carries the state the classifier needs about the conversation.
type Context struct {
	CurrentStage workflow.Stage
	History      []Turn
}

// historyWindow bounds how many prior turns are embedded in the prompt.
const historyWindow = 6

// Classifier maps user messages to intents via a structured model call.
type Classifier struct {
	client llm.LLMClient
	logger *logx.Logger
}

// NewClassifier creates an intent classifier backed by the given client.
func NewClassifier(client llm.LLMClient) *Classifier {
	return &Classifier{
		client: client,
		logger: logx.NewLogger("intent"),
	}
}

// Classify determines the intent of a user message given the conversation
// context. It never returns an error: any failure yields the safe default.
func (c *Classifier) Classify(ctx context.Context, userMessage string, convCtx Context) Intent {
	if c.client == nil {
		return SafeDefault()
	}

	result, err := llm.GenerateObject[classificationResult](ctx, c.client, llm.GenerateRequest{
		System:      classificationRubric,
		Prompt:      buildClassificationPrompt(userMessage, convCtx),
		Schema:      classificationSchema(),
		MaxTokens:   500,
		Temperature: llm.TemperatureClassify,
	})
	if err != nil {
		c.logger.Warn("classification failed, returning safe default: %v", err)
		return SafeDefault()
	}

	intentType := Type(result.IntentType)
	if !intentType.IsValid() {
		c.logger.Warn("classifier produced unknown intent %q, returning safe default", result.IntentType)
		return SafeDefault()
	}

	confidence := result.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = defaultConfidence
	}

	c.logger.Debug("classified %q at stage %s -> %s (%.2f)", userMessage, convCtx.CurrentStage, intentType, confidence)
	return Intent{
		Type:          intentType,
		Confidence:    confidence,
		ExtractedInfo: result.ExtractedInfo,
	}
}

type classificationResult struct {
	IntentType    string  `json:"intent_type"`
	Confidence    float64 `json:"confidence"`
	ExtractedInfo string  `json:"extracted_info"`
}

// classificationRubric is the fixed nine-intent policy. The per-stage "when
// to use" / "do not use" notes matter: acceptance and rejection intents are
// only meaningful while the matching artifact is on the table.
const classificationRubric = `You classify a user's message into exactly one intent.

Intents:
- Submit_Initial_Topic: the user states what their presentation should be about.
  Use at the greeting stage. Do not use once a topic is already established.
- Submit_Clarification_Answers: the user answers previously asked questions.
  Use while at ASK_CLARIFYING_QUESTIONS.
- Accept_Plan: the user approves the proposed plan ("yes", "looks good", "proceed").
  Only meaningful at CREATE_CONFIRMATION_PLAN.
- Reject_Plan: the user declines or disputes the proposed plan.
  Only meaningful at CREATE_CONFIRMATION_PLAN.
- Accept_Strawman: the user approves the draft outline and wants final content.
  Use at GENERATE_STRAWMAN or REFINE_STRAWMAN.
- Submit_Refinement_Request: the user asks for specific changes to the outline.
  Use at GENERATE_STRAWMAN or REFINE_STRAWMAN.
- Change_Topic: the user abandons the current topic for a new one.
  Put the new topic text in extracted_info. Usable at any stage after greeting.
- Change_Parameter: the user changes a presentation parameter (audience,
  duration, slide count) without changing the topic.
- Ask_Help_Or_Question: the user asks how the system works, asks an unrelated
  question, or sends something that fits no other intent. This is the default.

Return intent_type, a confidence in (0, 1], and extracted_info (the new topic
for Change_Topic, otherwise an empty string). extracted_info is always a
plain string, never an object.`

func buildClassificationPrompt(userMessage string, convCtx Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current stage: %s\n", convCtx.CurrentStage)

	history := convCtx.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	fmt.Fprintf(&b, "\nUser message: %s\n", userMessage)
	return b.String()
}

func classificationSchema() *llm.Schema {
	intentNames := []string{
		string(SubmitInitialTopic), string(SubmitClarificationAnswers),
		string(AcceptPlan), string(RejectPlan), string(AcceptStrawman),
		string(SubmitRefinementRequest), string(ChangeTopic),
		string(ChangeParameter), string(AskHelpOrQuestion),
	}
	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"intent_type":    {Type: "string", Enum: intentNames},
			"confidence":     {Type: "number", Description: "Confidence in (0, 1]"},
			"extracted_info": {Type: "string", Description: "New topic for Change_Topic, else empty"},
		},
		Required: []string{"intent_type", "confidence"},
	}
}
