// Package director is the stage orchestrator: it classifies each user turn,
// routes it through the workflow state machine, runs the stage's generation
// step, and assembles the turn response.
package director

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deckster/pkg/deck"
	"deckster/pkg/deckbuilder"
	"deckster/pkg/intent"
	"deckster/pkg/layouts"
	"deckster/pkg/llm"
	"deckster/pkg/logx"
	"deckster/pkg/session"
	"deckster/pkg/textsvc"
	"deckster/pkg/tokens"
	"deckster/pkg/transform"
	"deckster/pkg/workflow"
)

// ErrNoStrawman is returned when content generation is attempted without a
// strawman in the session.
var ErrNoStrawman = errors.New("no strawman found in session data")

// TextGenerator is the per-slide text-generation collaborator.
type TextGenerator interface {
	Generate(ctx context.Context, req *textsvc.Request) (*textsvc.Response, error)
}

// Renderer is the presentation rendering collaborator.
type Renderer interface {
	CreatePresentation(ctx context.Context, payload *transform.PresentationPayload) (*deckbuilder.Result, error)
	GetFullURL(relative string) string
}

// Checkpointer persists session snapshots between turns.
type Checkpointer interface {
	Save(ctx context.Context, sess *session.Session) error
}

// Response is the result of handling one user turn. Artifact fields are
// populated per stage; Message always carries the conversational reply.
type Response struct {
	Stage     workflow.Stage                     `json:"stage"`
	Message   string                             `json:"message"`
	Intent    intent.Intent                      `json:"intent"`
	Questions *deck.ClarifyingQuestions          `json:"questions,omitempty"`
	Plan      *deck.ConfirmationPlan             `json:"plan,omitempty"`
	Strawman  *deck.PresentationStrawman         `json:"strawman,omitempty"`
	Enriched  *deck.EnrichedPresentationStrawman `json:"enriched,omitempty"`

	PresentationURL  string `json:"presentation_url,omitempty"`
	PresentationID   string `json:"presentation_id,omitempty"`
	ContentGenerated bool   `json:"content_generated"`
	SuccessfulSlides int    `json:"successful_slides,omitempty"`
	FailedSlides     int    `json:"failed_slides,omitempty"`
}

// StageClients holds one model client per generation stage, mirroring the
// per-stage model configuration. Any nil field inherits Options.StageClient.
type StageClients struct {
	Greeting  llm.LLMClient
	Questions llm.LLMClient
	Plan      llm.LLMClient
	Strawman  llm.LLMClient
	Refine    llm.LLMClient
}

// Options configures a Director. TextService, Renderer, and Checkpoints may
// be nil; the affected steps then degrade per their fallback rules.
type Options struct {
	// StageClient is the shared default for any StageClients field left nil.
	StageClient llm.LLMClient
	Clients     StageClients
	Classifier  *intent.Classifier
	Selector    *layouts.Selector
	Transformer *transform.Transformer
	Catalog     *layouts.Catalog
	TextService TextGenerator
	Renderer    Renderer
	Checkpoints Checkpointer

	// Tracker feeds the metrics middleware. Created when nil; callers that
	// build LLM clients before the Director pass the shared one here.
	Tracker *StageTracker

	// MaxConcurrentSlides bounds parallel slide text generation. Values
	// below 1 mean sequential.
	MaxConcurrentSlides int
}

// Director drives one conversation turn at a time. A single Director may
// serve multiple sessions; per-session state lives in the Session.
type Director struct {
	clients     StageClients
	classifier  *intent.Classifier
	selector    *layouts.Selector
	transformer *transform.Transformer
	catalog     *layouts.Catalog
	textSvc     TextGenerator
	renderer    Renderer
	checkpoints Checkpointer
	tracker     *StageTracker
	logger      *logx.Logger

	// tokenCounter estimates prompt sizes for oversize warnings. Nil when
	// the tokenizer fails to initialize; sizing checks are then skipped.
	tokenCounter *tokens.Counter

	maxConcurrent int
}

// New creates a Director from the given collaborators.
func New(opts Options) *Director {
	maxConcurrent := opts.MaxConcurrentSlides
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewStageTracker()
	}
	clients := opts.Clients
	for _, c := range []*llm.LLMClient{
		&clients.Greeting, &clients.Questions, &clients.Plan,
		&clients.Strawman, &clients.Refine,
	} {
		if *c == nil {
			*c = opts.StageClient
		}
	}
	counter, err := tokens.NewCounter("gpt-4")
	if err != nil {
		counter = nil
	}
	return &Director{
		clients:       clients,
		tokenCounter:  counter,
		classifier:    opts.Classifier,
		selector:      opts.Selector,
		transformer:   opts.Transformer,
		catalog:       opts.Catalog,
		textSvc:       opts.TextService,
		renderer:      opts.Renderer,
		checkpoints:   opts.Checkpoints,
		tracker:       tracker,
		logger:        logx.NewLogger("director"),
		maxConcurrent: maxConcurrent,
	}
}

// Tracker exposes the stage tracker for wiring into the metrics middleware.
func (d *Director) Tracker() *StageTracker {
	return d.tracker
}

// HandleMessage processes one user turn: classify, route, generate, respond.
// Recoverable failures (classification, layout selection, rendering,
// per-slide text generation) degrade per their fallback rules; generation
// failures for the active stage are fatal for the turn.
func (d *Director) HandleMessage(ctx context.Context, sess *session.Session, userMessage string) (*Response, error) {
	d.tracker.Observe(sess.ID, sess.CurrentStage)

	classified := intent.SafeDefault()
	if d.classifier != nil {
		classified = d.classifier.Classify(ctx, userMessage, intent.Context{
			CurrentStage: sess.CurrentStage,
			History:      sess.History,
		})
	}
	d.logger.Info("session %s at %s: intent %s (%.2f)", sess.ID, sess.CurrentStage, classified.Type, classified.Confidence)

	sess.AddTurn("user", userMessage)

	resp, err := d.route(ctx, sess, userMessage, classified)
	if err != nil {
		return nil, err
	}
	resp.Intent = classified
	resp.Stage = sess.CurrentStage

	sess.AddTurn("assistant", resp.Message)
	d.tracker.Observe(sess.ID, sess.CurrentStage)
	d.checkpoint(ctx, sess)
	return resp, nil
}

// route dispatches on intent first (the cross-stage intents), then on the
// current stage. Intents that are not meaningful at the current stage fall
// through to the help response rather than erroring.
func (d *Director) route(ctx context.Context, sess *session.Session, userMessage string, classified intent.Intent) (*Response, error) {
	switch classified.Type {
	case intent.ChangeTopic:
		if sess.CurrentStage == workflow.StageGreeting {
			break // no topic established yet; treat as the initial topic below
		}
		topic := classified.ExtractedInfo
		if topic == "" {
			topic = userMessage
		}
		sess.ResetForNewTopic(topic)
		return d.runQuestions(ctx, sess)

	case intent.AskHelpOrQuestion:
		return d.helpResponse(sess), nil
	}

	switch sess.CurrentStage {
	case workflow.StageGreeting:
		return d.routeGreeting(ctx, sess, userMessage, classified)
	case workflow.StageAskClarifyingQuestions:
		return d.routeQuestions(ctx, sess, userMessage, classified)
	case workflow.StageCreateConfirmationPlan:
		return d.routePlan(ctx, sess, userMessage, classified)
	case workflow.StageGenerateStrawman, workflow.StageRefineStrawman:
		return d.routeStrawman(ctx, sess, userMessage, classified)
	case workflow.StageContentGeneration:
		// Terminal stage: nothing further to generate.
		return d.helpResponse(sess), nil
	default:
		return nil, fmt.Errorf("session %s is at unknown stage %q", sess.ID, sess.CurrentStage)
	}
}

func (d *Director) routeGreeting(ctx context.Context, sess *session.Session, userMessage string, classified intent.Intent) (*Response, error) {
	if classified.Type == intent.SubmitInitialTopic || classified.Type == intent.ChangeTopic {
		topic := classified.ExtractedInfo
		if topic == "" {
			topic = userMessage
		}
		sess.UserInitialRequest = topic
		if err := sess.Advance(workflow.StageAskClarifyingQuestions); err != nil {
			return nil, err
		}
		return d.runQuestions(ctx, sess)
	}
	return d.runGreeting(ctx, sess)
}

func (d *Director) routeQuestions(ctx context.Context, sess *session.Session, userMessage string, classified intent.Intent) (*Response, error) {
	if classified.Type == intent.SubmitClarificationAnswers {
		sess.ClarifyingAnswers = userMessage
		if err := sess.Advance(workflow.StageCreateConfirmationPlan); err != nil {
			return nil, err
		}
		return d.runPlan(ctx, sess)
	}
	return d.helpResponse(sess), nil
}

func (d *Director) routePlan(ctx context.Context, sess *session.Session, userMessage string, classified intent.Intent) (*Response, error) {
	switch classified.Type {
	case intent.AcceptPlan:
		if err := sess.Advance(workflow.StageGenerateStrawman); err != nil {
			return nil, err
		}
		return d.runStrawman(ctx, sess, "")

	case intent.RejectPlan:
		if err := sess.Advance(workflow.StageAskClarifyingQuestions); err != nil {
			return nil, err
		}
		return d.runQuestions(ctx, sess)

	case intent.ChangeParameter:
		// Re-plan in place with the changed parameter folded in.
		if err := sess.Advance(workflow.StageCreateConfirmationPlan); err != nil {
			return nil, err
		}
		sess.ClarifyingAnswers += "\n" + userMessage
		return d.runPlan(ctx, sess)
	}
	return d.helpResponse(sess), nil
}

func (d *Director) routeStrawman(ctx context.Context, sess *session.Session, userMessage string, classified intent.Intent) (*Response, error) {
	switch classified.Type {
	case intent.AcceptStrawman:
		if err := sess.Advance(workflow.StageContentGeneration); err != nil {
			return nil, err
		}
		return d.runContentGeneration(ctx, sess)

	case intent.SubmitRefinementRequest, intent.ChangeParameter:
		if err := sess.Advance(workflow.StageRefineStrawman); err != nil {
			return nil, err
		}
		sess.RefinementRounds++
		return d.runStrawman(ctx, sess, userMessage)
	}
	return d.helpResponse(sess), nil
}

// helpResponse answers without moving the stage: a short orientation plus
// what the current stage is waiting for. Deterministic so the conversation
// stays recoverable even when every model call is failing.
func (d *Director) helpResponse(sess *session.Session) *Response {
	var b strings.Builder
	b.WriteString("I turn your request into a slide presentation in stages: topic, clarifying questions, a plan for your approval, a draft outline you can refine, and finally the generated deck.\n")

	switch sess.CurrentStage {
	case workflow.StageGreeting:
		b.WriteString("To begin, tell me what your presentation should be about.")
	case workflow.StageAskClarifyingQuestions:
		b.WriteString("Right now I'm waiting for your answers to the clarifying questions above.")
	case workflow.StageCreateConfirmationPlan:
		b.WriteString("Right now I'm waiting for you to accept or reject the proposed plan.")
	case workflow.StageGenerateStrawman, workflow.StageRefineStrawman:
		b.WriteString("Right now you can accept the draft outline or ask for specific changes.")
	case workflow.StageContentGeneration:
		if sess.LastPresentationURL != "" {
			fmt.Fprintf(&b, "Your presentation is ready: %s\nStart a new topic to build another one.", sess.LastPresentationURL)
		} else {
			b.WriteString("Your presentation has been generated. Start a new topic to build another one.")
		}
	}

	return &Response{Message: b.String()}
}

func (d *Director) checkpoint(ctx context.Context, sess *session.Session) {
	if d.checkpoints == nil {
		return
	}
	if err := d.checkpoints.Save(ctx, sess); err != nil {
		d.logger.Warn("failed to checkpoint session %s: %v", sess.ID, err)
	}
}
