// Package session holds the per-conversation state accumulated across
// workflow stages.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"deckster/pkg/deck"
	"deckster/pkg/intent"
	"deckster/pkg/workflow"
)

// SchemaVersion tags serialized sessions. Bump when the persisted shape
// changes incompatibly; LoadSnapshot rejects unknown versions.
const SchemaVersion = 1

// Session is the state of one conversation. One session is driven by one
// logical workflow at a time; no concurrent access happens within a session.
type Session struct {
	ID           string         `json:"id"`
	CurrentStage workflow.Stage `json:"current_stage"`
	History      []intent.Turn  `json:"history"`

	// Accumulated stage data.
	UserInitialRequest  string                             `json:"user_initial_request,omitempty"`
	ClarifyingAnswers   string                             `json:"clarifying_answers,omitempty"`
	Questions           *deck.ClarifyingQuestions          `json:"questions,omitempty"`
	Plan                *deck.ConfirmationPlan             `json:"plan,omitempty"`
	Strawman            *deck.PresentationStrawman         `json:"strawman,omitempty"`
	Enriched            *deck.EnrichedPresentationStrawman `json:"enriched,omitempty"`
	RefinementRounds    int                                `json:"refinement_rounds"`
	PresentationID      string                             `json:"presentation_id,omitempty"`
	LastPresentationURL string                             `json:"last_presentation_url,omitempty"`
}

// New creates a fresh session at the greeting stage.
func New() *Session {
	return &Session{
		ID:           uuid.NewString(),
		CurrentStage: workflow.StageGreeting,
	}
}

// Advance moves the session to the target stage after validating the
// transition. The stage is unchanged on error.
func (s *Session) Advance(to workflow.Stage) error {
	next, err := workflow.Transition(s.CurrentStage, to)
	if err != nil {
		return err
	}
	s.CurrentStage = next
	return nil
}

// AddTurn appends one message to the conversation history.
func (s *Session) AddTurn(role, content string) {
	s.History = append(s.History, intent.Turn{Role: role, Content: content})
}

// ResetForNewTopic clears accumulated artifacts when the user changes topic,
// keeping the session ID and conversation history.
func (s *Session) ResetForNewTopic(newTopic string) {
	s.UserInitialRequest = newTopic
	s.ClarifyingAnswers = ""
	s.Questions = nil
	s.Plan = nil
	s.Strawman = nil
	s.Enriched = nil
	s.RefinementRounds = 0
	s.PresentationID = ""
	s.LastPresentationURL = ""
	s.CurrentStage = workflow.StageAskClarifyingQuestions
}

// Snapshot is the versioned serialized form of a session.
type Snapshot struct {
	SchemaVersion int             `json:"schema_version"`
	Session       json.RawMessage `json:"session"`
}

// MarshalSnapshot serializes the session with its schema version.
func (s *Session) MarshalSnapshot() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize session %s: %w", s.ID, err)
	}
	return json.Marshal(Snapshot{SchemaVersion: SchemaVersion, Session: raw})
}

// LoadSnapshot deserializes a session snapshot, rejecting unknown schema
// versions rather than guessing at field meanings.
func LoadSnapshot(data []byte) (*Session, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse session snapshot: %w", err)
	}
	if snap.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d (want %d)", snap.SchemaVersion, SchemaVersion)
	}

	var s Session
	if err := json.Unmarshal(snap.Session, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session body: %w", err)
	}
	if !s.CurrentStage.IsValid() {
		return nil, fmt.Errorf("session %s has unknown stage %q", s.ID, s.CurrentStage)
	}
	return &s, nil
}
