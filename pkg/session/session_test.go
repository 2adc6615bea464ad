package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckster/pkg/deck"
	"deckster/pkg/workflow"
)

func TestNewSessionStartsAtGreeting(t *testing.T) {
	s := New()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, workflow.StageGreeting, s.CurrentStage)

	other := New()
	assert.NotEqual(t, s.ID, other.ID)
}

func TestAdvanceValidatesTransition(t *testing.T) {
	s := New()

	require.NoError(t, s.Advance(workflow.StageAskClarifyingQuestions))
	assert.Equal(t, workflow.StageAskClarifyingQuestions, s.CurrentStage)

	err := s.Advance(workflow.StageContentGeneration)
	require.Error(t, err)
	assert.Equal(t, workflow.StageAskClarifyingQuestions, s.CurrentStage, "stage unchanged on invalid transition")
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	s.UserInitialRequest = "a deck about bees"
	s.CurrentStage = workflow.StageGenerateStrawman
	s.Strawman = &deck.PresentationStrawman{
		MainTitle: "All About Bees",
		Slides:    []deck.Slide{{SlideNumber: 1, SlideID: "slide_001", Title: "All About Bees"}},
	}
	s.AddTurn("user", "make it about bees")

	data, err := s.MarshalSnapshot()
	require.NoError(t, err)

	restored, err := LoadSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, s.ID, restored.ID)
	assert.Equal(t, workflow.StageGenerateStrawman, restored.CurrentStage)
	require.NotNil(t, restored.Strawman)
	assert.Equal(t, "All About Bees", restored.Strawman.MainTitle)
	require.Len(t, restored.History, 1)
}

func TestLoadSnapshotRejectsUnknownVersion(t *testing.T) {
	_, err := LoadSnapshot([]byte(`{"schema_version": 99, "session": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestLoadSnapshotRejectsUnknownStage(t *testing.T) {
	_, err := LoadSnapshot([]byte(`{"schema_version": 1, "session": {"id": "x", "current_stage": "NOT_A_STAGE"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestResetForNewTopic(t *testing.T) {
	s := New()
	s.CurrentStage = workflow.StageRefineStrawman
	s.Strawman = &deck.PresentationStrawman{MainTitle: "Old Topic"}
	s.Plan = &deck.ConfirmationPlan{ProposedSlideCount: 8}
	s.RefinementRounds = 3
	s.AddTurn("user", "old turn")

	s.ResetForNewTopic("space elevators")

	assert.Equal(t, "space elevators", s.UserInitialRequest)
	assert.Nil(t, s.Strawman)
	assert.Nil(t, s.Plan)
	assert.Zero(t, s.RefinementRounds)
	assert.Equal(t, workflow.StageAskClarifyingQuestions, s.CurrentStage)
	assert.Len(t, s.History, 1, "history survives a topic change")
}
