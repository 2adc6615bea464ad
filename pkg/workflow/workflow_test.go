package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedTransitions mirrors the canonical table. Any drift between this
// map and the implementation is a test failure, keeping the table honest.
var expectedTransitions = map[Stage][]Stage{
	StageGreeting:               {StageAskClarifyingQuestions},
	StageAskClarifyingQuestions: {StageCreateConfirmationPlan},
	StageCreateConfirmationPlan: {StageGenerateStrawman, StageAskClarifyingQuestions, StageCreateConfirmationPlan},
	StageGenerateStrawman:       {StageRefineStrawman, StageContentGeneration},
	StageRefineStrawman:         {StageRefineStrawman, StageContentGeneration},
	StageContentGeneration:      {},
}

func allStages() []Stage {
	return []Stage{
		StageGreeting,
		StageAskClarifyingQuestions,
		StageCreateConfirmationPlan,
		StageGenerateStrawman,
		StageRefineStrawman,
		StageContentGeneration,
	}
}

func TestNextStagesMatchesTableExactly(t *testing.T) {
	for from, want := range expectedTransitions {
		got := NextStages(from)
		assert.Equal(t, want, got, "next stages for %s", from)
	}
}

func TestValidateTransitionAgreesWithNextStages(t *testing.T) {
	for _, from := range allStages() {
		allowed := make(map[Stage]bool)
		for _, to := range NextStages(from) {
			allowed[to] = true
		}
		for _, to := range allStages() {
			assert.Equal(t, allowed[to], ValidateTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestContentGenerationIsTerminal(t *testing.T) {
	assert.True(t, StageContentGeneration.IsTerminal())
	assert.Empty(t, NextStages(StageContentGeneration))
}

func TestLayoutGenerationIsUnreachable(t *testing.T) {
	for _, from := range allStages() {
		assert.False(t, ValidateTransition(from, StageLayoutGeneration),
			"nothing should transition into %s", StageLayoutGeneration)
	}
	assert.Empty(t, NextStages(StageLayoutGeneration))
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	next, err := Transition(StageGreeting, StageGenerateStrawman)
	require.Error(t, err)
	assert.Equal(t, StageGreeting, next, "state must not change on rejection")

	var invalidErr *InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, StageGreeting, invalidErr.From)
	assert.Equal(t, StageGenerateStrawman, invalidErr.To)
}

func TestTransitionAcceptsLegalMove(t *testing.T) {
	next, err := Transition(StageRefineStrawman, StageRefineStrawman)
	require.NoError(t, err)
	assert.Equal(t, StageRefineStrawman, next)
}

func TestNextStagesReturnsCopy(t *testing.T) {
	first := NextStages(StageGenerateStrawman)
	first[0] = StageGreeting
	second := NextStages(StageGenerateStrawman)
	assert.Equal(t, StageRefineStrawman, second[0])
}
