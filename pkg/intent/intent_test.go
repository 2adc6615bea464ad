package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"deckster/internal/mocks"
	"deckster/pkg/workflow"
)

func TestClassifyAcceptPlan(t *testing.T) {
	client := mocks.NewLLMClient(`{"intent_type": "Accept_Plan", "confidence": 0.95, "extracted_info": ""}`)
	c := NewClassifier(client)

	got := c.Classify(context.Background(), "Yes, proceed.", Context{CurrentStage: workflow.StageCreateConfirmationPlan})

	assert.Equal(t, AcceptPlan, got.Type)
	assert.GreaterOrEqual(t, got.Confidence, 0.9)
	assert.Empty(t, got.ExtractedInfo)
}

func TestClassifyChangeTopicCarriesExtractedInfo(t *testing.T) {
	client := mocks.NewLLMClient(`{"intent_type": "Change_Topic", "confidence": 0.9, "extracted_info": "renewable energy trends"}`)
	c := NewClassifier(client)

	got := c.Classify(context.Background(), "Actually let's talk about renewables instead", Context{CurrentStage: workflow.StageRefineStrawman})

	assert.Equal(t, ChangeTopic, got.Type)
	assert.Equal(t, "renewable energy trends", got.ExtractedInfo)
}

func TestClassifyModelFailureReturnsSafeDefault(t *testing.T) {
	c := NewClassifier(mocks.NewFailingLLMClient(errors.New("model unavailable")))

	got := c.Classify(context.Background(), "hello?", Context{CurrentStage: workflow.StageGreeting})

	assert.Equal(t, AskHelpOrQuestion, got.Type)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Empty(t, got.ExtractedInfo)
}

func TestClassifyMalformedOutputReturnsSafeDefault(t *testing.T) {
	c := NewClassifier(mocks.NewLLMClient("I think the user wants to accept the plan"))
	got := c.Classify(context.Background(), "yes", Context{CurrentStage: workflow.StageCreateConfirmationPlan})
	assert.Equal(t, SafeDefault(), got)
}

func TestClassifyUnknownIntentReturnsSafeDefault(t *testing.T) {
	c := NewClassifier(mocks.NewLLMClient(`{"intent_type": "Do_Something_Weird", "confidence": 0.9}`))
	got := c.Classify(context.Background(), "yes", Context{CurrentStage: workflow.StageCreateConfirmationPlan})
	assert.Equal(t, SafeDefault(), got)
}

func TestClassifyNilClientReturnsSafeDefault(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "anything", Context{})
	assert.Equal(t, SafeDefault(), got)
}

func TestClassifyPromptCarriesStageAndBoundedHistory(t *testing.T) {
	client := mocks.NewLLMClient(`{"intent_type": "Ask_Help_Or_Question", "confidence": 0.8}`)
	c := NewClassifier(client)

	history := make([]Turn, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, Turn{Role: "user", Content: "old message"})
	}
	history[9].Content = "newest message"

	c.Classify(context.Background(), "what now?", Context{
		CurrentStage: workflow.StageGenerateStrawman,
		History:      history,
	})

	req := client.LastCall()
	prompt := req.Messages[len(req.Messages)-1].Content
	assert.Contains(t, prompt, workflow.StageGenerateStrawman.String())
	assert.Contains(t, prompt, "newest message")
	assert.LessOrEqual(t, len(splitLines(prompt, "old message")), historyWindow)
}

func splitLines(s, substr string) []int {
	var idxs []int
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func TestConfidenceOutOfRangeNormalized(t *testing.T) {
	c := NewClassifier(mocks.NewLLMClient(`{"intent_type": "Accept_Plan", "confidence": 7.5}`))
	got := c.Classify(context.Background(), "yes", Context{CurrentStage: workflow.StageCreateConfirmationPlan})

	assert.Equal(t, AcceptPlan, got.Type)
	assert.Equal(t, 0.5, got.Confidence)
}
