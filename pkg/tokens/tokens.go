// Package tokens provides tiktoken-based token counting utilities.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter provides token counting for prompt budgeting and usage reports.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a token counter for the specified model. Gemini and
// Claude tokenize similarly enough to GPT-4 for budgeting purposes, so all
// models map to the GPT-4 codec.
func NewCounter(model string) (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &Counter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text.
func (c *Counter) CountTokens(text string) int {
	if c.codec == nil {
		// Fallback to character-based estimation (4 chars ≈ 1 token)
		return len(text) / 4
	}

	count, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}

	return count
}

// WithinLimit reports whether text fits in the specified token budget.
func (c *Counter) WithinLimit(text string, limit int) bool {
	return c.CountTokens(text) <= limit
}

//nolint:gochecknoglobals // Shared codec avoids re-initializing BPE tables per call
var (
	sharedOnce    sync.Once
	sharedCounter *Counter
)

// Count counts tokens in text using a shared GPT-4 codec. Falls back to
// character-based estimation if the codec cannot be built.
func Count(text string) int {
	sharedOnce.Do(func() {
		if c, err := NewCounter("gpt-4"); err == nil {
			sharedCounter = c
		}
	})
	if sharedCounter == nil {
		return len(text) / 4
	}
	return sharedCounter.CountTokens(text)
}

// UsageReport aggregates token counts for a single workflow stage call.
type UsageReport struct {
	Stage            string `json:"stage"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Total returns the combined prompt and completion token count.
func (r UsageReport) Total() int {
	return r.PromptTokens + r.CompletionTokens
}
