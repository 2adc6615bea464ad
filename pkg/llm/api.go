// Package llm provides interfaces and types for Large Language Model client implementations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deckster/pkg/llm/llmerrors"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureClassify is used for intent classification. Near-deterministic.
	TemperatureClassify = 0.1

	// TemperatureSelect is used for layout selection. Low exploration.
	TemperatureSelect = 0.2

	// TemperaturePlan is used for confirmation plans.
	TemperaturePlan = 0.3

	// TemperatureStrawman is used for strawman generation and refinement.
	TemperatureStrawman = 0.4

	// TemperatureQuestions is used for clarifying questions.
	TemperatureQuestions = 0.5

	// TemperatureGreeting is used for the conversational greeting.
	TemperatureGreeting = 0.7
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// Schema describes the JSON shape a structured completion must produce.
// Providers translate it into their native structured-output mechanism
// (Gemini response schemas, Claude forced tools, OpenAI JSON mode).
type Schema struct {
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages       []CompletionMessage
	ResponseSchema *Schema // non-nil requests structured JSON output
	MaxTokens      int
	Temperature    float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Name kept for clarity at call sites
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// GenerateRequest describes a structured-output generation call.
//
//nolint:govet // fieldalignment: readability over packing
type GenerateRequest struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float32
}

// GenerateObject runs a structured completion and unmarshals the JSON result
// into T. Providers that support native structured output honor the schema
// directly; for the rest the JSON contract is enforced by the prompt and the
// response is fence-stripped before decoding.
func GenerateObject[T any](ctx context.Context, client LLMClient, in GenerateRequest) (T, error) {
	var out T

	messages := make([]CompletionMessage, 0, 2)
	if in.System != "" {
		messages = append(messages, NewSystemMessage(in.System))
	}
	messages = append(messages, NewUserMessage(in.Prompt))

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp, err := client.Complete(ctx, CompletionRequest{
		Messages:       messages,
		ResponseSchema: in.Schema,
		MaxTokens:      maxTokens,
		Temperature:    in.Temperature,
	})
	if err != nil {
		return out, err
	}

	payload := ExtractJSON(resp.Content)
	if payload == "" {
		return out, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
			fmt.Sprintf("model %s returned no JSON payload (stop: %s)", client.GetModelName(), resp.StopReason))
	}

	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err,
			fmt.Sprintf("model %s produced undecodable structured output", client.GetModelName()))
	}

	return out, nil
}

// ExtractJSON strips markdown code fences and surrounding prose from a model
// response, returning the first top-level JSON value it finds.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Strip ```json ... ``` fences.
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return content
	}

	// Fall back to the outermost braces in the text.
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if content[start] == '{' {
		end = strings.LastIndex(content, "}")
	} else {
		end = strings.LastIndex(content, "]")
	}
	if end <= start {
		return ""
	}
	return content[start : end+1]
}
