// Package mocks provides hand-rolled test doubles for external dependencies.
package mocks

import (
	"context"
	"sync"

	"deckster/pkg/llm"
)

// LLMClient is a configurable mock implementing llm.LLMClient. Set
// CompleteFunc to control behavior; calls are recorded for assertions.
type LLMClient struct {
	mu sync.Mutex

	// CompleteFunc overrides Complete behavior. When nil, a canned empty
	// response is returned.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

	// ModelName is returned by GetModelName. Defaults to "mock-model".
	ModelName string

	// Calls records every request passed to Complete, in order.
	Calls []llm.CompletionRequest
}

// NewLLMClient creates a mock that returns the given content for every call.
func NewLLMClient(content string) *LLMClient {
	return &LLMClient{
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{Content: content, StopReason: "end_turn"}, nil
		},
	}
}

// NewFailingLLMClient creates a mock that returns err for every call.
func NewFailingLLMClient(err error) *LLMClient {
	return &LLMClient{
		CompleteFunc: func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{}, err
		},
	}
}

// Complete implements llm.LLMClient.
func (m *LLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return llm.CompletionResponse{StopReason: "end_turn"}, nil
}

// GetModelName implements llm.LLMClient.
func (m *LLMClient) GetModelName() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "mock-model"
}

// CallCount returns the number of Complete invocations so far.
func (m *LLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or a zero request when none.
func (m *LLMClient) LastCall() llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return llm.CompletionRequest{}
	}
	return m.Calls[len(m.Calls)-1]
}
