// Package llmimpl provides the LLM client factory with middleware chain construction.
package llmimpl

import (
	"fmt"
	"os"
	"strings"

	"deckster/pkg/llm"
	"deckster/pkg/llm/middleware/metrics"
	"deckster/pkg/llm/middleware/retry"
	"deckster/pkg/llmimpl/anthropic"
	"deckster/pkg/llmimpl/google"
	"deckster/pkg/llmimpl/openaiofficial"
	"deckster/pkg/logx"
)

// Provider identifiers resolved from model name prefixes.
const (
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Factory creates LLM clients with properly configured middleware chains.
type Factory struct {
	metricsRecorder metrics.Recorder
	retryPolicy     *retry.Policy
}

// NewFactory creates a new LLM client factory. When recordMetrics is false
// no Prometheus collectors are registered, which keeps tests free of global
// Prometheus state. Extra recorders (e.g. a usage ledger) observe every
// request alongside Prometheus.
func NewFactory(recordMetrics bool, extra ...metrics.Recorder) *Factory {
	recorders := make([]metrics.Recorder, 0, len(extra)+1)
	if recordMetrics {
		recorders = append(recorders, metrics.NewPrometheusRecorder())
	}
	recorders = append(recorders, extra...)

	var recorder metrics.Recorder
	switch len(recorders) {
	case 0:
		recorder = metrics.Nop()
	case 1:
		recorder = recorders[0]
	default:
		recorder = metrics.Tee(recorders...)
	}

	return &Factory{
		metricsRecorder: recorder,
		retryPolicy:     retry.NewPolicy(),
	}
}

// ProviderForModel determines the provider from the model name prefix.
func ProviderForModel(model string) (string, error) {
	switch {
	case strings.HasPrefix(model, "gemini"):
		return ProviderGoogle, nil
	case strings.HasPrefix(model, "claude"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("cannot determine provider for model %q", model)
	}
}

// apiKeyForProvider retrieves the API key for a provider from environment variables.
func apiKeyForProvider(provider string) (string, error) {
	var envVars []string
	switch provider {
	case ProviderGoogle:
		envVars = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	case ProviderAnthropic:
		envVars = []string{"ANTHROPIC_API_KEY"}
	case ProviderOpenAI:
		envVars = []string{"OPENAI_API_KEY"}
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}

	for _, name := range envVars {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("no API key found for provider %s (set %s)", provider, strings.Join(envVars, " or "))
}

// CreateClient creates an LLM client for the given model with the full
// middleware chain. The API key is retrieved from environment variables
// based on the model's provider.
func (f *Factory) CreateClient(model string, stageProvider metrics.StageProvider, logger *logx.Logger) (llm.LLMClient, error) {
	provider, err := ProviderForModel(model)
	if err != nil {
		return nil, err
	}

	apiKey, err := apiKeyForProvider(provider)
	if err != nil {
		return nil, err
	}

	var rawClient llm.LLMClient
	switch provider {
	case ProviderGoogle:
		rawClient = google.NewGeminiClientWithModel(apiKey, model)
	case ProviderAnthropic:
		rawClient = anthropic.NewClaudeClientWithModel(apiKey, model)
	case ProviderOpenAI:
		rawClient = openaiofficial.NewOfficialClientWithModel(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	// Middleware chain order: Metrics -> Retry -> RawClient
	middlewares := []llm.Middleware{}
	if stageProvider != nil {
		middlewares = append(middlewares, metrics.Middleware(f.metricsRecorder, nil, stageProvider, logger))
	}
	middlewares = append(middlewares, retry.Middleware(f.retryPolicy))

	return llm.Chain(rawClient, middlewares...), nil
}
