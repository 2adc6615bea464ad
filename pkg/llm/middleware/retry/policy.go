// Package retry provides retry middleware for LLM clients.
package retry

import (
	"errors"
	"math/rand"
	"time"

	"deckster/pkg/llm/llmerrors"
)

// Policy decides whether and when a failed LLM call is retried.
// Backoff parameters come from the classified error's retry configuration.
type Policy struct {
	// MaxAttempts caps total attempts across all error types. The per-type
	// MaxRetries from llmerrors still applies underneath this cap.
	MaxAttempts int
}

// DefaultMaxAttempts bounds a single logical completion across retries.
const DefaultMaxAttempts = 4

// NewPolicy creates a retry policy with the default attempt cap.
func NewPolicy() *Policy {
	return &Policy{MaxAttempts: DefaultMaxAttempts}
}

// ShouldRetry reports whether the error is worth another attempt.
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		if !llmErr.IsRetryable() {
			return false
		}
		return attempt <= llmErr.GetRetryConfig().MaxRetries
	}

	// Unclassified errors get the conservative unknown budget.
	return attempt <= llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeUnknown].MaxRetries
}

// Delay computes the exponential backoff delay before the given attempt.
// Attempt numbering starts at 1; the first retry is attempt 2.
func (p *Policy) Delay(err error, attempt int) time.Duration {
	cfg := llmerrors.DefaultRetryConfigs[llmerrors.TypeOf(err)]
	if cfg.InitialDelay <= 0 {
		return 0
	}

	delay := cfg.InitialDelay
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}

	if cfg.Jitter && delay > 0 {
		// Up to 25% random jitter to avoid thundering herd.
		jitter := time.Duration(rand.Int63n(int64(delay) / 4)) //nolint:gosec // Non-cryptographic jitter
		delay += jitter
	}

	return delay
}
