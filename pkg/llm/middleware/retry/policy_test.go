package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"deckster/pkg/llm/llmerrors"
)

func TestShouldRetryPerErrorType(t *testing.T) {
	p := NewPolicy()

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"nil error", nil, 1, false},

		{"transient first attempt", llmerrors.NewError(llmerrors.ErrorTypeTransient, "503"), 1, true},
		{"transient within budget", llmerrors.NewError(llmerrors.ErrorTypeTransient, "503"), 3, true},
		{"transient at attempt cap", llmerrors.NewError(llmerrors.ErrorTypeTransient, "503"), 4, false},

		{"rate limit within budget", llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429"), 3, true},
		// Per-type budget (5) exceeds the policy cap; the cap wins.
		{"rate limit at attempt cap", llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429"), 4, false},

		{"empty response within budget", llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty"), 3, true},

		{"auth never retried", llmerrors.NewError(llmerrors.ErrorTypeAuth, "401"), 1, false},
		{"bad prompt never retried", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "400"), 1, false},

		{"unknown type first attempt", llmerrors.NewError(llmerrors.ErrorTypeUnknown, "?"), 1, true},
		{"unknown type second attempt", llmerrors.NewError(llmerrors.ErrorTypeUnknown, "?"), 2, false},

		{"unclassified error gets unknown budget", errors.New("plain failure"), 1, true},
		{"unclassified error exhausted", errors.New("plain failure"), 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestShouldRetryHonorsAttemptCap(t *testing.T) {
	p := &Policy{MaxAttempts: 2}
	err := llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429")

	assert.True(t, p.ShouldRetry(err, 1))
	assert.False(t, p.ShouldRetry(err, 2), "cap applies even with per-type budget remaining")
}

func TestDelayGrowsExponentiallyWithinBounds(t *testing.T) {
	p := NewPolicy()
	err := llmerrors.NewError(llmerrors.ErrorTypeTransient, "503")
	cfg := llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeTransient]

	// Jitter adds up to 25%, so assert on [base, base*1.25] windows.
	for attempt, base := range map[int]time.Duration{
		2: cfg.InitialDelay,
		3: 2 * cfg.InitialDelay,
		4: 4 * cfg.InitialDelay,
	} {
		d := p.Delay(err, attempt)
		assert.GreaterOrEqual(t, d, base, "attempt %d", attempt)
		assert.LessOrEqual(t, d, base+base/4, "attempt %d", attempt)
	}
}

func TestDelayCapsAtMaxDelay(t *testing.T) {
	p := NewPolicy()
	err := llmerrors.NewError(llmerrors.ErrorTypeTransient, "503")
	cfg := llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeTransient]

	// Far past the doubling horizon: 500ms doubled 18 times dwarfs 10s.
	d := p.Delay(err, 20)
	assert.GreaterOrEqual(t, d, cfg.MaxDelay)
	assert.LessOrEqual(t, d, cfg.MaxDelay+cfg.MaxDelay/4)
}

func TestDelayZeroForNonRetryableTypes(t *testing.T) {
	p := NewPolicy()

	assert.Zero(t, p.Delay(llmerrors.NewError(llmerrors.ErrorTypeAuth, "401"), 2))
	assert.Zero(t, p.Delay(llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "400"), 2))
}

func TestDelayUnclassifiedUsesUnknownConfig(t *testing.T) {
	p := NewPolicy()
	cfg := llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeUnknown]

	d := p.Delay(errors.New("plain failure"), 2)
	assert.GreaterOrEqual(t, d, cfg.InitialDelay)
	assert.LessOrEqual(t, d, cfg.InitialDelay+cfg.InitialDelay/4)
}
