package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageLedgerAccumulatesPerSession(t *testing.T) {
	ledger := NewUsageLedger()

	ledger.ObserveRequest("gemini-2.5-pro", "sess-1", "greeting", 100, 20, true, "", time.Second)
	ledger.ObserveRequest("gemini-2.5-pro", "sess-1", "generate_strawman", 800, 400, true, "", time.Second)
	ledger.ObserveRequest("claude-sonnet-4-20250514", "sess-2", "greeting", 50, 10, true, "", time.Second)

	reports := ledger.SessionReports("sess-1")
	require.Len(t, reports, 2)
	assert.Equal(t, "greeting", reports[0].Stage)
	assert.Equal(t, "generate_strawman", reports[1].Stage)
	assert.Equal(t, 120, reports[0].Total())
	assert.Equal(t, 1200, reports[1].Total())
	assert.Equal(t, 1320, ledger.SessionTotal("sess-1"))

	// Sessions do not bleed into each other.
	assert.Equal(t, 60, ledger.SessionTotal("sess-2"))
	assert.Empty(t, ledger.SessionReports("sess-3"))
	assert.Zero(t, ledger.SessionTotal("sess-3"))
}

func TestUsageLedgerRecordsFailedRequests(t *testing.T) {
	ledger := NewUsageLedger()

	// The prompt was still sent even though the call failed.
	ledger.ObserveRequest("gemini-2.5-pro", "sess-1", "create_confirmation_plan", 300, 0, false, "rate_limit", time.Second)

	reports := ledger.SessionReports("sess-1")
	require.Len(t, reports, 1)
	assert.Equal(t, 300, reports[0].PromptTokens)
	assert.Zero(t, reports[0].CompletionTokens)
}

func TestUsageLedgerReportsAreCopies(t *testing.T) {
	ledger := NewUsageLedger()
	ledger.ObserveRequest("gemini-2.5-pro", "sess-1", "greeting", 100, 20, true, "", time.Second)

	reports := ledger.SessionReports("sess-1")
	reports[0].PromptTokens = 999999

	assert.Equal(t, 100, ledger.SessionReports("sess-1")[0].PromptTokens)
}

func TestTeeFansOutToAllRecorders(t *testing.T) {
	first := &capturingRecorder{}
	second := NewUsageLedger()

	tee := Tee(first, second)
	tee.ObserveRequest("gemini-2.5-pro", "sess-1", "greeting", 100, 20, true, "", time.Second)

	require.Len(t, first.observations, 1)
	assert.Equal(t, "sess-1", first.observations[0].sessionID)
	assert.Equal(t, 120, second.SessionTotal("sess-1"))
}
