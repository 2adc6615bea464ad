package metrics

import (
	"sync"
	"time"

	"deckster/pkg/tokens"
)

// UsageLedger is a Recorder that keeps per-session token usage reports in
// memory, one report per LLM request. It backs the interactive usage
// summary without requiring a Prometheus server.
type UsageLedger struct {
	mu      sync.Mutex
	reports map[string][]tokens.UsageReport
}

// NewUsageLedger creates an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{reports: make(map[string][]tokens.UsageReport)}
}

// ObserveRequest implements Recorder. Failed requests are recorded too;
// their prompt tokens were still spent.
func (l *UsageLedger) ObserveRequest(
	model, sessionID, stage string,
	promptTokens, completionTokens int,
	_ bool,
	_ string,
	_ time.Duration,
) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports[sessionID] = append(l.reports[sessionID], tokens.UsageReport{
		Stage:            stage,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	})
}

// SessionReports returns a copy of the reports recorded for a session, in
// request order.
func (l *UsageLedger) SessionReports(sessionID string) []tokens.UsageReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	reports := l.reports[sessionID]
	out := make([]tokens.UsageReport, len(reports))
	copy(out, reports)
	return out
}

// SessionTotal returns the combined token count across all of a session's
// requests.
func (l *UsageLedger) SessionTotal(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, r := range l.reports[sessionID] {
		total += r.Total()
	}
	return total
}

// Tee fans ObserveRequest out to several recorders.
func Tee(recorders ...Recorder) Recorder {
	return teeRecorder(recorders)
}

type teeRecorder []Recorder

func (t teeRecorder) ObserveRequest(
	model, sessionID, stage string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	for _, r := range t {
		r.ObserveRequest(model, sessionID, stage, promptTokens, completionTokens, success, errorType, duration)
	}
}
