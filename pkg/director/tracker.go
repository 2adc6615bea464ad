package director

import (
	"sync"

	"deckster/pkg/workflow"
)

// StageTracker reports the active session and stage to the metrics
// middleware. The director updates it at turn boundaries; reads may come
// from any goroutine in the middleware chain.
type StageTracker struct {
	mu        sync.RWMutex
	sessionID string
	stage     workflow.Stage
}

// NewStageTracker creates an empty tracker.
func NewStageTracker() *StageTracker {
	return &StageTracker{stage: workflow.StageGreeting}
}

// Observe records the session and stage currently being processed.
func (t *StageTracker) Observe(sessionID string, stage workflow.Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = sessionID
	t.stage = stage
}

// GetCurrentStage implements metrics.StageProvider.
func (t *StageTracker) GetCurrentStage() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stage.String()
}

// GetSessionID implements metrics.StageProvider.
func (t *StageTracker) GetSessionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}
