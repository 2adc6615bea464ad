package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckster/pkg/deck"
	"deckster/pkg/session"
	"deckster/pkg/workflow"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLoadLatest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sess := session.New()
	sess.UserInitialRequest = "a deck about tidal power"
	require.NoError(t, store.Save(ctx, sess))

	require.NoError(t, sess.Advance(workflow.StageAskClarifyingQuestions))
	sess.Questions = &deck.ClarifyingQuestions{Questions: []string{"Who is the audience?"}}
	require.NoError(t, store.Save(ctx, sess))

	restored, err := store.LoadLatest(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageAskClarifyingQuestions, restored.CurrentStage)
	require.NotNil(t, restored.Questions)
	assert.Equal(t, "a deck about tidal power", restored.UserInitialRequest)
}

func TestLoadLatestMissingSession(t *testing.T) {
	store := openStore(t)
	_, err := store.LoadLatest(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryOrdersOldestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sess := session.New()
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, sess.Advance(workflow.StageAskClarifyingQuestions))
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, sess.Advance(workflow.StageCreateConfirmationPlan))
	require.NoError(t, store.Save(ctx, sess))

	entries, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, workflow.StageGreeting.String(), entries[0].Stage)
	assert.Equal(t, workflow.StageCreateConfirmationPlan.String(), entries[2].Stage)
}

func TestSessionsAreIsolated(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, b := session.New(), session.New()
	a.UserInitialRequest = "topic A"
	b.UserInitialRequest = "topic B"
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))

	restored, err := store.LoadLatest(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "topic A", restored.UserInitialRequest)
}
