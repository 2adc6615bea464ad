package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckster.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultStageModel, cfg.Models.Stages)
	assert.Equal(t, DefaultIntentModel, cfg.Models.Intent)
	assert.Equal(t, 30, cfg.Services.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Content.MaxConcurrentSlides)
}

func TestPerStageModelsInheritStagesDefault(t *testing.T) {
	path := writeConfig(t, `{"models": {"stages": "gemini-2.5-pro", "strawman": "claude-sonnet-4-20250514"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Models.Greeting)
	assert.Equal(t, "gemini-2.5-pro", cfg.Models.Questions)
	assert.Equal(t, "gemini-2.5-pro", cfg.Models.Plan)
	assert.Equal(t, "gemini-2.5-pro", cfg.Models.Refine)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Models.Strawman, "explicit per-stage model wins")
	assert.Empty(t, cfg.Models.Layout, "layout model stays opt-in")
}

func TestLoadConfigEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DECK_URL", "http://localhost:8080")

	path := writeConfig(t, `{"services": {"deck_builder_url": "${TEST_DECK_URL}"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Services.DeckBuilderURL)
}

func TestLoadConfigUnknownEnvVarLeftIntact(t *testing.T) {
	path := writeConfig(t, `{"models": {"stages": "${DECKSTER_TEST_NO_SUCH_VAR}"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Unresolved placeholders pass through unchanged.
	assert.Equal(t, "${DECKSTER_TEST_NO_SUCH_VAR}", cfg.Models.Stages)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("DECKSTER_MODELS_STAGES", "claude-sonnet-4-20250514")
	t.Setenv("DECKSTER_CONTENT_MAX_CONCURRENT_SLIDES", "5")

	path := writeConfig(t, `{"models": {"stages": "gemini-2.5-pro"}, "content": {"max_concurrent_slides": 2}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Models.Stages)
	assert.Equal(t, 5, cfg.Content.MaxConcurrentSlides)
}

func TestValidateRejectsBadServiceURL(t *testing.T) {
	path := writeConfig(t, `{"services": {"text_service_url": "localhost:9090"}}`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http://")
}

func TestMetricsAddrDefaultOnlyWhenEnabled(t *testing.T) {
	path := writeConfig(t, `{"metrics": {"enabled": true}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9105", cfg.Metrics.Addr)

	path = writeConfig(t, `{}`)
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Metrics.Addr)
}
