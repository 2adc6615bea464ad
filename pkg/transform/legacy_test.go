package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBulletLinesStripsMarkersAndShortLines(t *testing.T) {
	text := strings.Join([]string{
		"• Revenue grew twelve percent year over year",
		"- Churn held steady across all cohorts",
		"* ok", // under 10 chars after stripping, dropped
		"",
		"– Support load dropped after the self-serve launch",
	}, "\n")

	items := parseBulletLines(text, 5, 120)
	require.Len(t, items, 3)
	assert.Equal(t, "Revenue grew twelve percent year over year", items[0])
	assert.Equal(t, "Churn held steady across all cohorts", items[1])
	assert.Equal(t, "Support load dropped after the self-serve launch", items[2])
}

func TestParseBulletLinesCapsItemsAndLength(t *testing.T) {
	var lines []string
	for i := 0; i < 8; i++ {
		lines = append(lines, "- "+strings.Repeat("long content ", 15))
	}
	items := parseBulletLines(strings.Join(lines, "\n"), 5, 120)

	assert.Len(t, items, 5)
	for _, item := range items {
		assert.LessOrEqual(t, len(item), 120)
	}
}

func TestParseNumberedItemsColonSplit(t *testing.T) {
	text := "Discovery: interview the stakeholders\nBuild phase: ship the first vertical slice"
	items := parseNumberedItems(text, 5)

	require.Len(t, items, 2)
	assert.Equal(t, "Discovery", items[0].Title)
	assert.Equal(t, "interview the stakeholders", items[0].Description)
	assert.Equal(t, "Build phase", items[1].Title)
}

func TestParseNumberedItemsSplitsOnFirstColonOnly(t *testing.T) {
	items := parseNumberedItems("Deploy: use canary: then full rollout", 5)
	require.Len(t, items, 1)
	assert.Equal(t, "Deploy", items[0].Title)
	assert.Equal(t, "use canary: then full rollout", items[0].Description)
}

func TestParseNumberedItemsDefaultsToStepN(t *testing.T) {
	text := "gather all requirements first\nthen write the implementation"
	items := parseNumberedItems(text, 5)

	require.Len(t, items, 2)
	assert.Equal(t, "Step 1", items[0].Title)
	assert.Equal(t, "gather all requirements first", items[0].Description)
	assert.Equal(t, "Step 2", items[1].Title)
}

func TestParseNumberedItemsCapsTitleAndDescription(t *testing.T) {
	long := strings.Repeat("verylongword ", 30)
	items := parseNumberedItems(strings.Repeat("t", 60)+": "+long, 5)

	require.Len(t, items, 1)
	assert.LessOrEqual(t, len(items[0].Title), numberedTitleChars)
	assert.LessOrEqual(t, len(items[0].Description), numberedDescChars)
}

func TestExtractContentHint(t *testing.T) {
	hint := "**Goal:** set the scene **Content:** a skyline photo at dusk **Style:** muted tones"
	assert.Equal(t, "a skyline photo at dusk", extractContentHint(hint))

	assert.Equal(t, "plain hint text", extractContentHint("plain hint text"))
	assert.Equal(t, "", extractContentHint("  "))
}
