package layouts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog()
	require.NoError(t, err)
	return c
}

func TestCatalogLoadsAllEntries(t *testing.T) {
	c := mustCatalog(t)
	assert.Len(t, c.IDs(), catalogSize)

	for _, id := range c.IDs() {
		schema, err := c.SchemaFor(id)
		require.NoError(t, err)
		assert.NotEmpty(t, schema.Name, "layout %s", id)
		assert.NotEmpty(t, schema.BestUseCase, "layout %s", id)
		assert.NotEmpty(t, schema.ContentSchema, "layout %s", id)
		for fieldName, field := range schema.ContentSchema {
			assert.NotEmpty(t, field.Type, "layout %s field %s", id, fieldName)
		}
	}
}

func TestSchemaForUnknownLayout(t *testing.T) {
	c := mustCatalog(t)
	_, err := c.SchemaFor("L99")

	var unknown *ErrUnknownLayout
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "L99", unknown.LayoutID)
}

func TestKeywordSearch(t *testing.T) {
	c := mustCatalog(t)

	assert.Contains(t, c.KeywordSearch([]string{"quote"}), "L07")
	assert.Contains(t, c.KeywordSearch([]string{"comparison"}), "L20")
	assert.Contains(t, c.KeywordSearch([]string{"kpi"}), "L19")
	assert.Empty(t, c.KeywordSearch([]string{"zzzz-nomatch"}))
	assert.Empty(t, c.KeywordSearch(nil))
}

func TestFormatForPromptExcludes(t *testing.T) {
	c := mustCatalog(t)
	rendered := c.FormatForPrompt([]string{LayoutTitle, LayoutDivider, LayoutClosing})

	assert.NotContains(t, rendered, "- L01")
	assert.NotContains(t, rendered, "- L02")
	assert.NotContains(t, rendered, "- L03")
	assert.Contains(t, rendered, "- L05")
	assert.Contains(t, rendered, "- L24")
}

func TestValidateRequiredFields(t *testing.T) {
	c := mustCatalog(t)

	ok, errs := c.Validate("L05", map[string]any{
		"slide_title": "Quarterly Review",
		"bullets":     []any{"Revenue up 12%", "Churn stable"},
	})
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, errs = c.Validate("L05", map[string]any{"slide_title": "No bullets"})
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "bullets")
}

func TestValidateTypeAndCeilingViolations(t *testing.T) {
	c := mustCatalog(t)

	ok, errs := c.Validate("L05", map[string]any{
		"slide_title": strings.Repeat("x", 100), // over 80
		"bullets":     []any{"a", "b", "c", "d", "e", "f"},
	})
	assert.False(t, ok)
	assert.Len(t, errs, 2)

	ok, errs = c.Validate("L05", map[string]any{
		"slide_title": 42,
		"bullets":     "not an array",
	})
	assert.False(t, ok)
	assert.Len(t, errs, 2)
}

func TestValidateArrayOfObjects(t *testing.T) {
	c := mustCatalog(t)

	ok, errs := c.Validate("L06", map[string]any{
		"slide_title": "Rollout Plan",
		"items": []any{
			map[string]any{"title": "Pilot", "description": "Run with one team"},
			map[string]any{"title": "Expand", "description": "All of engineering"},
		},
	})
	assert.True(t, ok, "errors: %v", errs)

	ok, errs = c.Validate("L06", map[string]any{
		"slide_title": "Rollout Plan",
		"items": []any{
			map[string]any{"title": strings.Repeat("x", 50)},
		},
	})
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "items[0].title")
}

func TestValidateAcceptsStringSlices(t *testing.T) {
	c := mustCatalog(t)
	ok, errs := c.Validate("L05", map[string]any{
		"slide_title": "Takeaways",
		"bullets":     []string{"One", "Two"},
	})
	assert.True(t, ok, "errors: %v", errs)
}
