// Package layouts holds the static catalog of presentation layout schemas
// and the per-slide layout selection logic.
package layouts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/layouts.yaml
var layoutsFS embed.FS

// catalogSize is the number of entries the embedded catalog must contain.
const catalogSize = 24

// Field type identifiers used in layout content schemas.
const (
	FieldTypeString         = "string"
	FieldTypeArray          = "array"
	FieldTypeArrayOfObjects = "array_of_objects"
)

// ErrUnknownLayout is returned when a layout ID is not in the catalog.
type ErrUnknownLayout struct {
	LayoutID string
}

func (e *ErrUnknownLayout) Error() string {
	return fmt.Sprintf("unknown layout: %s", e.LayoutID)
}

// FieldSchema describes one field of a layout's content schema.
type FieldSchema struct {
	Type            string                 `yaml:"type"`
	Required        bool                   `yaml:"required"`
	MaxChars        int                    `yaml:"max_chars"`
	MaxItems        int                    `yaml:"max_items"`
	MaxCharsPerItem int                    `yaml:"max_chars_per_item"`
	FormatType      string                 `yaml:"format_type"`
	FormatOwner     string                 `yaml:"format_owner"`
	ItemSchema      map[string]FieldSchema `yaml:"item_schema"`
}

// LayoutSchema is one catalog entry: identity, selection metadata, and the
// content schema the rendering service expects.
type LayoutSchema struct {
	ID            string                 `yaml:"id"`
	Name          string                 `yaml:"name"`
	Subtype       string                 `yaml:"subtype"`
	BestUseCase   string                 `yaml:"best_use_case"`
	Keywords      []string               `yaml:"keywords"`
	ContentSchema map[string]FieldSchema `yaml:"content_schema"`
}

// FieldNames returns the content schema's field names in sorted order.
func (s *LayoutSchema) FieldNames() []string {
	names := make([]string, 0, len(s.ContentSchema))
	for name := range s.ContentSchema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LayoutSummary is the selection-relevant slice of a catalog entry.
type LayoutSummary struct {
	ID          string
	Name        string
	BestUseCase string
	Keywords    []string
}

// Catalog is the immutable, loaded layout registry. Construct once at
// startup with NewCatalog and inject it where needed.
type Catalog struct {
	byID  map[string]*LayoutSchema
	order []string
}

type catalogFile struct {
	Layouts []LayoutSchema `yaml:"layouts"`
}

// NewCatalog loads the embedded catalog and enforces the completeness
// invariant: exactly 24 entries, each with a non-empty content schema, and
// every field declaring a type. Any violation fails startup.
func NewCatalog() (*Catalog, error) {
	data, err := layoutsFS.ReadFile("data/layouts.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded layout catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse layout catalog: %w", err)
	}

	if len(file.Layouts) != catalogSize {
		return nil, fmt.Errorf("layout catalog must contain exactly %d entries, found %d", catalogSize, len(file.Layouts))
	}

	c := &Catalog{byID: make(map[string]*LayoutSchema, len(file.Layouts))}
	for i := range file.Layouts {
		layout := &file.Layouts[i]

		if layout.ID == "" {
			return nil, fmt.Errorf("layout at index %d has no id", i)
		}
		if _, dup := c.byID[layout.ID]; dup {
			return nil, fmt.Errorf("duplicate layout id: %s", layout.ID)
		}
		if len(layout.ContentSchema) == 0 {
			return nil, fmt.Errorf("layout %s has an empty content schema", layout.ID)
		}
		for fieldName, field := range layout.ContentSchema {
			if err := validateFieldSchema(layout.ID, fieldName, &field); err != nil {
				return nil, err
			}
		}

		c.byID[layout.ID] = layout
		c.order = append(c.order, layout.ID)
	}

	return c, nil
}

func validateFieldSchema(layoutID, fieldName string, field *FieldSchema) error {
	switch field.Type {
	case FieldTypeString:
	case FieldTypeArray:
	case FieldTypeArrayOfObjects:
		if len(field.ItemSchema) == 0 {
			return fmt.Errorf("layout %s field %s is array_of_objects but declares no item_schema", layoutID, fieldName)
		}
		for itemField, itemSchema := range field.ItemSchema {
			if itemSchema.Type == "" {
				return fmt.Errorf("layout %s field %s.%s declares no type", layoutID, fieldName, itemField)
			}
		}
	case "":
		return fmt.Errorf("layout %s field %s declares no type", layoutID, fieldName)
	default:
		return fmt.Errorf("layout %s field %s has unsupported type %q", layoutID, fieldName, field.Type)
	}
	return nil
}

// SchemaFor returns the schema for a layout ID.
func (c *Catalog) SchemaFor(layoutID string) (*LayoutSchema, error) {
	schema, ok := c.byID[layoutID]
	if !ok {
		return nil, &ErrUnknownLayout{LayoutID: layoutID}
	}
	return schema, nil
}

// Has reports whether the catalog contains the layout ID.
func (c *Catalog) Has(layoutID string) bool {
	_, ok := c.byID[layoutID]
	return ok
}

// IDs returns all layout IDs in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// AllWithUseCases returns selection summaries for every layout in catalog order.
func (c *Catalog) AllWithUseCases() []LayoutSummary {
	out := make([]LayoutSummary, 0, len(c.order))
	for _, id := range c.order {
		layout := c.byID[id]
		out = append(out, LayoutSummary{
			ID:          layout.ID,
			Name:        layout.Name,
			BestUseCase: layout.BestUseCase,
			Keywords:    layout.Keywords,
		})
	}
	return out
}

// KeywordSearch returns the IDs of layouts whose keywords match any of the
// given terms, in catalog order. Matching is case-insensitive.
func (c *Catalog) KeywordSearch(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}

	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, strings.ToLower(strings.TrimSpace(kw)))
	}

	var matches []string
	for _, id := range c.order {
		layout := c.byID[id]
		for _, layoutKw := range layout.Keywords {
			if matchesAny(strings.ToLower(layoutKw), terms) {
				matches = append(matches, id)
				break
			}
		}
	}
	return matches
}

func matchesAny(keyword string, terms []string) bool {
	for _, term := range terms {
		if term != "" && (keyword == term || strings.Contains(keyword, term) || strings.Contains(term, keyword)) {
			return true
		}
	}
	return false
}

// FormatForPrompt renders the catalog as a bullet list of
// id / name / best-use-case / keywords for embedding in a selection prompt.
// IDs listed in exclude are omitted.
func (c *Catalog) FormatForPrompt(exclude []string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var b strings.Builder
	for _, id := range c.order {
		if excluded[id] {
			continue
		}
		layout := c.byID[id]
		fmt.Fprintf(&b, "- %s (%s): %s [keywords: %s]\n",
			layout.ID, layout.Name, strings.TrimSpace(layout.BestUseCase), strings.Join(layout.Keywords, ", "))
	}
	return b.String()
}

// Validate checks content against a layout's schema: required fields
// present, types correct, and length/item-count ceilings respected.
// Returns ok plus a list of human-readable violations.
func (c *Catalog) Validate(layoutID string, content map[string]any) (bool, []string) {
	schema, err := c.SchemaFor(layoutID)
	if err != nil {
		return false, []string{err.Error()}
	}

	var errs []string
	for _, fieldName := range schema.FieldNames() {
		field := schema.ContentSchema[fieldName]
		value, present := content[fieldName]

		if !present {
			if field.Required {
				errs = append(errs, fmt.Sprintf("missing required field %q", fieldName))
			}
			continue
		}

		errs = append(errs, validateFieldValue(fieldName, &field, value)...)
	}

	return len(errs) == 0, errs
}

func validateFieldValue(fieldName string, field *FieldSchema, value any) []string {
	var errs []string

	switch field.Type {
	case FieldTypeString:
		s, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("field %q must be a string", fieldName)}
		}
		if field.MaxChars > 0 && len(s) > field.MaxChars {
			errs = append(errs, fmt.Sprintf("field %q exceeds %d characters (%d)", fieldName, field.MaxChars, len(s)))
		}

	case FieldTypeArray:
		items, ok := toAnySlice(value)
		if !ok {
			return []string{fmt.Sprintf("field %q must be an array", fieldName)}
		}
		if field.MaxItems > 0 && len(items) > field.MaxItems {
			errs = append(errs, fmt.Sprintf("field %q exceeds %d items (%d)", fieldName, field.MaxItems, len(items)))
		}
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				errs = append(errs, fmt.Sprintf("field %q item %d must be a string", fieldName, i))
				continue
			}
			if field.MaxCharsPerItem > 0 && len(s) > field.MaxCharsPerItem {
				errs = append(errs, fmt.Sprintf("field %q item %d exceeds %d characters (%d)", fieldName, i, field.MaxCharsPerItem, len(s)))
			}
		}

	case FieldTypeArrayOfObjects:
		items, ok := toAnySlice(value)
		if !ok {
			return []string{fmt.Sprintf("field %q must be an array of objects", fieldName)}
		}
		if field.MaxItems > 0 && len(items) > field.MaxItems {
			errs = append(errs, fmt.Sprintf("field %q exceeds %d items (%d)", fieldName, field.MaxItems, len(items)))
		}
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				errs = append(errs, fmt.Sprintf("field %q item %d must be an object", fieldName, i))
				continue
			}
			for itemField, itemSchema := range field.ItemSchema {
				itemValue, present := obj[itemField]
				if !present {
					continue
				}
				schemaCopy := itemSchema
				errs = append(errs, validateFieldValue(fmt.Sprintf("%s[%d].%s", fieldName, i, itemField), &schemaCopy, itemValue)...)
			}
		}
	}

	return errs
}

func toAnySlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}
