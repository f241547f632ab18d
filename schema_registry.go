package classifieds

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// AttributeSchemaStore provides the attribute schema of each category.
type AttributeSchemaStore interface {
	// CategoryExists reports whether the category id resolves.
	CategoryExists(ctx context.Context, categoryID uuid.UUID) (bool, error)
	// Definitions returns the category's definitions in schema order.
	Definitions(ctx context.Context, categoryID uuid.UUID) ([]AttributeDefinition, error)
}

// SchemaInvalidator is implemented by stores that cache schemas.
type SchemaInvalidator interface {
	Invalidate(categoryID uuid.UUID)
}

// EnumOptions decodes the option list. It returns false when the stored
// options are absent, not a JSON array, or empty.
func (d AttributeDefinition) EnumOptions() ([]string, bool) {
	if len(d.Options) == 0 {
		return nil, false
	}
	var raw []any
	if err := json.Unmarshal(d.Options, &raw); err != nil || len(raw) == 0 {
		return nil, false
	}
	options := make([]string, 0, len(raw))
	for _, o := range raw {
		s, ok := o.(string)
		if !ok {
			return nil, false
		}
		options = append(options, s)
	}
	return options, true
}

// Check enforces the definition invariants used by category administration.
func (d AttributeDefinition) Check() error {
	if d.Key == "" {
		return NewValidationError("key", "attribute key is required")
	}
	if d.Name == "" {
		return NewValidationError("name", "attribute name is required").WithDetail("key", d.Key)
	}
	if !d.Type.Valid() {
		return NewValidationError("type", "unknown attribute type").WithDetail("key", d.Key).WithDetail("type", d.Type)
	}
	if d.Type == AttributeTypeEnum {
		if _, ok := d.EnumOptions(); !ok {
			return NewInvalidEnumOptionsError(d.Key)
		}
	}
	if d.Type.Numeric() && d.MinNumber != nil && d.MaxNumber != nil && *d.MinNumber > *d.MaxNumber {
		return NewValidationError("min_number", "min_number exceeds max_number").WithDetail("key", d.Key)
	}
	if d.Type == AttributeTypeDate && d.MinDate != nil && d.MaxDate != nil && d.MinDate.After(*d.MaxDate) {
		return NewValidationError("min_date", "min_date is after max_date").WithDetail("key", d.Key)
	}
	return nil
}

// Normalize clears the bounds that do not apply to the definition's type.
func (d AttributeDefinition) Normalize() AttributeDefinition {
	if !d.Type.Numeric() {
		d.MinNumber, d.MaxNumber = nil, nil
	}
	if d.Type != AttributeTypeDate {
		d.MinDate, d.MaxDate = nil, nil
	}
	if d.Type != AttributeTypeEnum {
		d.Options = nil
	}
	return d
}

// SortDefinitions orders definitions by ordinal, then key.
func SortDefinitions(defs []AttributeDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Ordinal != defs[j].Ordinal {
			return defs[i].Ordinal < defs[j].Ordinal
		}
		return defs[i].Key < defs[j].Key
	})
}
