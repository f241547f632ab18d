package classifieds

import (
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

const jsonSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// CategoryJSONSchema describes the attribute object accepted for listings of
// a category, for API clients that build forms from it. Optional attributes
// also accept null.
func CategoryJSONSchema(category Category, definitions []AttributeDefinition) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Schema:               jsonSchemaDialect,
		Title:                category.Name,
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(definitions)),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	if category.Description != nil {
		schema.Description = *category.Description
	}
	schema.Comment = fmt.Sprintf("category %s", category.ID)

	for _, def := range definitions {
		prop := attributeJSONSchema(def)
		if def.Required {
			schema.Required = append(schema.Required, def.Key)
		} else if prop.Type != "" {
			prop.Types = []string{prop.Type, "null"}
			prop.Type = ""
			if len(prop.Enum) > 0 {
				prop.Enum = append(prop.Enum, nil)
			}
		}
		schema.Properties[def.Key] = prop
		schema.PropertyOrder = append(schema.PropertyOrder, def.Key)
	}
	return schema
}

func attributeJSONSchema(def AttributeDefinition) *jsonschema.Schema {
	prop := &jsonschema.Schema{Title: def.Name}
	switch def.Type {
	case AttributeTypeInt:
		prop.Type = "integer"
		prop.Minimum, prop.Maximum = def.MinNumber, def.MaxNumber
	case AttributeTypeFloat:
		prop.Type = "number"
		prop.Minimum, prop.Maximum = def.MinNumber, def.MaxNumber
	case AttributeTypeBoolean:
		prop.Type = "boolean"
	case AttributeTypeDate:
		prop.Type = "string"
		prop.Format = "date-time"
		if def.MinDate != nil || def.MaxDate != nil {
			prop.Extra = map[string]any{}
			if def.MinDate != nil {
				prop.Extra["x-min-date"] = def.MinDate.Format(time.RFC3339)
			}
			if def.MaxDate != nil {
				prop.Extra["x-max-date"] = def.MaxDate.Format(time.RFC3339)
			}
		}
	case AttributeTypeEnum:
		prop.Type = "string"
		if options, ok := def.EnumOptions(); ok {
			for _, o := range options {
				prop.Enum = append(prop.Enum, o)
			}
		}
	case AttributeTypeString:
		prop.Type = "string"
	}
	return prop
}
