package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
)

// toAttributeRow places a validated value into the column matching its
// definition type.
func toAttributeRow(listingID uuid.UUID, attr classifieds.ValidatedAttribute) (attributeRow, error) {
	row := attributeRow{ListingID: listingID, AttributeID: attr.Definition.ID}
	v := attr.Value

	switch attr.Definition.Type {
	case classifieds.AttributeTypeInt, classifieds.AttributeTypeFloat:
		n, ok := v.Number()
		if !ok {
			return row, fmt.Errorf("attribute %s: expected number, got %s", attr.Definition.Key, v.Kind())
		}
		row.ValueNumeric = &n
	case classifieds.AttributeTypeBoolean:
		b, ok := v.Bool()
		if !ok {
			return row, fmt.Errorf("attribute %s: expected bool, got %s", attr.Definition.Key, v.Kind())
		}
		row.ValueBool = &b
	case classifieds.AttributeTypeDate:
		t, ok := v.Date()
		if !ok {
			return row, fmt.Errorf("attribute %s: expected date, got %s", attr.Definition.Key, v.Kind())
		}
		row.ValueDate = &t
	case classifieds.AttributeTypeJSON:
		j, ok := v.JSON()
		if !ok {
			return row, fmt.Errorf("attribute %s: expected json, got %s", attr.Definition.Key, v.Kind())
		}
		row.ValueJSON = j
	default:
		s := v.String()
		row.ValueText = &s
	}
	return row, nil
}

func toAttributeRows(listingID uuid.UUID, validated classifieds.ValidatedAttributes) ([]attributeRow, error) {
	rows := make([]attributeRow, 0, len(validated))
	for _, attr := range validated {
		row, err := toAttributeRow(listingID, attr)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// fromAttributeRow reads a stored row back as the definition's current
// type. Rows written under an older type that no longer fits are reported
// as absent.
func fromAttributeRow(def classifieds.AttributeDefinition, row attributeRow) (classifieds.Value, bool) {
	switch def.Type {
	case classifieds.AttributeTypeInt:
		if row.ValueNumeric == nil {
			return classifieds.Value{}, false
		}
		return classifieds.IntValue(int64(math.Round(*row.ValueNumeric))), true
	case classifieds.AttributeTypeFloat:
		if row.ValueNumeric == nil {
			return classifieds.Value{}, false
		}
		return classifieds.FloatValue(*row.ValueNumeric), true
	case classifieds.AttributeTypeBoolean:
		if row.ValueBool == nil {
			return classifieds.Value{}, false
		}
		return classifieds.BoolValue(*row.ValueBool), true
	case classifieds.AttributeTypeDate:
		if row.ValueDate == nil {
			return classifieds.Value{}, false
		}
		return classifieds.DateValue(*row.ValueDate), true
	case classifieds.AttributeTypeJSON:
		if row.ValueJSON == nil {
			return classifieds.Value{}, false
		}
		return classifieds.JSONValue(json.RawMessage(row.ValueJSON)), true
	default:
		if row.ValueText != nil {
			return classifieds.StringValue(*row.ValueText), true
		}
		return anyColumnAsText(row)
	}
}

// anyColumnAsText keeps values readable after a definition changed to a
// text type.
func anyColumnAsText(row attributeRow) (classifieds.Value, bool) {
	switch {
	case row.ValueNumeric != nil:
		return classifieds.StringValue(classifieds.FloatValue(*row.ValueNumeric).String()), true
	case row.ValueBool != nil:
		return classifieds.StringValue(classifieds.BoolValue(*row.ValueBool).String()), true
	case row.ValueDate != nil:
		return classifieds.StringValue(row.ValueDate.UTC().Format(time.RFC3339)), true
	case row.ValueJSON != nil:
		return classifieds.StringValue(string(row.ValueJSON)), true
	}
	return classifieds.Value{}, false
}
