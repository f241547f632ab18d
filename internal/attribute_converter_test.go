package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAttributeRowPicksColumnByType(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		typ   classifieds.AttributeType
		value classifieds.Value
		check func(t *testing.T, row attributeRow)
	}{
		{
			name:  "int goes to numeric",
			typ:   classifieds.AttributeTypeInt,
			value: classifieds.IntValue(2018),
			check: func(t *testing.T, row attributeRow) {
				require.NotNil(t, row.ValueNumeric)
				assert.Equal(t, 2018.0, *row.ValueNumeric)
				assert.Nil(t, row.ValueText)
			},
		},
		{
			name:  "float goes to numeric",
			typ:   classifieds.AttributeTypeFloat,
			value: classifieds.FloatValue(1.9),
			check: func(t *testing.T, row attributeRow) {
				require.NotNil(t, row.ValueNumeric)
				assert.Equal(t, 1.9, *row.ValueNumeric)
			},
		},
		{
			name:  "boolean",
			typ:   classifieds.AttributeTypeBoolean,
			value: classifieds.BoolValue(true),
			check: func(t *testing.T, row attributeRow) {
				require.NotNil(t, row.ValueBool)
				assert.True(t, *row.ValueBool)
			},
		},
		{
			name:  "date",
			typ:   classifieds.AttributeTypeDate,
			value: classifieds.DateValue(day),
			check: func(t *testing.T, row attributeRow) {
				require.NotNil(t, row.ValueDate)
				assert.True(t, day.Equal(*row.ValueDate))
			},
		},
		{
			name:  "enum goes to text",
			typ:   classifieds.AttributeTypeEnum,
			value: classifieds.StringValue("diesel"),
			check: func(t *testing.T, row attributeRow) {
				require.NotNil(t, row.ValueText)
				assert.Equal(t, "diesel", *row.ValueText)
			},
		},
		{
			name:  "json",
			typ:   classifieds.AttributeTypeJSON,
			value: classifieds.JSONValue(json.RawMessage(`{"abs":true}`)),
			check: func(t *testing.T, row attributeRow) {
				assert.JSONEq(t, `{"abs":true}`, string(row.ValueJSON))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := classifieds.AttributeDefinition{ID: uuid.New(), Key: "k", Type: tt.typ}
			row, err := toAttributeRow(testListingID, classifieds.ValidatedAttribute{Definition: def, Value: tt.value})
			require.NoError(t, err)
			assert.Equal(t, testListingID, row.ListingID)
			assert.Equal(t, def.ID, row.AttributeID)
			tt.check(t, row)
		})
	}
}

func TestToAttributeRowRejectsKindMismatch(t *testing.T) {
	def := classifieds.AttributeDefinition{ID: uuid.New(), Key: "year", Type: classifieds.AttributeTypeInt}
	_, err := toAttributeRow(testListingID, classifieds.ValidatedAttribute{Definition: def, Value: classifieds.StringValue("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year")
}

func TestFromAttributeRowRoundTripsEveryType(t *testing.T) {
	day := time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)
	values := map[classifieds.AttributeType]classifieds.Value{
		classifieds.AttributeTypeInt:     classifieds.IntValue(150000),
		classifieds.AttributeTypeFloat:   classifieds.FloatValue(2.5),
		classifieds.AttributeTypeBoolean: classifieds.BoolValue(false),
		classifieds.AttributeTypeDate:    classifieds.DateValue(day),
		classifieds.AttributeTypeString:  classifieds.StringValue("Audi"),
		classifieds.AttributeTypeEnum:    classifieds.StringValue("manual"),
		classifieds.AttributeTypeJSON:    classifieds.JSONValue(json.RawMessage(`[1,2]`)),
	}

	for typ, value := range values {
		t.Run(string(typ), func(t *testing.T) {
			def := classifieds.AttributeDefinition{ID: uuid.New(), Key: "k", Type: typ}
			row, err := toAttributeRow(testListingID, classifieds.ValidatedAttribute{Definition: def, Value: value})
			require.NoError(t, err)

			got, ok := fromAttributeRow(def, row)
			require.True(t, ok)
			assert.Equal(t, value.Interface(), got.Interface())
		})
	}
}

func TestFromAttributeRowAfterTypeChange(t *testing.T) {
	numeric := attributeRow{ValueNumeric: ptr(1.5)}

	t.Run("numeric read as int rounds", func(t *testing.T) {
		v, ok := fromAttributeRow(classifieds.AttributeDefinition{Type: classifieds.AttributeTypeInt}, numeric)
		require.True(t, ok)
		assert.Equal(t, int64(2), v.Interface())
	})
	t.Run("numeric read as text", func(t *testing.T) {
		v, ok := fromAttributeRow(classifieds.AttributeDefinition{Type: classifieds.AttributeTypeString}, numeric)
		require.True(t, ok)
		assert.Equal(t, "1.5", v.Interface())
	})
	t.Run("text read as bool is absent", func(t *testing.T) {
		_, ok := fromAttributeRow(classifieds.AttributeDefinition{Type: classifieds.AttributeTypeBoolean}, attributeRow{ValueText: ptr("yes")})
		assert.False(t, ok)
	})
	t.Run("empty row is absent", func(t *testing.T) {
		_, ok := fromAttributeRow(classifieds.AttributeDefinition{Type: classifieds.AttributeTypeString}, attributeRow{})
		assert.False(t, ok)
	})
}
