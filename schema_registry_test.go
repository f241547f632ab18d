package classifieds

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeDefinitionCheck(t *testing.T) {
	low, high := 10.0, 1.0
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(1, 0, 0)

	tests := []struct {
		name     string
		def      AttributeDefinition
		wantCode string
	}{
		{name: "valid string", def: AttributeDefinition{Key: "make", Name: "Markė", Type: AttributeTypeString}},
		{name: "valid enum", def: AttributeDefinition{Key: "fuel", Name: "Kuras", Type: AttributeTypeEnum, Options: json.RawMessage(`["Benzinas"]`)}},
		{name: "missing key", def: AttributeDefinition{Name: "x", Type: AttributeTypeString}, wantCode: ErrCodeInvalidField},
		{name: "missing name", def: AttributeDefinition{Key: "x", Type: AttributeTypeString}, wantCode: ErrCodeInvalidField},
		{name: "unknown type", def: AttributeDefinition{Key: "x", Name: "x", Type: "MONEY"}, wantCode: ErrCodeInvalidField},
		{name: "enum without options", def: AttributeDefinition{Key: "fuel", Name: "Kuras", Type: AttributeTypeEnum}, wantCode: ErrCodeInvalidEnumOptions},
		{name: "enum with empty options", def: AttributeDefinition{Key: "fuel", Name: "Kuras", Type: AttributeTypeEnum, Options: json.RawMessage(`[]`)}, wantCode: ErrCodeInvalidEnumOptions},
		{name: "enum options not a list", def: AttributeDefinition{Key: "fuel", Name: "Kuras", Type: AttributeTypeEnum, Options: json.RawMessage(`{"a":1}`)}, wantCode: ErrCodeInvalidEnumOptions},
		{name: "inverted numeric bounds", def: AttributeDefinition{Key: "year", Name: "Metai", Type: AttributeTypeInt, MinNumber: &low, MaxNumber: &high}, wantCode: ErrCodeInvalidField},
		{name: "numeric bounds on string ignored", def: AttributeDefinition{Key: "make", Name: "Markė", Type: AttributeTypeString, MinNumber: &low, MaxNumber: &high}},
		{name: "inverted date bounds", def: AttributeDefinition{Key: "reg", Name: "Registracija", Type: AttributeTypeDate, MinDate: &late, MaxDate: &early}, wantCode: ErrCodeInvalidField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Check()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ClassifiedsError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantCode, ce.Code)
		})
	}
}

func TestAttributeDefinitionNormalize(t *testing.T) {
	low := 1.0
	now := time.Now()
	def := AttributeDefinition{
		Key: "make", Name: "Markė", Type: AttributeTypeString,
		MinNumber: &low, MinDate: &now, Options: json.RawMessage(`["a"]`),
	}

	got := def.Normalize()

	assert.Nil(t, got.MinNumber)
	assert.Nil(t, got.MinDate)
	assert.Nil(t, got.Options)
	assert.NotNil(t, def.MinNumber, "receiver left untouched")
}

func TestEnumOptions(t *testing.T) {
	opts, ok := AttributeDefinition{Options: json.RawMessage(`["Benzinas","Dyzelinas"]`)}.EnumOptions()
	require.True(t, ok)
	assert.Equal(t, []string{"Benzinas", "Dyzelinas"}, opts)

	_, ok = AttributeDefinition{Options: json.RawMessage(`["Benzinas", 3]`)}.EnumOptions()
	assert.False(t, ok)
}

func TestSortDefinitions(t *testing.T) {
	defs := []AttributeDefinition{
		{Key: "mileage", Ordinal: 2},
		{Key: "year", Ordinal: 1},
		{Key: "color", Ordinal: 2},
	}

	SortDefinitions(defs)

	assert.Equal(t, "year", defs[0].Key)
	assert.Equal(t, "color", defs[1].Key)
	assert.Equal(t, "mileage", defs[2].Key)
}
