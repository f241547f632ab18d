package classifieds

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValidatedAttribute is a submitted value converted to its definition's type.
type ValidatedAttribute struct {
	Definition AttributeDefinition
	Value      Value
}

// ValidatedAttributes keeps submission order.
type ValidatedAttributes []ValidatedAttribute

// ValidateAttributes checks a submitted attribute map against a category
// schema and converts every non-null value into a typed Value.
//
// Checks run in a fixed order and stop at the first failure: required keys
// (in schema order), unknown keys, then type and bounds per submitted key
// (in submission order). A null value for an optional key is accepted and
// yields no entry.
func ValidateAttributes(schema []AttributeDefinition, submitted Attributes) (ValidatedAttributes, error) {
	byKey := make(map[string]AttributeDefinition, len(schema))
	for _, def := range schema {
		byKey[def.Key] = def
	}

	for _, def := range schema {
		if !def.Required {
			continue
		}
		if v, ok := submitted.Get(def.Key); !ok || v == nil {
			return nil, NewMissingRequiredAttributeError(def.Key)
		}
	}

	for _, entry := range submitted {
		if _, ok := byKey[entry.Key]; !ok {
			return nil, NewUnknownAttributeError(entry.Key)
		}
	}

	validated := make(ValidatedAttributes, 0, len(submitted))
	for _, entry := range submitted {
		if entry.Value == nil {
			continue
		}
		def := byKey[entry.Key]
		value, err := convertAttributeValue(def, entry.Value)
		if err != nil {
			return nil, err
		}
		if err := checkAttributeBounds(def, value); err != nil {
			return nil, err
		}
		validated = append(validated, ValidatedAttribute{Definition: def, Value: value})
	}
	return validated, nil
}

// maxExactInteger bounds INT values: numbers are stored as double
// precision, which represents every integer up to 2^53 exactly. Within
// that range bound checks on float64 are exact too.
const maxExactInteger = 1 << 53

func convertAttributeValue(def AttributeDefinition, raw any) (Value, error) {
	switch def.Type {
	case AttributeTypeInt:
		n, ok := integerOf(raw)
		if !ok {
			return Value{}, NewTypeMismatchError(def.Key, def.Type, raw)
		}
		if n > maxExactInteger {
			return Value{}, NewAboveMaximumError(def.Key, maxExactInteger)
		}
		if n < -maxExactInteger {
			return Value{}, NewBelowMinimumError(def.Key, -maxExactInteger)
		}
		return IntValue(n), nil
	case AttributeTypeFloat:
		f, ok := numberOf(raw)
		if !ok {
			return Value{}, NewTypeMismatchError(def.Key, def.Type, raw)
		}
		return FloatValue(f), nil
	case AttributeTypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, NewTypeMismatchError(def.Key, def.Type, raw)
		}
		return BoolValue(b), nil
	case AttributeTypeDate:
		switch v := raw.(type) {
		case time.Time:
			return DateValue(v), nil
		case string:
			t, err := ParseDate(v)
			if err != nil {
				return Value{}, NewTypeMismatchError(def.Key, def.Type, raw).WithCause(err)
			}
			return DateValue(t), nil
		}
		return Value{}, NewTypeMismatchError(def.Key, def.Type, raw)
	case AttributeTypeEnum:
		options, ok := def.EnumOptions()
		if !ok {
			return Value{}, NewInvalidEnumOptionsError(def.Key)
		}
		s, isString := raw.(string)
		if isString {
			for _, opt := range options {
				if opt == s {
					return StringValue(s), nil
				}
			}
		}
		return Value{}, NewTypeMismatchError(def.Key, def.Type, raw).WithDetail("options", options)
	case AttributeTypeJSON:
		data, err := json.Marshal(raw)
		if err != nil {
			return Value{}, NewTypeMismatchError(def.Key, def.Type, raw).WithCause(err)
		}
		return JSONValue(data), nil
	default:
		return StringValue(textOf(raw)), nil
	}
}

func checkAttributeBounds(def AttributeDefinition, value Value) error {
	switch def.Type {
	case AttributeTypeInt, AttributeTypeFloat:
		n, _ := value.Number()
		if def.MinNumber != nil && n < *def.MinNumber {
			return NewBelowMinimumError(def.Key, *def.MinNumber)
		}
		if def.MaxNumber != nil && n > *def.MaxNumber {
			return NewAboveMaximumError(def.Key, *def.MaxNumber)
		}
	case AttributeTypeDate:
		t, _ := value.Date()
		if def.MinDate != nil && t.Before(*def.MinDate) {
			return NewBeforeMinDateError(def.Key, *def.MinDate)
		}
		if def.MaxDate != nil && t.After(*def.MaxDate) {
			return NewAfterMaxDateError(def.Key, *def.MaxDate)
		}
	}
	return nil
}

// numberOf accepts JSON numbers and native Go numerics. Strings are not numbers.
func numberOf(raw any) (float64, bool) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case float64:
		return v, !math.IsInf(v, 0) && !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// integerOf accepts numbers without a fractional part, so 2020 and 2020.0
// are both integers.
func integerOf(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
	}
	f, ok := numberOf(raw)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func textOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(data)
}
