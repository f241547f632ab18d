package classifieds

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind is the variant held by a Value.
type ValueKind uint8

const (
	ValueKindNone ValueKind = iota
	ValueKindInt
	ValueKindFloat
	ValueKindBool
	ValueKindDate
	ValueKindString
	ValueKindJSON
)

func (k ValueKind) String() string {
	switch k {
	case ValueKindInt:
		return "int"
	case ValueKindFloat:
		return "float"
	case ValueKindBool:
		return "bool"
	case ValueKindDate:
		return "date"
	case ValueKindString:
		return "string"
	case ValueKindJSON:
		return "json"
	default:
		return "none"
	}
}

// Value is a typed attribute value. Exactly one variant is populated,
// selected by Kind.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	b    bool
	t    time.Time
	s    string
	j    json.RawMessage
}

func IntValue(v int64) Value            { return Value{kind: ValueKindInt, i: v} }
func FloatValue(v float64) Value        { return Value{kind: ValueKindFloat, f: v} }
func BoolValue(v bool) Value            { return Value{kind: ValueKindBool, b: v} }
func DateValue(v time.Time) Value       { return Value{kind: ValueKindDate, t: v.UTC()} }
func StringValue(v string) Value        { return Value{kind: ValueKindString, s: v} }
func JSONValue(v json.RawMessage) Value { return Value{kind: ValueKindJSON, j: v} }

func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether no variant is set.
func (v Value) IsZero() bool { return v.kind == ValueKindNone }

func (v Value) Int() (int64, bool)            { return v.i, v.kind == ValueKindInt }
func (v Value) Float() (float64, bool)        { return v.f, v.kind == ValueKindFloat }
func (v Value) Bool() (bool, bool)            { return v.b, v.kind == ValueKindBool }
func (v Value) Date() (time.Time, bool)       { return v.t, v.kind == ValueKindDate }
func (v Value) Str() (string, bool)           { return v.s, v.kind == ValueKindString }
func (v Value) JSON() (json.RawMessage, bool) { return v.j, v.kind == ValueKindJSON }

// Number returns the value as float64 for the numeric variants.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case ValueKindInt:
		return float64(v.i), true
	case ValueKindFloat:
		return v.f, true
	}
	return 0, false
}

// Interface returns the plain Go representation used by read views.
func (v Value) Interface() any {
	switch v.kind {
	case ValueKindInt:
		return v.i
	case ValueKindFloat:
		return v.f
	case ValueKindBool:
		return v.b
	case ValueKindDate:
		return v.t.Format(time.RFC3339)
	case ValueKindString:
		return v.s
	case ValueKindJSON:
		return v.j
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == ValueKindJSON {
		if len(v.j) == 0 {
			return []byte("null"), nil
		}
		return v.j, nil
	}
	return json.Marshal(v.Interface())
}

func (v Value) String() string {
	switch v.kind {
	case ValueKindInt:
		return strconv.FormatInt(v.i, 10)
	case ValueKindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueKindBool:
		return strconv.FormatBool(v.b)
	case ValueKindDate:
		return v.t.Format(time.RFC3339)
	case ValueKindString:
		return v.s
	case ValueKindJSON:
		return string(v.j)
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDate parses an ISO-8601 date or date-time. Values without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
