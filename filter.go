package classifieds

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterOperator compares a stored attribute value with a filter value.
type FilterOperator string

const (
	FilterEq  FilterOperator = "eq"
	FilterGte FilterOperator = "gte"
	FilterLte FilterOperator = "lte"
)

// FilterParamPrefix marks attribute filters among query parameters,
// e.g. attr.year=gte:2010.
const FilterParamPrefix = "attr."

// AttributeFilter is one (key, operator, value) triple in its external
// string form.
type AttributeFilter struct {
	Key      string         `json:"key"`
	Operator FilterOperator `json:"op"`
	Value    string         `json:"value"`
}

// FilterSet is a list of filter triples. Equality triples on the same key
// are alternatives; everything else must hold together.
type FilterSet []AttributeFilter

// ParseFilterExpression splits "op:value". A missing or unknown operator
// makes the whole expression an equality value.
func ParseFilterExpression(expr string) (FilterOperator, string) {
	op, value, found := strings.Cut(expr, ":")
	if !found {
		return FilterEq, expr
	}
	switch FilterOperator(op) {
	case FilterEq, FilterGte, FilterLte:
		return FilterOperator(op), value
	}
	return FilterEq, expr
}

// ParseAttributeFilters collects attr.<key> query parameters in key order.
func ParseAttributeFilters(params url.Values) FilterSet {
	var names []string
	for name := range params {
		if strings.HasPrefix(name, FilterParamPrefix) && len(name) > len(FilterParamPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var filters FilterSet
	for _, name := range names {
		key := strings.TrimPrefix(name, FilterParamPrefix)
		for _, expr := range params[name] {
			op, value := ParseFilterExpression(expr)
			filters = append(filters, AttributeFilter{Key: key, Operator: op, Value: value})
		}
	}
	return filters
}

// RangePredicate is a coerced gte/lte bound.
type RangePredicate struct {
	Operator FilterOperator
	Value    Value
}

// KeyFilter holds the coerced predicates of one attribute.
type KeyFilter struct {
	Definition AttributeDefinition
	Equals     []Value
	Ranges     []RangePredicate
}

// CompiledFilters are ready to evaluate; keys combine with AND.
type CompiledFilters []KeyFilter

// Compile coerces every triple against the category schema. Triples whose
// key is undefined, whose value does not coerce, or whose operator does not
// apply to the attribute type are returned as dropped and take no part in
// the query.
func (fs FilterSet) Compile(definitions []AttributeDefinition) (CompiledFilters, FilterSet) {
	byKey := make(map[string]AttributeDefinition, len(definitions))
	for _, def := range definitions {
		byKey[def.Key] = def
	}

	var compiled CompiledFilters
	index := make(map[string]int)
	var dropped FilterSet

	for _, f := range fs {
		def, ok := byKey[f.Key]
		if !ok {
			dropped = append(dropped, f)
			continue
		}
		value, ok := coerceFilterValue(def.Type, f.Operator, f.Value)
		if !ok {
			dropped = append(dropped, f)
			continue
		}
		i, seen := index[f.Key]
		if !seen {
			i = len(compiled)
			index[f.Key] = i
			compiled = append(compiled, KeyFilter{Definition: def})
		}
		if f.Operator == FilterEq {
			compiled[i].Equals = append(compiled[i].Equals, value)
		} else {
			compiled[i].Ranges = append(compiled[i].Ranges, RangePredicate{Operator: f.Operator, Value: value})
		}
	}
	return compiled, dropped
}

func coerceFilterValue(t AttributeType, op FilterOperator, raw string) (Value, bool) {
	switch op {
	case FilterEq, FilterGte, FilterLte:
	default:
		return Value{}, false
	}
	switch t {
	case AttributeTypeInt, AttributeTypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, false
		}
		return FloatValue(f), true
	case AttributeTypeDate:
		d, err := ParseDate(raw)
		if err != nil {
			return Value{}, false
		}
		return DateValue(d), true
	case AttributeTypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil || op != FilterEq {
			return Value{}, false
		}
		return BoolValue(b), true
	case AttributeTypeString, AttributeTypeEnum:
		if op != FilterEq {
			return Value{}, false
		}
		return StringValue(raw), true
	}
	return Value{}, false
}

// Matches evaluates the filters against typed attribute values keyed by
// definition key. An attribute without a value never matches.
func (cf CompiledFilters) Matches(values map[string]Value) bool {
	for _, kf := range cf {
		v, ok := values[kf.Definition.Key]
		if !ok || v.IsZero() {
			return false
		}
		if len(kf.Equals) > 0 {
			matched := false
			for _, eq := range kf.Equals {
				if compareValues(v, eq) == 0 {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		for _, r := range kf.Ranges {
			c := compareValues(v, r.Value)
			if c == incomparable {
				return false
			}
			if r.Operator == FilterGte && c < 0 {
				return false
			}
			if r.Operator == FilterLte && c > 0 {
				return false
			}
		}
	}
	return true
}

// MatchesView evaluates the filters against the attributes of a read view.
// Attributes that no longer convert under their definition count as absent.
func (cf CompiledFilters) MatchesView(view *ListingView) bool {
	values := make(map[string]Value, len(cf))
	for _, kf := range cf {
		raw, ok := view.Attributes[kf.Definition.Key]
		if !ok || raw == nil {
			continue
		}
		if v, err := convertAttributeValue(kf.Definition, raw); err == nil {
			values[kf.Definition.Key] = v
		}
	}
	return cf.Matches(values)
}

const incomparable = 2

func compareValues(a, b Value) int {
	if an, ok := a.Number(); ok {
		bn, ok := b.Number()
		if !ok {
			return incomparable
		}
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	switch a.Kind() {
	case ValueKindDate:
		at, _ := a.Date()
		bt, ok := b.Date()
		if !ok {
			return incomparable
		}
		return at.Compare(bt)
	case ValueKindBool:
		ab, _ := a.Bool()
		bb, ok := b.Bool()
		if !ok || ab != bb {
			return incomparable
		}
		return 0
	case ValueKindString:
		as, _ := a.Str()
		bs, ok := b.Str()
		if !ok {
			return incomparable
		}
		return strings.Compare(as, bs)
	}
	return incomparable
}

// ValueColumn names the storage column holding values of type t.
func ValueColumn(t AttributeType) string {
	switch t {
	case AttributeTypeInt, AttributeTypeFloat:
		return "value_numeric"
	case AttributeTypeBoolean:
		return "value_bool"
	case AttributeTypeDate:
		return "value_date"
	case AttributeTypeJSON:
		return "value_json"
	default:
		return "value_text"
	}
}

// ToSqlClause renders a subquery returning the ids of listings matching all
// filters. table must already be a quoted identifier. paramIndex is the
// last placeholder number in use and is advanced past the returned args.
func (cf CompiledFilters) ToSqlClause(table string, paramIndex *int) (string, []any) {
	if len(cf) == 0 {
		return "", nil
	}

	next := func() string {
		*paramIndex++
		return fmt.Sprintf("$%d", *paramIndex)
	}

	var clauses []string
	var args []any
	for _, kf := range cf {
		column := ValueColumn(kf.Definition.Type)
		conditions := []string{"attribute_id = " + next()}
		args = append(args, kf.Definition.ID)

		if len(kf.Equals) > 0 {
			var alternatives []string
			for _, eq := range kf.Equals {
				alternatives = append(alternatives, fmt.Sprintf("%s = %s", column, next()))
				args = append(args, sqlArg(eq))
			}
			conditions = append(conditions, "("+strings.Join(alternatives, " OR ")+")")
		}
		for _, r := range kf.Ranges {
			op := ">="
			if r.Operator == FilterLte {
				op = "<="
			}
			conditions = append(conditions, fmt.Sprintf("%s %s %s", column, op, next()))
			args = append(args, sqlArg(r.Value))
		}

		clauses = append(clauses, fmt.Sprintf("(SELECT listing_id FROM %s WHERE %s)", table, strings.Join(conditions, " AND ")))
	}
	return "(" + strings.Join(clauses, " INTERSECT ") + ")", args
}

func sqlArg(v Value) any {
	if n, ok := v.Number(); ok {
		return n
	}
	switch v.Kind() {
	case ValueKindDate:
		t, _ := v.Date()
		return t
	case ValueKindBool:
		b, _ := v.Bool()
		return b
	}
	return v.String()
}
