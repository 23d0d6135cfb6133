package strata

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Operator is one member of the closed comparison-operator set shared by the
// in-process matcher and every backend translator.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIn         Operator = "in"
	OpNin        Operator = "nin"
	OpContains   Operator = "contains"
	OpIContains  Operator = "icontains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
)

// Operator groups. Every translator switches on these; the groups are
// disjoint except that the negation group overlaps equality and set.
var (
	equalityOperators = map[Operator]bool{OpEq: true, OpNe: true}
	rangeOperators    = map[Operator]bool{OpGt: true, OpGte: true, OpLt: true, OpLte: true}
	setOperators      = map[Operator]bool{OpIn: true, OpNin: true}
	stringOperators   = map[Operator]bool{OpContains: true, OpIContains: true, OpStartsWith: true, OpEndsWith: true}
	negationOperators = map[Operator]bool{OpNe: true, OpNin: true}
)

// ValidOperator reports whether op is a member of the closed operator set.
func ValidOperator(op Operator) bool {
	return equalityOperators[op] || rangeOperators[op] || setOperators[op] || stringOperators[op]
}

// IsEqualityOperator reports membership in {eq, ne}.
func IsEqualityOperator(op Operator) bool { return equalityOperators[op] }

// IsRangeOperator reports membership in {gt, gte, lt, lte}.
func IsRangeOperator(op Operator) bool { return rangeOperators[op] }

// IsSetOperator reports membership in {in, nin}.
func IsSetOperator(op Operator) bool { return setOperators[op] }

// IsStringOperator reports membership in {contains, icontains, startswith, endswith}.
func IsStringOperator(op Operator) bool { return stringOperators[op] }

// IsNegationOperator reports membership in {ne, nin}: operators whose native
// form on some backends is "apply the positive form, then negate the clause".
func IsNegationOperator(op Operator) bool { return negationOperators[op] }

// Compare applies op to a record's field value and a query argument. This is
// the reference semantics every backend translation must reproduce.
//
// Range operators on operands without a total order return a NotComparable
// error, which propagates to the caller. A nil field value (missing
// attribute) never matches a positive predicate and always matches its
// negation.
func Compare(op Operator, fieldValue, argument any) (bool, error) {
	switch op {
	case OpEq:
		return looseEqual(fieldValue, argument), nil
	case OpNe:
		return !looseEqual(fieldValue, argument), nil
	case OpGt, OpGte, OpLt, OpLte:
		if fieldValue == nil {
			return false, nil
		}
		c, err := orderCompare(fieldValue, argument)
		if err != nil {
			return false, err
		}
		switch op {
		case OpGt:
			return c > 0, nil
		case OpGte:
			return c >= 0, nil
		case OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case OpIn, OpNin:
		members, err := argumentSequence(op, argument)
		if err != nil {
			return false, err
		}
		found := false
		for _, m := range members {
			if looseEqual(fieldValue, m) {
				found = true
				break
			}
		}
		if op == OpIn {
			return found, nil
		}
		return !found, nil
	case OpContains, OpIContains, OpStartsWith, OpEndsWith:
		field, ok := fieldValue.(string)
		if !ok {
			return false, nil
		}
		arg, err := cast.ToStringE(argument)
		if err != nil {
			return false, NewMalformedQueryError("string operator requires a string argument").WithCause(err)
		}
		switch op {
		case OpContains:
			return strings.Contains(field, arg), nil
		case OpIContains:
			return strings.Contains(strings.ToLower(field), strings.ToLower(arg)), nil
		case OpStartsWith:
			return strings.HasPrefix(field, arg), nil
		default:
			return strings.HasSuffix(field, arg), nil
		}
	default:
		return false, NewMalformedQueryError("unknown operator: " + string(op))
	}
}

// looseEqual is structural equality with numeric widening, so an int stored
// by one backend compares equal to the float64 another backend decodes.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumeric(a) && isNumeric(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

// orderCompare returns -1/0/1 for operands that share a total order
// (numbers, strings, or times) and a NotComparable error otherwise.
func orderCompare(a, b any) (int, error) {
	if isNumeric(a) && isNumeric(b) {
		af, bf := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), nil
		}
	}
	return 0, NewNotComparableError(a, b)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// argumentSequence normalizes the argument of a set operator into a slice.
func argumentSequence(op Operator, argument any) ([]any, error) {
	rv := reflect.ValueOf(argument)
	if argument == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, NewMalformedQueryError(
			"operator " + string(op) + " requires a sequence argument")
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
