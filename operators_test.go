package strata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorGroups(t *testing.T) {
	assert.True(t, IsEqualityOperator(OpEq))
	assert.True(t, IsEqualityOperator(OpNe))
	assert.True(t, IsRangeOperator(OpGte))
	assert.True(t, IsSetOperator(OpNin))
	assert.True(t, IsStringOperator(OpIContains))
	assert.True(t, IsNegationOperator(OpNe))
	assert.True(t, IsNegationOperator(OpNin))
	assert.False(t, IsNegationOperator(OpIn))
	assert.False(t, ValidOperator(Operator("between")))
}

func TestCompare_Equality(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		field    any
		argument any
		want     bool
	}{
		{name: "eq match", op: OpEq, field: "Ada", argument: "Ada", want: true},
		{name: "eq mismatch", op: OpEq, field: "Ada", argument: "Grace", want: false},
		{name: "eq numeric widening", op: OpEq, field: 42, argument: float64(42), want: true},
		{name: "eq missing attribute vs nil", op: OpEq, field: nil, argument: nil, want: true},
		{name: "eq missing attribute vs value", op: OpEq, field: nil, argument: 1, want: false},
		{name: "ne match", op: OpNe, field: "Ada", argument: "Grace", want: true},
		{name: "ne missing attribute", op: OpNe, field: nil, argument: 1, want: true},
		{name: "ne nil vs nil", op: OpNe, field: nil, argument: nil, want: false},
		{name: "eq times", op: OpEq, field: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), argument: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, tt.field, tt.argument)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_Range(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		op       Operator
		field    any
		argument any
		want     bool
	}{
		{name: "gt true", op: OpGt, field: 5, argument: 3, want: true},
		{name: "gt false on equal", op: OpGt, field: 3, argument: 3, want: false},
		{name: "gte true on equal", op: OpGte, field: 3, argument: 3, want: true},
		{name: "lt mixed numeric types", op: OpLt, field: int64(2), argument: 2.5, want: true},
		{name: "lte strings", op: OpLte, field: "apple", argument: "banana", want: true},
		{name: "gt times", op: OpGt, field: later, argument: earlier, want: true},
		{name: "missing attribute never matches", op: OpGt, field: nil, argument: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, tt.field, tt.argument)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_RangeNotComparable(t *testing.T) {
	// Present but unordered operands are an error, not a silent no-match.
	_, err := Compare(OpGt, "five", 3)
	require.Error(t, err)
	assert.True(t, IsNotComparableError(err))

	_, err = Compare(OpLte, 3, []int{1})
	require.Error(t, err)
	assert.True(t, IsNotComparableError(err))
}

func TestCompare_Set(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		field    any
		argument any
		want     bool
	}{
		{name: "in member", op: OpIn, field: 2, argument: []int{1, 2, 3}, want: true},
		{name: "in non-member", op: OpIn, field: 4, argument: []int{1, 2, 3}, want: false},
		{name: "in widened member", op: OpIn, field: float64(2), argument: []any{1, 2, 3}, want: true},
		{name: "in empty set", op: OpIn, field: 1, argument: []int{}, want: false},
		{name: "nin non-member", op: OpNin, field: 4, argument: []int{1, 2, 3}, want: true},
		{name: "nin member", op: OpNin, field: 2, argument: []int{1, 2, 3}, want: false},
		{name: "nin empty set", op: OpNin, field: 1, argument: []string{}, want: true},
		{name: "nin missing attribute", op: OpNin, field: nil, argument: []int{1}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, tt.field, tt.argument)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_SetRequiresSequence(t *testing.T) {
	_, err := Compare(OpIn, 1, 1)
	require.Error(t, err)
	assert.True(t, IsMalformedQueryError(err))
}

func TestCompare_String(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		field    any
		argument any
		want     bool
	}{
		{name: "contains match", op: OpContains, field: "Grace Hopper", argument: "Hopp", want: true},
		{name: "contains is case sensitive", op: OpContains, field: "Grace Hopper", argument: "hopp", want: false},
		{name: "icontains lowercase needle", op: OpIContains, field: "Grace Hopper", argument: "hopp", want: true},
		{name: "icontains uppercase needle", op: OpIContains, field: "grace hopper", argument: "HOPP", want: true},
		{name: "icontains no match", op: OpIContains, field: "Grace Hopper", argument: "ada", want: false},
		{name: "startswith match", op: OpStartsWith, field: "Grace", argument: "Gra", want: true},
		{name: "startswith mid-string", op: OpStartsWith, field: "Grace", argument: "race", want: false},
		{name: "endswith match", op: OpEndsWith, field: "Grace", argument: "ace", want: true},
		{name: "non-string field never matches", op: OpContains, field: 42, argument: "4", want: false},
		{name: "missing attribute never matches", op: OpStartsWith, field: nil, argument: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, tt.field, tt.argument)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	_, err := Compare(Operator("between"), 1, 2)
	require.Error(t, err)
	assert.True(t, IsMalformedQueryError(err))
}
