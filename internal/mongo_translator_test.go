package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/strataodm/strata"
)

func TestTranslateMongo_Leaves(t *testing.T) {
	tests := []struct {
		name  string
		query strata.Query
		want  bson.M
	}{
		{
			name:  "nil query",
			query: nil,
			want:  bson.M{},
		},
		{
			name:  "eq is a bare value",
			query: leaf(t, "name", strata.OpEq, "Ada"),
			want:  bson.M{"name": "Ada"},
		},
		{
			name:  "ne",
			query: leaf(t, "name", strata.OpNe, "Ada"),
			want:  bson.M{"name": bson.M{"$ne": "Ada"}},
		},
		{
			name:  "gt",
			query: leaf(t, "age", strata.OpGt, 30),
			want:  bson.M{"age": bson.M{"$gt": 30}},
		},
		{
			name:  "lte",
			query: leaf(t, "age", strata.OpLte, 30),
			want:  bson.M{"age": bson.M{"$lte": 30}},
		},
		{
			name:  "in",
			query: leaf(t, "age", strata.OpIn, []int{1, 2}),
			want:  bson.M{"age": bson.M{"$in": []any{1, 2}}},
		},
		{
			name:  "nin",
			query: leaf(t, "age", strata.OpNin, []int{1, 2}),
			want:  bson.M{"age": bson.M{"$nin": []any{1, 2}}},
		},
		{
			name:  "contains escapes metacharacters",
			query: leaf(t, "name", strata.OpContains, "a.b"),
			want:  bson.M{"name": bson.M{"$regex": `a\.b`}},
		},
		{
			name:  "icontains sets the i option",
			query: leaf(t, "name", strata.OpIContains, "ada"),
			want:  bson.M{"name": bson.M{"$regex": "ada", "$options": "i"}},
		},
		{
			name:  "startswith anchors the front",
			query: leaf(t, "name", strata.OpStartsWith, "Ada"),
			want:  bson.M{"name": bson.M{"$regex": "^Ada"}},
		},
		{
			name:  "endswith anchors the back",
			query: leaf(t, "name", strata.OpEndsWith, "da"),
			want:  bson.M{"name": bson.M{"$regex": "da$"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateMongo(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateMongo_AndMergesSiblings(t *testing.T) {
	// Different attributes merge into one implicit-and object.
	q, err := strata.And(
		leaf(t, "age", strata.OpGte, 18),
		leaf(t, "name", strata.OpEq, "Ada"),
	)
	require.NoError(t, err)

	got, err := TranslateMongo(q)
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"age":  bson.M{"$gte": 18},
		"name": "Ada",
	}, got)
}

func TestTranslateMongo_AndMergesSameAttributeOperators(t *testing.T) {
	// Disjoint operators on the same attribute share one operator dict
	// instead of the second clause clobbering the first.
	q, err := strata.And(
		leaf(t, "age", strata.OpGte, 18),
		leaf(t, "age", strata.OpLt, 65),
	)
	require.NoError(t, err)

	got, err := TranslateMongo(q)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"age": bson.M{"$gte": 18, "$lt": 65}}, got)
}

func TestTranslateMongo_AndConflictBecomesExplicitAnd(t *testing.T) {
	// Two eq clauses on one attribute cannot share an object; they demote
	// into an explicit $and array, preserving both.
	q, err := strata.And(
		leaf(t, "name", strata.OpEq, "Ada"),
		leaf(t, "name", strata.OpEq, "Grace"),
	)
	require.NoError(t, err)

	got, err := TranslateMongo(q)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"name": "Ada"},
		{"name": "Grace"},
	}}, got)
}

func TestTranslateMongo_OrAndNot(t *testing.T) {
	or, err := strata.Or(
		leaf(t, "name", strata.OpEq, "Ada"),
		leaf(t, "age", strata.OpGt, 40),
	)
	require.NoError(t, err)

	got, err := TranslateMongo(or)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$or": []bson.M{
		{"name": "Ada"},
		{"age": bson.M{"$gt": 40}},
	}}, got)

	not, err := strata.Not(leaf(t, "age", strata.OpGt, 40))
	require.NoError(t, err)
	got, err = TranslateMongo(not)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$not": bson.M{"age": bson.M{"$gt": 40}}}, got)
}

func TestTranslateMongo_NestedGroups(t *testing.T) {
	inner, err := strata.Or(
		leaf(t, "name", strata.OpEq, "Ada"),
		leaf(t, "name", strata.OpEq, "Grace"),
	)
	require.NoError(t, err)
	q, err := strata.And(leaf(t, "age", strata.OpGte, 18), inner)
	require.NoError(t, err)

	got, err := TranslateMongo(q)
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"age": bson.M{"$gte": 18},
		"$or": []bson.M{
			{"name": "Ada"},
			{"name": "Grace"},
		},
	}, got)
}

func TestTranslateMongo_Errors(t *testing.T) {
	_, err := TranslateMongo(&strata.RawQuery{Attribute: "x", Operator: strata.Operator("between"), Argument: 1})
	require.Error(t, err)
	assert.True(t, strata.IsUnsupportedOperatorError(err))

	_, err = TranslateMongo(&strata.RawQuery{Attribute: "x", Operator: strata.OpIn, Argument: 1})
	require.Error(t, err)
	assert.True(t, strata.IsMalformedQueryError(err))

	_, err = TranslateMongo(&strata.QueryGroup{Operator: strata.BoolOp("xor"), Nodes: []strata.Query{leaf(t, "x", strata.OpEq, 1)}})
	require.Error(t, err)
	assert.True(t, strata.IsMalformedQueryError(err))
}
