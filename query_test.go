package strata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuery_Validation(t *testing.T) {
	tests := []struct {
		name      string
		attribute string
		operator  Operator
		wantErr   bool
	}{
		{name: "valid eq", attribute: "age", operator: OpEq},
		{name: "valid icontains", attribute: "name", operator: OpIContains},
		{name: "unknown operator", attribute: "age", operator: Operator("between"), wantErr: true},
		{name: "empty attribute", attribute: "", operator: OpEq, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuery(tt.attribute, tt.operator, 1)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsMalformedQueryError(err))
			} else {
				require.NoError(t, err)
				assert.True(t, q.IsLeaf())
			}
		})
	}
}

func TestNewGroup_NodeCountInvariants(t *testing.T) {
	leaf, err := NewQuery("age", OpGt, 1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		operator BoolOp
		nodes    []Query
		wantErr  bool
	}{
		{name: "and with one node", operator: BoolAnd, nodes: []Query{leaf}},
		{name: "or with two nodes", operator: BoolOr, nodes: []Query{leaf, leaf}},
		{name: "not with one node", operator: BoolNot, nodes: []Query{leaf}},
		{name: "and with no nodes", operator: BoolAnd, wantErr: true},
		{name: "or with no nodes", operator: BoolOr, wantErr: true},
		{name: "not with two nodes", operator: BoolNot, nodes: []Query{leaf, leaf}, wantErr: true},
		{name: "not with no nodes", operator: BoolNot, wantErr: true},
		{name: "unknown boolean operator", operator: BoolOp("xor"), nodes: []Query{leaf}, wantErr: true},
		{name: "nil node", operator: BoolAnd, nodes: []Query{nil}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGroup(tt.operator, tt.nodes...)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsMalformedQueryError(err))
			} else {
				require.NoError(t, err)
				assert.False(t, g.IsLeaf())
			}
		})
	}
}

func TestQuery_StructuralEquality(t *testing.T) {
	a, err := NewQuery("age", OpGt, 30)
	require.NoError(t, err)
	b, err := NewQuery("age", OpGt, 30)
	require.NoError(t, err)
	c, err := NewQuery("age", OpGt, 31)
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "equality is structural, not identity")
	assert.False(t, a.Equal(c))

	ga, err := And(a, c)
	require.NoError(t, err)
	gb, err := And(b, c)
	require.NoError(t, err)
	gc, err := Or(b, c)
	require.NoError(t, err)
	assert.True(t, ga.Equal(gb))
	assert.False(t, ga.Equal(gc), "operator differs")
	assert.False(t, ga.Equal(a), "group never equals leaf")
}

func TestQuery_CompositionDoesNotMutateOperands(t *testing.T) {
	a, err := NewQuery("age", OpGt, 30)
	require.NoError(t, err)
	b, err := NewQuery("name", OpEq, "Ada")
	require.NoError(t, err)

	inner, err := And(a, b)
	require.NoError(t, err)
	_, err = Not(inner)
	require.NoError(t, err)

	assert.Len(t, inner.Nodes, 2, "composing produced a new tree, operand unchanged")
	assert.Equal(t, "age", a.Attribute)
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantLeaf  bool
		wantErr   bool
		errSubstr string
	}{
		{
			name:     "leaf",
			json:     `{"a":"age","o":"gt","v":30}`,
			wantLeaf: true,
		},
		{
			name: "group with nested group",
			json: `{"l":"and","c":[{"a":"age","o":"gte","v":18},{"l":"or","c":[{"a":"name","o":"eq","v":"Ada"},{"a":"name","o":"eq","v":"Grace"}]}]}`,
		},
		{
			name: "not with one child",
			json: `{"l":"not","c":[{"a":"age","o":"eq","v":1}]}`,
		},
		{
			name:      "group missing logic",
			json:      `{"c":[]}`,
			wantErr:   true,
			errSubstr: "missing attribute",
		},
		{
			name:      "group with unknown logic",
			json:      `{"l":"xor","c":[{"a":"x","o":"eq","v":1}]}`,
			wantErr:   true,
			errSubstr: "query group",
		},
		{
			name:      "and with empty children",
			json:      `{"l":"and","c":[]}`,
			wantErr:   true,
			errSubstr: "at least one node",
		},
		{
			name:      "leaf with unknown operator",
			json:      `{"a":"age","o":"between","v":1}`,
			wantErr:   true,
			errSubstr: "unknown query operator",
		},
		{
			name:    "not JSON",
			json:    `{invalid}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery([]byte(tt.json))
			if tt.wantErr {
				require.Error(t, err)
				if tt.errSubstr != "" {
					assert.Contains(t, err.Error(), tt.errSubstr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeaf, q.IsLeaf())
		})
	}
}

func TestQuery_JSONRoundTrip(t *testing.T) {
	leaf, err := NewQuery("name", OpIContains, "ada")
	require.NoError(t, err)
	inner, err := Or(leaf, &RawQuery{Attribute: "age", Operator: OpLte, Argument: 30})
	require.NoError(t, err)
	original, err := Not(inner)
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := ParseQuery(data)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))
}
