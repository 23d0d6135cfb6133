package strata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BoolOp is the boolean combinator of a QueryGroup.
type BoolOp string

const (
	BoolAnd BoolOp = "and"
	BoolOr  BoolOp = "or"
	BoolNot BoolOp = "not"
)

// Query is the closed predicate-tree sum type: a node is either a RawQuery
// leaf or a QueryGroup. Queries are immutable once built; composition always
// produces a new tree. Evaluation semantics live in the matcher and the
// backend translators, never on the tree itself.
type Query interface {
	// IsLeaf returns true for RawQuery, false for QueryGroup.
	IsLeaf() bool
	// Equal is structural (deep) equality, independent of identity.
	Equal(other Query) bool
	fmt.Stringer
}

// RawQuery is a leaf predicate: one attribute, one operator, one argument.
type RawQuery struct {
	Attribute string   `json:"a"`
	Operator  Operator `json:"o"`
	Argument  any      `json:"v"`
}

// QueryGroup combines child queries under a boolean operator. Nodes is
// non-empty for and/or and has exactly one element for not.
type QueryGroup struct {
	Operator BoolOp  `json:"l"`
	Nodes    []Query `json:"c"`
}

// NewQuery builds a leaf predicate, failing with a MalformedQuery error when
// the operator is not a member of the closed operator set.
func NewQuery(attribute string, operator Operator, argument any) (*RawQuery, error) {
	if attribute == "" {
		return nil, NewMalformedQueryError("query attribute must not be empty")
	}
	if !ValidOperator(operator) {
		return nil, NewMalformedQueryError(fmt.Sprintf("unknown query operator %q", operator))
	}
	return &RawQuery{Attribute: attribute, Operator: operator, Argument: argument}, nil
}

// NewGroup builds a QueryGroup, enforcing the node-count invariant at
// construction so matchers and translators may assume a well-formed tree.
func NewGroup(operator BoolOp, nodes ...Query) (*QueryGroup, error) {
	switch operator {
	case BoolAnd, BoolOr:
		if len(nodes) == 0 {
			return nil, NewMalformedQueryError(
				fmt.Sprintf("query group %q requires at least one node", operator))
		}
	case BoolNot:
		if len(nodes) != 1 {
			return nil, NewMalformedQueryError(
				fmt.Sprintf("query group %q requires exactly one node, got %d", operator, len(nodes)))
		}
	default:
		return nil, NewInvalidQueryGroupError(string(operator))
	}
	for _, n := range nodes {
		if n == nil {
			return nil, NewMalformedQueryError("query group nodes must not be nil")
		}
	}
	return &QueryGroup{Operator: operator, Nodes: append([]Query(nil), nodes...)}, nil
}

// And combines queries under a logical and.
func And(nodes ...Query) (*QueryGroup, error) { return NewGroup(BoolAnd, nodes...) }

// Or combines queries under a logical or.
func Or(nodes ...Query) (*QueryGroup, error) { return NewGroup(BoolOr, nodes...) }

// Not negates a single query.
func Not(node Query) (*QueryGroup, error) { return NewGroup(BoolNot, node) }

func (q *RawQuery) IsLeaf() bool { return true }

func (q *RawQuery) Equal(other Query) bool {
	o, ok := other.(*RawQuery)
	if !ok || o == nil {
		return false
	}
	return q.Attribute == o.Attribute && q.Operator == o.Operator && looseEqual(q.Argument, o.Argument)
}

func (q *RawQuery) String() string {
	return fmt.Sprintf("%s %s %v", q.Attribute, q.Operator, q.Argument)
}

func (g *QueryGroup) IsLeaf() bool { return false }

func (g *QueryGroup) Equal(other Query) bool {
	o, ok := other.(*QueryGroup)
	if !ok || o == nil {
		return false
	}
	if g.Operator != o.Operator || len(g.Nodes) != len(o.Nodes) {
		return false
	}
	for i, n := range g.Nodes {
		if !n.Equal(o.Nodes[i]) {
			return false
		}
	}
	return true
}

func (g *QueryGroup) String() string {
	parts := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		parts[i] = "(" + n.String() + ")"
	}
	if g.Operator == BoolNot {
		return "not " + parts[0]
	}
	return strings.Join(parts, " "+string(g.Operator)+" ")
}

// UnmarshalJSON validates the leaf shape while decoding.
func (q *RawQuery) UnmarshalJSON(data []byte) error {
	type rawAlias struct {
		Attribute *string  `json:"a"`
		Operator  Operator `json:"o"`
		Argument  any      `json:"v"`
	}
	var raw rawAlias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Attribute == nil || *raw.Attribute == "" {
		return NewMalformedQueryError("raw query is missing attribute")
	}
	built, err := NewQuery(*raw.Attribute, raw.Operator, raw.Argument)
	if err != nil {
		return err
	}
	*q = *built
	return nil
}

// UnmarshalJSON decodes a group whose children may themselves be leaves or
// nested groups, enforcing the same invariants as NewGroup.
func (g *QueryGroup) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operator *BoolOp           `json:"l"`
		Nodes    []json.RawMessage `json:"c"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Operator == nil {
		return NewMalformedQueryError("query group is missing logic operator")
	}
	nodes := make([]Query, 0, len(raw.Nodes))
	for _, child := range raw.Nodes {
		node, err := ParseQuery(child)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	built, err := NewGroup(*raw.Operator, nodes...)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}

// MarshalJSON keeps the group's wire shape symmetric with UnmarshalJSON.
func (g *QueryGroup) MarshalJSON() ([]byte, error) {
	out := struct {
		Operator BoolOp `json:"l"`
		Nodes    []any  `json:"c"`
	}{Operator: g.Operator}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, n)
	}
	return json.Marshal(out)
}

// ParseQuery decodes a JSON query node, sniffing whether it is a leaf
// (object with "a") or a group (object with "l").
func ParseQuery(data []byte) (Query, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, NewMalformedQueryError("query node is not a JSON object").WithCause(err)
	}
	if _, ok := probe["l"]; ok {
		var g QueryGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		return &g, nil
	}
	var q RawQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}
