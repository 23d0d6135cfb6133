package internal

import (
	"github.com/strataodm/strata"
)

// Matches evaluates a query tree against one record by direct field
// comparison, using the operator registry as the reference semantics.
// It backs the map-backed file store (no server-side filtering at all) and
// the key-value store (whose native filtering cannot express the operator
// set), both of which enumerate candidates and filter client-side.
//
// A nil query matches every record. A missing attribute reads as nil, so it
// never matches eq against a non-nil argument and always matches ne.
func Matches(record strata.Record, query strata.Query) (bool, error) {
	if query == nil {
		return true, nil
	}
	switch q := query.(type) {
	case *strata.RawQuery:
		return strata.Compare(q.Operator, record[q.Attribute], q.Argument)
	case *strata.QueryGroup:
		switch q.Operator {
		case strata.BoolAnd:
			for _, node := range q.Nodes {
				ok, err := Matches(record, node)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		case strata.BoolOr:
			for _, node := range q.Nodes {
				ok, err := Matches(record, node)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		case strata.BoolNot:
			ok, err := Matches(record, q.Nodes[0])
			if err != nil {
				return false, err
			}
			return !ok, nil
		default:
			return false, strata.NewInvalidQueryGroupError(string(q.Operator))
		}
	default:
		return false, strata.NewMalformedQueryError("query must be a raw query or a query group")
	}
}
