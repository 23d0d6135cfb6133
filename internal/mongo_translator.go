package internal

import (
	"reflect"
	"regexp"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/strataodm/strata"
)

// TranslateMongo compiles a query tree into the document backend's
// operator-dict dialect: one object keyed by attribute, operators nested as
// {"$gt": v} dicts, $or/$not wrapper keys for group composition, and
// implicit $and by merging sibling clauses. Pure function, no I/O.
func TranslateMongo(query strata.Query) (bson.M, error) {
	if query == nil {
		return bson.M{}, nil
	}
	switch q := query.(type) {
	case *strata.RawQuery:
		return translateMongoLeaf(q)
	case *strata.QueryGroup:
		switch q.Operator {
		case strata.BoolAnd:
			merged := bson.M{}
			for _, node := range q.Nodes {
				clause, err := TranslateMongo(node)
				if err != nil {
					return nil, err
				}
				mergeAndClause(merged, clause)
			}
			return merged, nil
		case strata.BoolOr:
			children := make([]bson.M, 0, len(q.Nodes))
			for _, node := range q.Nodes {
				clause, err := TranslateMongo(node)
				if err != nil {
					return nil, err
				}
				children = append(children, clause)
			}
			return bson.M{"$or": children}, nil
		case strata.BoolNot:
			clause, err := TranslateMongo(q.Nodes[0])
			if err != nil {
				return nil, err
			}
			return bson.M{"$not": clause}, nil
		default:
			return nil, strata.NewInvalidQueryGroupError(string(q.Operator))
		}
	default:
		return nil, strata.NewMalformedQueryError("query must be a raw query or a query group")
	}
}

func translateMongoLeaf(q *strata.RawQuery) (bson.M, error) {
	switch {
	case q.Operator == strata.OpEq:
		return bson.M{q.Attribute: q.Argument}, nil
	case q.Operator == strata.OpNe:
		return bson.M{q.Attribute: bson.M{"$ne": q.Argument}}, nil
	case strata.IsRangeOperator(q.Operator):
		return bson.M{q.Attribute: bson.M{"$" + string(q.Operator): q.Argument}}, nil
	case strata.IsSetOperator(q.Operator):
		members, err := sequenceArgument(q)
		if err != nil {
			return nil, err
		}
		return bson.M{q.Attribute: bson.M{"$" + string(q.Operator): members}}, nil
	case strata.IsStringOperator(q.Operator):
		arg, err := cast.ToStringE(q.Argument)
		if err != nil {
			return nil, strata.NewMalformedQueryError("string operator requires a string argument").WithCause(err)
		}
		pattern := bson.M{"$regex": regexp.QuoteMeta(arg)}
		switch q.Operator {
		case strata.OpStartsWith:
			pattern["$regex"] = "^" + regexp.QuoteMeta(arg)
		case strata.OpEndsWith:
			pattern["$regex"] = regexp.QuoteMeta(arg) + "$"
		case strata.OpIContains:
			pattern["$options"] = "i"
		}
		return bson.M{q.Attribute: pattern}, nil
	default:
		return nil, strata.NewUnsupportedOperatorError(string(q.Operator), "mongodb")
	}
}

// mergeAndClause folds one translated sibling into the implicit $and object.
// A later clause on an attribute that is already present never overwrites
// the earlier one: operator dicts on the same attribute are merged when
// their operators are disjoint, and any true conflict is demoted into an
// explicit $and array.
func mergeAndClause(dst, clause bson.M) {
	for attr, value := range clause {
		existing, present := dst[attr]
		if !present {
			dst[attr] = value
			continue
		}
		if em, ok := existing.(bson.M); ok {
			if vm, ok := value.(bson.M); ok && disjointOperators(em, vm) {
				for op, arg := range vm {
					em[op] = arg
				}
				continue
			}
		}
		delete(dst, attr)
		conflicts, _ := dst["$and"].([]bson.M)
		dst["$and"] = append(conflicts, bson.M{attr: existing}, bson.M{attr: value})
	}
}

func disjointOperators(a, b bson.M) bool {
	for op := range b {
		if _, dup := a[op]; dup {
			return false
		}
	}
	return true
}

// sequenceArgument normalizes the argument of in/nin into a concrete slice
// for the wire document.
func sequenceArgument(q *strata.RawQuery) ([]any, error) {
	rv := reflect.ValueOf(q.Argument)
	if q.Argument == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, strata.NewMalformedQueryError(
			"operator " + string(q.Operator) + " requires a sequence argument")
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
