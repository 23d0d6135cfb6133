package internal

import (
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/strataodm/strata"
)

// TranslateElastic compiles a query tree into the search backend's JSON
// filter DSL: term/terms/range/prefix/regexp leaves and and/or/not
// combinators. Pure function, no I/O.
//
// The negation operators ne and nin have no native leaf form in this
// dialect; they translate by building the positive clause (term, terms) and
// wrapping that single clause in a not combinator. The wrap stays scoped to
// the originating leaf, so a negated leaf composes correctly inside any
// outer and/or/not without touching sibling clauses.
func TranslateElastic(query strata.Query) (map[string]any, error) {
	if query == nil {
		return map[string]any{}, nil
	}
	switch q := query.(type) {
	case *strata.RawQuery:
		clause, err := translateElasticLeaf(q)
		if err != nil {
			return nil, err
		}
		if strata.IsNegationOperator(q.Operator) {
			clause = map[string]any{"not": clause}
		}
		return clause, nil
	case *strata.QueryGroup:
		switch q.Operator {
		case strata.BoolAnd, strata.BoolOr:
			children := make([]map[string]any, 0, len(q.Nodes))
			for _, node := range q.Nodes {
				clause, err := TranslateElastic(node)
				if err != nil {
					return nil, err
				}
				children = append(children, clause)
			}
			return map[string]any{string(q.Operator): children}, nil
		case strata.BoolNot:
			clause, err := TranslateElastic(q.Nodes[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"not": clause}, nil
		default:
			return nil, strata.NewInvalidQueryGroupError(string(q.Operator))
		}
	default:
		return nil, strata.NewMalformedQueryError("query must be a raw query or a query group")
	}
}

// translateElasticLeaf builds the positive form of a leaf: negation
// operators map to the clause of their positive counterpart and are wrapped
// by the caller.
func translateElasticLeaf(q *strata.RawQuery) (map[string]any, error) {
	switch {
	case strata.IsEqualityOperator(q.Operator):
		return map[string]any{"term": map[string]any{q.Attribute: q.Argument}}, nil
	case strata.IsRangeOperator(q.Operator):
		return map[string]any{"range": map[string]any{
			q.Attribute: map[string]any{string(q.Operator): q.Argument},
		}}, nil
	case strata.IsSetOperator(q.Operator):
		members, err := sequenceArgument(q)
		if err != nil {
			return nil, err
		}
		return map[string]any{"terms": map[string]any{q.Attribute: members}}, nil
	case q.Operator == strata.OpStartsWith:
		return map[string]any{"prefix": map[string]any{q.Attribute: q.Argument}}, nil
	case strata.IsStringOperator(q.Operator):
		arg, err := cast.ToStringE(q.Argument)
		if err != nil {
			return nil, strata.NewMalformedQueryError("string operator requires a string argument").WithCause(err)
		}
		var pattern string
		switch q.Operator {
		case strata.OpContains:
			pattern = ".*" + escapeRegexp(arg) + ".*"
		case strata.OpIContains:
			pattern = ".*" + caseInsensitivePattern(arg) + ".*"
		default: // endswith
			pattern = ".*" + escapeRegexp(arg)
		}
		return map[string]any{"regexp": map[string]any{q.Attribute: pattern}}, nil
	default:
		return nil, strata.NewUnsupportedOperatorError(string(q.Operator), "elasticsearch")
	}
}

// regexpSpecial is the metacharacter set of the search backend's regexp
// syntax (Lucene regular expressions, including optional operators).
const regexpSpecial = `.?+*|{}[]()"\#@&<>~`

func escapeRegexp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(regexpSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// caseInsensitivePattern expands every cased letter into a two-character
// class ("a" -> "[aA]") so the backend itself matches case-insensitively;
// the regexp dialect has no case-folding flag.
func caseInsensitivePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
		if unicode.IsLetter(r) && lower != upper {
			b.WriteRune('[')
			b.WriteRune(lower)
			b.WriteRune(upper)
			b.WriteRune(']')
			continue
		}
		if strings.ContainsRune(regexpSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
