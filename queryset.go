package strata

import (
	"fmt"
	"iter"
	"sort"
	"sync"
)

// querySource is the data source behind one or more chained QuerySets:
// either an already-materialized sequence of raw matches or a deferred fetch
// against the backend. The fetch runs at most once, no matter how many
// derived QuerySets evaluate.
type querySource struct {
	once  sync.Once
	fetch func() ([]Record, error)
	data  []Record
	err   error
}

func (s *querySource) records() ([]Record, error) {
	s.once.Do(func() {
		if s.fetch != nil {
			s.data, s.err = s.fetch()
		}
	})
	return s.data, s.err
}

type evalState struct {
	once    sync.Once
	records []Record
	keys    []any
	err     error
}

// QuerySet is the lazy result set returned by Find. Sort, Offset and Limit
// are pending directives applied once, in that fixed order, when the set is
// materialized. Each directive call returns a new QuerySet value, so a
// chained call can never be partially observed through another reference.
// Re-materializing an evaluated QuerySet returns the same sequence without
// re-applying any directive.
type QuerySet struct {
	schema   Schema
	source   *querySource
	sortKeys []SortKey
	offset   int
	limit    int
	eval     *evalState
}

// NewQuerySet wraps an already-materialized sequence of raw matches.
func NewQuerySet(schema Schema, data []Record) *QuerySet {
	return &QuerySet{
		schema: schema,
		source: &querySource{data: data},
		offset: -1,
		limit:  -1,
		eval:   &evalState{},
	}
}

// NewLazyQuerySet wraps a deferred fetch, e.g. a backend cursor drained only
// when the set is first materialized.
func NewLazyQuerySet(schema Schema, fetch func() ([]Record, error)) *QuerySet {
	return &QuerySet{
		schema: schema,
		source: &querySource{fetch: fetch},
		offset: -1,
		limit:  -1,
		eval:   &evalState{},
	}
}

// clone shares the data source but gets fresh directives and a fresh
// evaluation state.
func (qs *QuerySet) clone() *QuerySet {
	out := *qs
	out.sortKeys = append([]SortKey(nil), qs.sortKeys...)
	out.eval = &evalState{}
	return &out
}

// Sort returns a QuerySet ordered by the given attribute names, each
// optionally prefixed with '-' for descending. Keys apply as a stable
// multi-key sort with the first key most significant.
func (qs *QuerySet) Sort(keys ...string) *QuerySet {
	out := qs.clone()
	out.sortKeys = make([]SortKey, len(keys))
	for i, k := range keys {
		out.sortKeys[i] = ParseSortKey(k)
	}
	return out
}

// Offset returns a QuerySet that skips the first n records of the sorted
// sequence. Negative values are treated as zero.
func (qs *QuerySet) Offset(n int) *QuerySet {
	out := qs.clone()
	out.offset = max(n, 0)
	return out
}

// Limit returns a QuerySet truncated to at most n records after any offset.
// Negative values are treated as zero.
func (qs *QuerySet) Limit(n int) *QuerySet {
	out := qs.clone()
	out.limit = max(n, 0)
	return out
}

// Evaluate materializes the set: sort, then offset, then limit, exactly
// once. Subsequent calls are no-ops returning the first outcome.
func (qs *QuerySet) Evaluate() error {
	qs.eval.once.Do(func() {
		data, err := qs.source.records()
		if err != nil {
			qs.eval.err = err
			return
		}
		records := append([]Record(nil), data...)

		if err := sortRecords(records, qs.sortKeys); err != nil {
			qs.eval.err = err
			return
		}
		if qs.offset >= 0 {
			if qs.offset >= len(records) {
				records = nil
			} else {
				records = records[qs.offset:]
			}
		}
		if qs.limit >= 0 && qs.limit < len(records) {
			records = records[:qs.limit]
		}

		primary := qs.schema.PrimaryName()
		keys := make([]any, len(records))
		for i, rec := range records {
			keys[i] = rec[primary]
		}
		qs.eval.records = records
		qs.eval.keys = keys
	})
	return qs.eval.err
}

// sortRecords applies the declared keys in reverse order with a stable sort
// per key, so the last-applied (first-declared) key dominates.
func sortRecords(records []Record, keys []SortKey) error {
	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		var sortErr error
		sort.SliceStable(records, func(a, b int) bool {
			if sortErr != nil {
				return false
			}
			c, err := orderCompare(records[a][key.Attribute], records[b][key.Attribute])
			if err != nil {
				sortErr = err
				return false
			}
			if key.Descending {
				return c > 0
			}
			return c < 0
		})
		if sortErr != nil {
			return sortErr
		}
	}
	return nil
}

// Count materializes the set and returns the evaluated (sorted and
// paginated) size.
func (qs *QuerySet) Count() (int, error) {
	if err := qs.Evaluate(); err != nil {
		return 0, err
	}
	return len(qs.eval.records), nil
}

// Keys materializes the set and returns the primary keys in evaluated order.
func (qs *QuerySet) Keys() ([]any, error) {
	if err := qs.Evaluate(); err != nil {
		return nil, err
	}
	return append([]any(nil), qs.eval.keys...), nil
}

// Key returns the i-th primary key of the evaluated sequence.
func (qs *QuerySet) Key(i int) (any, error) {
	if err := qs.Evaluate(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(qs.eval.keys) {
		return nil, fmt.Errorf("queryset index %d out of range [0, %d)", i, len(qs.eval.keys))
	}
	return qs.eval.keys[i], nil
}

// At returns the i-th raw match of the evaluated sequence, without
// hydrating it through the schema.
func (qs *QuerySet) At(i int) (Record, error) {
	if err := qs.Evaluate(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(qs.eval.records) {
		return nil, fmt.Errorf("queryset index %d out of range [0, %d)", i, len(qs.eval.records))
	}
	return qs.eval.records[i], nil
}

// Record hydrates the i-th primary key into a full record via the schema.
func (qs *QuerySet) Record(i int) (Record, error) {
	key, err := qs.Key(i)
	if err != nil {
		return nil, err
	}
	return qs.schema.Load(key)
}

// All iterates the evaluated sequence, hydrating one record at a time. The
// returned sequence is restartable: re-iterating re-hydrates from the
// materialized key list, not from the backend.
func (qs *QuerySet) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if err := qs.Evaluate(); err != nil {
			yield(nil, err)
			return
		}
		for _, key := range qs.eval.keys {
			rec, err := qs.schema.Load(key)
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Records materializes and hydrates the whole evaluated sequence.
func (qs *QuerySet) Records() ([]Record, error) {
	count, err := qs.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, count)
	for rec, err := range qs.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
