package strata

// Record is the raw attribute map a backend stores and returns for one
// document. The attribute named by the owning schema's primary name carries
// the record's primary key.
type Record map[string]any

// Clone returns a shallow copy of the record. Adapters clone before mutating
// so caller-held values are never modified in place.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overwrites exactly the attributes named in data, leaving all other
// attributes untouched.
func (r Record) Merge(data Record) {
	for k, v := range data {
		r[k] = v
	}
}

// Schema is the record-schema collaborator handed in by the record-lifecycle
// layer: the primary-key attribute name plus the capability to hydrate a
// primary key into a full record.
type Schema interface {
	// PrimaryName returns the name of the primary-key attribute.
	PrimaryName() string
	// Load hydrates the record identified by key.
	Load(key any) (Record, error)
}

// CollectionSchema is a plain Schema implementation backed by a loader
// function.
type CollectionSchema struct {
	Primary string
	Loader  func(key any) (Record, error)
}

func (s CollectionSchema) PrimaryName() string {
	return s.Primary
}

func (s CollectionSchema) Load(key any) (Record, error) {
	if s.Loader == nil {
		return nil, NewInternalError("schema has no loader", nil)
	}
	return s.Loader(key)
}

// SortOrder defines sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortKey is one parsed sort directive.
type SortKey struct {
	Attribute  string
	Descending bool
}

// ParseSortKey parses an attribute name with an optional leading '-'
// descending marker, e.g. "-age".
func ParseSortKey(key string) SortKey {
	if len(key) > 0 && key[0] == '-' {
		return SortKey{Attribute: key[1:], Descending: true}
	}
	return SortKey{Attribute: key}
}
