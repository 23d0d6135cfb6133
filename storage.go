package strata

import (
	"context"
	"fmt"
)

// Storage is the uniform CRUD and query contract every backend adapter
// implements. An adapter owns exactly one backend client handle and one
// collection identifier; it caches no records.
//
// All operations are synchronous. Atomicity is whatever the backend client
// guarantees for a single call; multi-structure steps (record plus
// secondary key index) are ordered to fail safe, not to be atomic.
type Storage interface {
	// Get is a point lookup by primary key. A miss is not an error: the
	// second return value reports presence.
	Get(ctx context.Context, key any) (Record, bool, error)

	// Insert stores a new record under key, failing with a KeyExists error
	// if the key is already present. When the backend embeds the primary
	// key in the stored value, the adapter injects it into a copy; the
	// caller's value is never mutated.
	Insert(ctx context.Context, key any, value Record) error

	// Update overwrites exactly the attributes named in data on every
	// record matched by query, leaving other attributes untouched. It never
	// creates records. Returns the number of records updated.
	Update(ctx context.Context, query Query, data Record) (int, error)

	// Remove deletes every record matched by query, retracting each key
	// from any secondary index the backend maintains as a coupled step.
	// Returns the number of records removed.
	Remove(ctx context.Context, query Query) (int, error)

	// Find returns a lazy QuerySet over the records matched by query. A nil
	// query matches every record. Translation errors surface here, before
	// any backend call is issued.
	Find(ctx context.Context, query Query) (*QuerySet, error)

	// FindAll is Find with a nil query.
	FindAll(ctx context.Context) (*QuerySet, error)

	// FindOne returns the single record matched by query, failing with
	// NoResultsFound on zero matches and MultipleResultsFound (with the
	// count) on more than one.
	FindOne(ctx context.Context, query Query) (Record, error)

	// Flush forces durable persistence for backends that buffer writes; a
	// no-op for backends that are durable per write.
	Flush(ctx context.Context) error

	// String is a diagnostic dump naming the backend and collection.
	fmt.Stringer
}
