package internal

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/strataodm/strata"
)

// RedisStorage is the key-value adapter. Each record is stored as a hash
// keyed "<collection>:<primary_key>"; a companion set keyed
// "<collection>_keys" holds every primary key in the collection and is kept
// in sync with inserts and removes. Field values that are not plain strings
// round-trip through the extended-type JSON codec.
//
// The backend's native filtering cannot express the operator set, so Find
// enumerates the key set and filters candidates client-side with the
// in-process matcher.
//
// Writing a record and indexing its key are two backend calls and are not
// atomic. The order fails safe: data is written before it is indexed, and
// unindexed before it is deleted, so the worst transient state is an
// orphaned, unindexed record rather than an index entry pointing at
// nothing.
type RedisStorage struct {
	client     redis.UniversalClient
	schema     strata.Schema
	collection string
	keySet     string
}

// NewRedisStorage wraps a configured client for one collection.
func NewRedisStorage(client redis.UniversalClient, schema strata.Schema, collection string) *RedisStorage {
	return &RedisStorage{
		client:     client,
		schema:     schema,
		collection: collection,
		keySet:     collection + "_keys",
	}
}

func (s *RedisStorage) recordKey(key any) string {
	return s.collection + ":" + cast.ToString(key)
}

func (s *RedisStorage) encodeRecord(rec strata.Record) (map[string]string, error) {
	fields := make(map[string]string, len(rec))
	for name, value := range rec {
		encoded, err := EncodeValue(value)
		if err != nil {
			return nil, err
		}
		fields[name] = encoded
	}
	return fields, nil
}

func (s *RedisStorage) decodeRecord(fields map[string]string) (strata.Record, error) {
	rec := make(strata.Record, len(fields))
	for name, raw := range fields {
		value, err := DecodeValue(raw)
		if err != nil {
			return nil, err
		}
		rec[name] = value
	}
	return rec, nil
}

func (s *RedisStorage) Get(ctx context.Context, key any) (strata.Record, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(key)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	rec, err := s.decodeRecord(fields)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *RedisStorage) Insert(ctx context.Context, key any, value strata.Record) error {
	name := s.recordKey(key)
	exists, err := s.client.Exists(ctx, name).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return strata.NewKeyExistsError(key)
	}
	rec := value.Clone()
	primary := s.schema.PrimaryName()
	if _, ok := rec[primary]; !ok {
		rec[primary] = key
	}
	fields, err := s.encodeRecord(rec)
	if err != nil {
		return err
	}
	// Data before index, so a crash between the two calls leaves an
	// orphaned hash instead of a dangling key-set entry.
	if err := s.client.HSet(ctx, name, fields).Err(); err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.keySet, cast.ToString(key)).Err()
}

func (s *RedisStorage) Update(ctx context.Context, query strata.Query, data strata.Record) (int, error) {
	fields, err := s.encodeRecord(data)
	if err != nil {
		return 0, err
	}
	keys, err := s.matchingKeys(ctx, query)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := s.client.HSet(ctx, s.recordKey(key), fields).Err(); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func (s *RedisStorage) Remove(ctx context.Context, query strata.Query) (int, error) {
	keys, err := s.matchingKeys(ctx, query)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		// Unindex before deleting the data, mirroring the insert order.
		if err := s.client.SRem(ctx, s.keySet, key).Err(); err != nil {
			return 0, err
		}
		if err := s.client.Del(ctx, s.recordKey(key)).Err(); err != nil {
			return 0, err
		}
	}
	zap.S().Debugw("removed records", "collection", s.collection, "count", len(keys))
	return len(keys), nil
}

func (s *RedisStorage) Find(ctx context.Context, query strata.Query) (*strata.QuerySet, error) {
	records, err := s.matchingRecords(ctx, query)
	if err != nil {
		return nil, err
	}
	return strata.NewQuerySet(s.schema, records), nil
}

func (s *RedisStorage) FindAll(ctx context.Context) (*strata.QuerySet, error) {
	return s.Find(ctx, nil)
}

func (s *RedisStorage) FindOne(ctx context.Context, query strata.Query) (strata.Record, error) {
	qs, err := s.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	return exactlyOne(qs)
}

// Flush is a no-op: every write is durable per the backend's own policy.
func (s *RedisStorage) Flush(ctx context.Context) error {
	return nil
}

func (s *RedisStorage) String() string {
	return fmt.Sprintf("<RedisStorage: %s>", s.collection)
}

// matchingRecords enumerates the collection's key set and filters
// client-side.
func (s *RedisStorage) matchingRecords(ctx context.Context, query strata.Query) ([]strata.Record, error) {
	keys, err := s.client.SMembers(ctx, s.keySet).Result()
	if err != nil {
		return nil, err
	}
	var matches []strata.Record
	for _, key := range keys {
		rec, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Key-set entry without a hash: transient state from a
			// concurrent remove, skip it.
			continue
		}
		matched, err := Matches(rec, query)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// matchingKeys returns the key-set member strings of matching records.
func (s *RedisStorage) matchingKeys(ctx context.Context, query strata.Query) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.keySet).Result()
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, key := range keys {
		rec, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		m, err := Matches(rec, query)
		if err != nil {
			return nil, err
		}
		if m {
			matched = append(matched, key)
		}
	}
	return matched, nil
}
