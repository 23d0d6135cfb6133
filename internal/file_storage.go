package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/strataodm/strata"
)

// FileStorage is the map-backed file store: the whole key-to-record mapping
// for one collection lives in a single JSON file named
// <prefix><collection>.<ext>, re-serialized and overwritten on every
// mutating call. There is no append log and no partial write. Filtering is a
// linear scan through the in-process matcher.
//
// Concurrent access from other processes is guarded by an advisory file
// lock; within a process the store is guarded by a mutex.
type FileStorage struct {
	schema     strata.Schema
	collection string
	path       string
	fileLock   *flock.Flock

	mu    sync.Mutex
	store map[string]strata.Record
}

// NewFileStorage builds the collection file name from the configured prefix
// and extension and loads the mapping if the file already exists.
func NewFileStorage(schema strata.Schema, collection string, cfg strata.FileConfig) (*FileStorage, error) {
	path := filepath.Join(cfg.Directory, cfg.Prefix+collection+"."+cfg.Ext)
	s := &FileStorage{
		schema:     schema,
		collection: collection,
		path:       path,
		fileLock:   flock.New(path + ".lock"),
		store:      make(map[string]strata.Record),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// newEphemeralStorage is the in-memory variant: same semantics, no file.
func newEphemeralStorage(schema strata.Schema, collection string) *FileStorage {
	return &FileStorage{
		schema:     schema,
		collection: collection,
		store:      make(map[string]strata.Record),
	}
}

// MemoryStorage is the ephemeral map store: a FileStorage whose flush is a
// no-op because nothing is persisted.
type MemoryStorage struct {
	*FileStorage
}

// NewMemoryStorage returns an in-memory store for the collection.
func NewMemoryStorage(schema strata.Schema, collection string) *MemoryStorage {
	return &MemoryStorage{FileStorage: newEphemeralStorage(schema, collection)}
}

func (s *MemoryStorage) String() string {
	return fmt.Sprintf("<MemoryStorage: %s>", s.collection)
}

func (s *FileStorage) load() error {
	if s.path == "" {
		return nil
	}
	if err := s.fileLock.RLock(); err != nil {
		return strata.NewBackendError("file", "lock collection file", err)
	}
	defer s.fileLock.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return strata.NewBackendError("file", "read collection file", err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return strata.NewBackendError("file", "parse collection file", err)
	}
	for key, rec := range raw {
		s.store[key] = DenormalizeRecord(rec)
	}
	return nil
}

// flushLocked rewrites the whole collection file. Callers hold s.mu.
func (s *FileStorage) flushLocked() error {
	if s.path == "" {
		return nil
	}
	raw := make(map[string]map[string]any, len(s.store))
	for key, rec := range s.store {
		raw[key] = NormalizeRecord(rec)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return strata.NewInternalError("serialize collection", err)
	}
	if err := s.fileLock.Lock(); err != nil {
		return strata.NewBackendError("file", "lock collection file", err)
	}
	defer s.fileLock.Unlock()
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return strata.NewBackendError("file", "write collection file", err)
	}
	zap.S().Debugw("flushed collection file",
		"collection", s.collection, "path", s.path, "records", len(s.store))
	return nil
}

func (s *FileStorage) encodeKey(key any) string {
	return cast.ToString(key)
}

func (s *FileStorage) Get(ctx context.Context, key any) (strata.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.store[s.encodeKey(key)]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (s *FileStorage) Insert(ctx context.Context, key any, value strata.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.encodeKey(key)
	if _, exists := s.store[k]; exists {
		return strata.NewKeyExistsError(key)
	}
	rec := value.Clone()
	primary := s.schema.PrimaryName()
	if _, ok := rec[primary]; !ok {
		rec[primary] = key
	}
	s.store[k] = rec
	return s.flushLocked()
}

func (s *FileStorage) Update(ctx context.Context, query strata.Query, data strata.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.store {
		ok, err := Matches(rec, query)
		if err != nil {
			return 0, err
		}
		if ok {
			rec.Merge(data)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.flushLocked()
}

func (s *FileStorage) Remove(ctx context.Context, query strata.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []string
	for key, rec := range s.store {
		ok, err := Matches(rec, query)
		if err != nil {
			return 0, err
		}
		if ok {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		delete(s.store, key)
	}
	if len(matched) == 0 {
		return 0, nil
	}
	return len(matched), s.flushLocked()
}

func (s *FileStorage) Find(ctx context.Context, query strata.Query) (*strata.QuerySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []strata.Record
	for _, rec := range s.store {
		ok, err := Matches(rec, query)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, rec.Clone())
		}
	}
	return strata.NewQuerySet(s.schema, matches), nil
}

func (s *FileStorage) FindAll(ctx context.Context) (*strata.QuerySet, error) {
	return s.Find(ctx, nil)
}

func (s *FileStorage) FindOne(ctx context.Context, query strata.Query) (strata.Record, error) {
	qs, err := s.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	return exactlyOne(qs)
}

func (s *FileStorage) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *FileStorage) String() string {
	return fmt.Sprintf("<FileStorage: %s>", s.path)
}

// exactlyOne enforces FindOne cardinality over an evaluated query set.
func exactlyOne(qs *strata.QuerySet) (strata.Record, error) {
	count, err := qs.Count()
	if err != nil {
		return nil, err
	}
	switch count {
	case 1:
		return qs.At(0)
	case 0:
		return nil, strata.NewNoResultsFoundError()
	default:
		return nil, strata.NewMultipleResultsFoundError(count)
	}
}
