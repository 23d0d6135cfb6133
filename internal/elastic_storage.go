package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/strataodm/strata"
)

// searchWindow caps how many hits one filter query materializes.
const searchWindow = 10000

// ElasticStorage is the search backend adapter. Queries are compiled to the
// JSON filter DSL and submitted as {"filter": ...} documents; documents are
// indexed under the collection's primary key.
type ElasticStorage struct {
	client     *elasticsearch.Client
	schema     strata.Schema
	index      string
	collection string
}

// NewElasticStorage wraps a configured client for one index/collection.
func NewElasticStorage(client *elasticsearch.Client, schema strata.Schema, index, collection string) *ElasticStorage {
	return &ElasticStorage{
		client:     client,
		schema:     schema,
		index:      index,
		collection: collection,
	}
}

func (s *ElasticStorage) docID(key any) string {
	return cast.ToString(key)
}

// filterDocument wraps a translated query the way the backend expects it on
// the wire.
func filterDocument(query strata.Query) (map[string]any, error) {
	clause, err := TranslateElastic(query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"filter": clause}, nil
}

func encodeBody(body any) (*bytes.Reader, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, strata.NewInternalError("encode request body", err)
	}
	return bytes.NewReader(data), nil
}

// responseError converts an HTTP-level error response into a backend error;
// transport errors from the client itself pass through unwrapped elsewhere.
func responseError(res *esapi.Response) error {
	return strata.NewBackendError("elasticsearch", res.String(), nil)
}

func (s *ElasticStorage) Get(ctx context.Context, key any) (strata.Record, bool, error) {
	res, err := s.client.Get(s.index, s.docID(key), s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, false, err
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, responseError(res)
	}
	var payload struct {
		Source map[string]any `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, false, strata.NewInternalError("decode get response", err)
	}
	return DenormalizeRecord(payload.Source), true, nil
}

func (s *ElasticStorage) Insert(ctx context.Context, key any, value strata.Record) error {
	rec := value.Clone()
	primary := s.schema.PrimaryName()
	if _, ok := rec[primary]; !ok {
		rec[primary] = key
	}
	body, err := encodeBody(NormalizeRecord(rec))
	if err != nil {
		return err
	}
	res, err := s.client.Create(s.index, s.docID(key), body, s.client.Create.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 409 {
		return strata.NewKeyExistsError(key)
	}
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

func (s *ElasticStorage) Update(ctx context.Context, query strata.Query, data strata.Record) (int, error) {
	hits, err := s.search(ctx, query)
	if err != nil {
		return 0, err
	}
	body := map[string]any{"doc": NormalizeRecord(data)}
	for _, hit := range hits {
		reader, err := encodeBody(body)
		if err != nil {
			return 0, err
		}
		res, err := s.client.Update(s.index, hit.ID, reader, s.client.Update.WithContext(ctx))
		if err != nil {
			return 0, err
		}
		res.Body.Close()
		if res.IsError() {
			return 0, responseError(res)
		}
	}
	return len(hits), nil
}

func (s *ElasticStorage) Remove(ctx context.Context, query strata.Query) (int, error) {
	doc, err := filterDocument(query)
	if err != nil {
		return 0, err
	}
	body, err := encodeBody(doc)
	if err != nil {
		return 0, err
	}
	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		body,
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError(res)
	}
	var payload struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return 0, strata.NewInternalError("decode delete response", err)
	}
	zap.S().Debugw("removed records", "collection", s.collection, "count", payload.Deleted)
	return payload.Deleted, nil
}

func (s *ElasticStorage) Find(ctx context.Context, query strata.Query) (*strata.QuerySet, error) {
	// Translate before wiring up the fetch so a malformed query never
	// reaches the backend.
	if _, err := filterDocument(query); err != nil {
		return nil, err
	}
	fetch := func() ([]strata.Record, error) {
		hits, err := s.search(ctx, query)
		if err != nil {
			return nil, err
		}
		records := make([]strata.Record, len(hits))
		for i, hit := range hits {
			records[i] = DenormalizeRecord(hit.Source)
		}
		return records, nil
	}
	return strata.NewLazyQuerySet(s.schema, fetch), nil
}

func (s *ElasticStorage) FindAll(ctx context.Context) (*strata.QuerySet, error) {
	return s.Find(ctx, nil)
}

func (s *ElasticStorage) FindOne(ctx context.Context, query strata.Query) (strata.Record, error) {
	qs, err := s.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	return exactlyOne(qs)
}

// Flush refreshes the index so freshly written documents are visible to the
// next filter query.
func (s *ElasticStorage) Flush(ctx context.Context) error {
	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithIndex(s.index),
		s.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

func (s *ElasticStorage) String() string {
	return fmt.Sprintf("<ElasticStorage: %s/%s>", s.index, s.collection)
}

type searchHit struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

func (s *ElasticStorage) search(ctx context.Context, query strata.Query) ([]searchHit, error) {
	doc, err := filterDocument(query)
	if err != nil {
		return nil, err
	}
	body, err := encodeBody(doc)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(body),
		s.client.Search.WithSize(searchWindow),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError(res)
	}
	var payload struct {
		Hits struct {
			Hits []searchHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, strata.NewInternalError("decode search response", err)
	}
	return payload.Hits.Hits, nil
}
