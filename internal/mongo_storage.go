package internal

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/strataodm/strata"
)

// MongoStorage is the document backend adapter. Queries are compiled to the
// operator-dict dialect and handed to the driver; records are stored with
// the primary key mirrored into _id so the engine itself enforces key
// uniqueness.
type MongoStorage struct {
	coll   *mongo.Collection
	schema strata.Schema
}

// NewMongoStorage wraps a configured collection handle.
func NewMongoStorage(coll *mongo.Collection, schema strata.Schema) *MongoStorage {
	return &MongoStorage{coll: coll, schema: schema}
}

// toRecord converts a decoded document, dropping the engine's _id mirror.
func (s *MongoStorage) toRecord(doc bson.M) strata.Record {
	rec := make(strata.Record, len(doc))
	for k, v := range doc {
		if k == "_id" && s.schema.PrimaryName() != "_id" {
			continue
		}
		rec[k] = v
	}
	return rec
}

func (s *MongoStorage) Get(ctx context.Context, key any) (strata.Record, bool, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{s.schema.PrimaryName(): key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s.toRecord(doc), true, nil
}

func (s *MongoStorage) Insert(ctx context.Context, key any, value strata.Record) error {
	primary := s.schema.PrimaryName()
	count, err := s.coll.CountDocuments(ctx, bson.M{primary: key})
	if err != nil {
		return err
	}
	if count > 0 {
		return strata.NewKeyExistsError(key)
	}
	doc := bson.M{"_id": key}
	for k, v := range value {
		doc[k] = v
	}
	if _, ok := doc[primary]; !ok {
		doc[primary] = key
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return strata.NewKeyExistsError(key)
		}
		return err
	}
	return nil
}

func (s *MongoStorage) Update(ctx context.Context, query strata.Query, data strata.Record) (int, error) {
	filter, err := TranslateMongo(query)
	if err != nil {
		return 0, err
	}
	res, err := s.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M(data)})
	if err != nil {
		return 0, err
	}
	return int(res.MatchedCount), nil
}

func (s *MongoStorage) Remove(ctx context.Context, query strata.Query) (int, error) {
	filter, err := TranslateMongo(query)
	if err != nil {
		return 0, err
	}
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStorage) Find(ctx context.Context, query strata.Query) (*strata.QuerySet, error) {
	// Translation errors surface here, before any cursor is opened.
	filter, err := TranslateMongo(query)
	if err != nil {
		return nil, err
	}
	fetch := func() ([]strata.Record, error) {
		cursor, err := s.coll.Find(ctx, filter)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		var records []strata.Record
		for cursor.Next(ctx) {
			var doc bson.M
			if err := cursor.Decode(&doc); err != nil {
				return nil, err
			}
			records = append(records, s.toRecord(doc))
		}
		return records, cursor.Err()
	}
	return strata.NewLazyQuerySet(s.schema, fetch), nil
}

func (s *MongoStorage) FindAll(ctx context.Context) (*strata.QuerySet, error) {
	return s.Find(ctx, nil)
}

func (s *MongoStorage) FindOne(ctx context.Context, query strata.Query) (strata.Record, error) {
	qs, err := s.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	return exactlyOne(qs)
}

// Flush is a no-op: writes are durable per the backend's write concern.
func (s *MongoStorage) Flush(ctx context.Context) error {
	return nil
}

func (s *MongoStorage) String() string {
	return fmt.Sprintf("<MongoStorage: %s>", s.coll.Name())
}
