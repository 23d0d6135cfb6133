// Package factory wires configuration, backend clients and logging into
// ready-to-use Storage values. This is the primary way for external projects
// to construct an adapter.
//
// Usage:
//
//	cfg := strata.DefaultConfig()
//	schema := strata.CollectionSchema{Primary: "_id"}
//	store, err := factory.NewFileStorage(cfg, schema, "people")
//	if err != nil {
//	    // handle error
//	}
package factory

import (
	"context"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/strataodm/strata"
	"github.com/strataodm/strata/internal"
)

// InitLogging builds a logger from the config and installs it as the global
// zap logger used throughout the module.
func InitLogging(cfg *strata.Config) (*zap.Logger, error) {
	logger, err := strata.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// NewMemoryStorage returns the ephemeral map-backed store.
func NewMemoryStorage(schema strata.Schema, collection string) strata.Storage {
	return internal.NewMemoryStorage(schema, collection)
}

// NewFileStorage returns the map-backed file store, loading the collection
// file if it already exists.
func NewFileStorage(cfg *strata.Config, schema strata.Schema, collection string) (strata.Storage, error) {
	return internal.NewFileStorage(schema, collection, cfg.File)
}

// NewRedisStorage connects a key-value store adapter using the configured
// client settings.
func NewRedisStorage(cfg *strata.Config, schema strata.Schema, collection string) (strata.Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	return internal.NewRedisStorage(client, schema, collection), nil
}

// NewRedisStorageWithClient wraps an already-configured client, e.g. a
// shared pool owned by the caller.
func NewRedisStorageWithClient(client redis.UniversalClient, schema strata.Schema, collection string) strata.Storage {
	return internal.NewRedisStorage(client, schema, collection)
}

// NewElasticStorage connects a search backend adapter.
func NewElasticStorage(cfg *strata.Config, schema strata.Schema, collection string) (strata.Storage, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		return nil, strata.NewBackendError("elasticsearch", "create client", err)
	}
	return internal.NewElasticStorage(client, schema, cfg.Elastic.Index, collection), nil
}

// NewElasticStorageWithClient wraps an already-configured client.
func NewElasticStorageWithClient(client *elasticsearch.Client, schema strata.Schema, index, collection string) strata.Storage {
	return internal.NewElasticStorage(client, schema, index, collection)
}

// NewMongoStorage connects a document backend adapter and verifies the
// connection.
func NewMongoStorage(ctx context.Context, cfg *strata.Config, schema strata.Schema, collection string) (strata.Storage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI).SetTimeout(cfg.Mongo.Timeout))
	if err != nil {
		return nil, strata.NewBackendError("mongodb", "connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, strata.NewBackendError("mongodb", "ping", err)
	}
	coll := client.Database(cfg.Mongo.Database).Collection(collection)
	return internal.NewMongoStorage(coll, schema), nil
}

// NewMongoStorageWithCollection wraps an already-configured collection
// handle.
func NewMongoStorageWithCollection(coll *mongo.Collection, schema strata.Schema) strata.Storage {
	return internal.NewMongoStorage(coll, schema)
}
