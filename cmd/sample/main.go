// Command sample demonstrates the query algebra against the in-memory
// backend: insert a handful of people, then run a few portable queries and
// a sorted, paginated find.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strataodm/strata"
	"github.com/strataodm/strata/factory"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sample:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := strata.DefaultConfig()
	cfg.Logging.Development = true
	logger, err := factory.InitLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	var store strata.Storage
	schema := strata.CollectionSchema{
		Primary: "_id",
		Loader: func(key any) (strata.Record, error) {
			rec, ok, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, strata.NewNoResultsFoundError()
			}
			return rec, nil
		},
	}
	store = factory.NewMemoryStorage(schema, "people")

	people := []strata.Record{
		{"name": "Ada", "age": 36},
		{"name": "Grace", "age": 45},
		{"name": "Edsger", "age": 72},
		{"name": "Barbara", "age": 28},
		{"name": "Donald", "age": 45},
	}
	for _, person := range people {
		if err := store.Insert(ctx, uuid.NewString(), person); err != nil {
			return err
		}
	}
	zap.S().Infow("inserted records", "collection", "people", "count", len(people))

	over30, err := strata.NewQuery("age", strata.OpGt, 30)
	if err != nil {
		return err
	}
	notGrace, err := strata.NewQuery("name", strata.OpNe, "Grace")
	if err != nil {
		return err
	}
	query, err := strata.And(over30, notGrace)
	if err != nil {
		return err
	}

	qs, err := store.Find(ctx, query)
	if err != nil {
		return err
	}
	fmt.Printf("query: %s\n", query)
	for rec, err := range qs.Sort("age", "name").All() {
		if err != nil {
			return err
		}
		fmt.Printf("  %v (%v)\n", rec["name"], rec["age"])
	}

	page, err := store.FindAll(ctx)
	if err != nil {
		return err
	}
	page = page.Sort("-age").Offset(1).Limit(2)
	count, err := page.Count()
	if err != nil {
		return err
	}
	fmt.Printf("page of %d:\n", count)
	for rec, err := range page.All() {
		if err != nil {
			return err
		}
		fmt.Printf("  %v (%v)\n", rec["name"], rec["age"])
	}

	ada, err := store.FindOne(ctx, &strata.RawQuery{Attribute: "name", Operator: strata.OpEq, Argument: "Ada"})
	if err != nil {
		return err
	}
	fmt.Printf("find one: %v is %v\n", ada["name"], ada["age"])

	return nil
}
