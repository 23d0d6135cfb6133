package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Clone(t *testing.T) {
	original := Record{"name": "Ada", "age": 36}
	clone := original.Clone()
	clone["age"] = 37

	assert.Equal(t, 36, original["age"])
	assert.Equal(t, 37, clone["age"])
	assert.Nil(t, Record(nil).Clone())
}

func TestRecord_Merge(t *testing.T) {
	rec := Record{"name": "Ada", "age": 36, "field": "math"}
	rec.Merge(Record{"age": 37, "city": "London"})

	assert.Equal(t, Record{"name": "Ada", "age": 37, "field": "math", "city": "London"}, rec)
}

func TestCollectionSchema(t *testing.T) {
	schema := CollectionSchema{
		Primary: "id",
		Loader: func(key any) (Record, error) {
			return Record{"id": key}, nil
		},
	}
	assert.Equal(t, "id", schema.PrimaryName())

	rec, err := schema.Load("k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", rec["id"])

	_, err = CollectionSchema{Primary: "id"}.Load("k1")
	assert.Error(t, err, "schema without loader cannot hydrate")
}
