package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordSingleAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordSingle(ctx, map[string]float64{"price": 49.9, "gender_male": 1}, 120.5))
	require.NoError(t, store.RecordSingle(ctx, map[string]float64{"price": 10}, 7))

	records, err := store.RecentPredictions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 7.0, records[0].Predicted)
	assert.Equal(t, SourceSingle, records[0].Source)
	assert.Empty(t, records[0].BatchID)
	assert.Equal(t, 49.9, records[1].Features["price"])
}

func TestRecordBatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.RecordBatch(ctx, "products.csv",
		[]map[string]float64{{"price": 1}, {"price": 2}, {"price": 3}},
		[]float64{10, 20, 30})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	records, err := store.RecentPredictions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 30.0, records[0].Predicted)
	assert.Equal(t, id, records[0].BatchID)
	assert.Equal(t, 2, records[0].RowIndex)

	batches, err := store.Batches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "products.csv", batches[0].Filename)
	assert.Equal(t, 3, batches[0].Rows)
}

func TestRecordBatchLengthMismatch(t *testing.T) {
	store := openTestStore(t)
	_, err := store.RecordBatch(context.Background(), "x.csv", []map[string]float64{{}}, nil)
	require.Error(t, err)

	batches, err := store.Batches(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestNilStore(t *testing.T) {
	var store *Store
	err := store.RecordSingle(context.Background(), nil, 1)
	assert.True(t, errors.Is(err, ErrNotInitialized))
	_, err = store.RecentPredictions(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrNotInitialized))
}
