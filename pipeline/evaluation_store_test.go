package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/ml"
	"salesdash/monitoring"
)

func writeSeries(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newEvaluationFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	actual := filepath.Join(dir, "y_test.json")
	predicted := filepath.Join(dir, "y_pred.json")
	writeSeries(t, actual, "[10, 20, 30, 40]")
	writeSeries(t, predicted, "[12, 18, 33, 39]")
	return actual, predicted
}

func TestParseChart(t *testing.T) {
	for in, want := range map[string]string{"": ChartNone, "none": ChartNone, "scatter": ChartScatter, "bar": ChartBar} {
		got, err := ParseChart(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseChart("pie")
	assert.Error(t, err)
}

func TestEvaluationStoreView(t *testing.T) {
	actual, predicted := newEvaluationFiles(t)
	store := NewEvaluationStore(EvaluationOptions{ActualPath: actual, PredictedPath: predicted})

	none := store.View(ChartNone)
	assert.Nil(t, none.Scatter)
	assert.Nil(t, none.Metrics)

	scatter := store.View(ChartScatter)
	require.NotNil(t, scatter.Scatter)
	assert.Len(t, scatter.Scatter.Points, 4)
	assert.Equal(t, 10.0, scatter.Scatter.Reference[0].X)
	assert.Equal(t, 40.0, scatter.Scatter.Reference[1].Y)
	assert.Equal(t, 4, scatter.Metrics.Count)

	bar := store.View(ChartBar)
	assert.Len(t, bar.Comparison, 4)
	assert.Empty(t, bar.Warning)
}

func TestEvaluationStoreMissingFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewEvaluationStore(EvaluationOptions{
		ActualPath:    filepath.Join(dir, "missing.json"),
		PredictedPath: filepath.Join(dir, "missing_too.json"),
	})

	_, err := store.Load()
	assert.True(t, errors.Is(err, ErrEvaluationUnavailable))

	view := store.View(ChartScatter)
	assert.NotEmpty(t, view.Warning)
	assert.Nil(t, view.Scatter)
}

func TestEvaluationStoreCachesUntilInvalidated(t *testing.T) {
	actual, predicted := newEvaluationFiles(t)
	store := NewEvaluationStore(EvaluationOptions{ActualPath: actual, PredictedPath: predicted})

	first, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, first.Len())

	writeSeries(t, actual, "[1, 2]")
	writeSeries(t, predicted, "[1, 2]")

	cached, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cached.Len())

	store.Invalidate()
	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}

func TestEvaluationStoreDropsLoadRacingInvalidate(t *testing.T) {
	actual, predicted := newEvaluationFiles(t)
	store := NewEvaluationStore(EvaluationOptions{ActualPath: actual, PredictedPath: predicted})

	// The files change while the first read is in flight.
	reads := 0
	store.read = func(a, p string) (ml.EvaluationSample, error) {
		reads++
		sample, err := ml.LoadEvaluation(a, p)
		if reads == 1 {
			writeSeries(t, actual, "[1, 2]")
			writeSeries(t, predicted, "[1, 2]")
			store.Invalidate()
		}
		return sample, err
	}

	stale, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, stale.Len())

	fresh, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Len())
	assert.Equal(t, 2, reads)

	_, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, reads, "fresh sample should be cached")
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []monitoring.MessageType
}

func (p *recordingPublisher) Publish(kind monitoring.MessageType, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.kinds)
}

func TestEvaluationStoreWatch(t *testing.T) {
	actual, predicted := newEvaluationFiles(t)
	publisher := &recordingPublisher{}
	store := NewEvaluationStore(EvaluationOptions{
		ActualPath:    actual,
		PredictedPath: predicted,
		Publisher:     publisher,
	})
	_, err := store.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher time to register before touching the files.
	time.Sleep(100 * time.Millisecond)
	writeSeries(t, actual, "[5, 6, 7]")
	writeSeries(t, predicted, "[5, 6, 8]")

	require.Eventually(t, func() bool { return publisher.count() > 0 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		sample, err := store.Load()
		return err == nil && sample.Len() == 3
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
