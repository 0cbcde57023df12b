package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"salesdash/ml"
	"salesdash/monitoring"
)

var ErrEvaluationUnavailable = errors.New("evaluation data unavailable")

// Evaluation chart kinds.
const (
	ChartNone    = "none"
	ChartScatter = "scatter"
	ChartBar     = "bar"
)

// ParseChart validates a chart selector; empty means none.
func ParseChart(v string) (string, error) {
	switch v {
	case "", ChartNone:
		return ChartNone, nil
	case ChartScatter, ChartBar:
		return v, nil
	}
	return "", fmt.Errorf("unknown chart %q (want none, scatter or bar)", v)
}

const sampleKey = "evaluation"

// EvaluationOptions configures an EvaluationStore. Zero SampleSize and Seed
// fall back to ml.DefaultSampleSize and ml.DefaultSampleSeed.
type EvaluationOptions struct {
	ActualPath    string
	PredictedPath string
	SampleSize    int
	Seed          int64
	Publisher     Publisher
	Metrics       *monitoring.Collector
	Logger        *zap.Logger
}

// EvaluationStore serves the saved hold-out predictions, loading them on
// first use and again after Invalidate.
type EvaluationStore struct {
	opts  EvaluationOptions
	cache *lru.Cache[string, ml.EvaluationSample]
	log   *zap.Logger
	read  func(actualPath, predictedPath string) (ml.EvaluationSample, error)

	// generation is bumped by Invalidate; a load only caches its result if
	// no invalidation happened while it was reading.
	mu         sync.Mutex
	generation uint64
}

func NewEvaluationStore(opts EvaluationOptions) *EvaluationStore {
	if opts.SampleSize <= 0 {
		opts.SampleSize = ml.DefaultSampleSize
	}
	if opts.Seed == 0 {
		opts.Seed = ml.DefaultSampleSeed
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Size 1 cannot fail.
	cache, _ := lru.New[string, ml.EvaluationSample](1)
	return &EvaluationStore{
		opts:  opts,
		cache: cache,
		log:   logger.Named("evaluation"),
		read:  ml.LoadEvaluation,
	}
}

// Load returns the cached sample, reading the files when needed. Errors
// wrap ErrEvaluationUnavailable.
func (e *EvaluationStore) Load() (ml.EvaluationSample, error) {
	if sample, ok := e.cache.Get(sampleKey); ok {
		return sample, nil
	}
	if e.opts.ActualPath == "" || e.opts.PredictedPath == "" {
		return ml.EvaluationSample{}, fmt.Errorf("%w: no evaluation files configured", ErrEvaluationUnavailable)
	}
	e.mu.Lock()
	generation := e.generation
	e.mu.Unlock()

	sample, err := e.read(e.opts.ActualPath, e.opts.PredictedPath)
	if err != nil {
		return ml.EvaluationSample{}, fmt.Errorf("%w: %v", ErrEvaluationUnavailable, err)
	}

	e.mu.Lock()
	if e.generation == generation {
		e.cache.Add(sampleKey, sample)
	}
	e.mu.Unlock()
	return sample, nil
}

func (e *EvaluationStore) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.cache.Purge()
}

// EvaluationView is what the evaluation page and API render. Warning is set
// instead of the data when the files cannot be loaded.
type EvaluationView struct {
	Chart      string                `json:"chart"`
	Scatter    *ml.ScatterData       `json:"scatter,omitempty"`
	Comparison []ml.ComparisonRow    `json:"comparison,omitempty"`
	Metrics    *ml.EvaluationMetrics `json:"metrics,omitempty"`
	Warning    string                `json:"warning,omitempty"`
}

// View builds the view for chart, which must already be parsed.
func (e *EvaluationStore) View(chart string) EvaluationView {
	view := EvaluationView{Chart: chart}
	if chart == ChartNone {
		return view
	}
	sample, err := e.Load()
	if err != nil {
		e.log.Warn("evaluation view", zap.Error(err))
		view.Warning = err.Error()
		return view
	}
	metrics := sample.Metrics()
	view.Metrics = &metrics
	switch chart {
	case ChartScatter:
		scatter := sample.Scatter()
		view.Scatter = &scatter
	case ChartBar:
		view.Comparison = sample.Sample(e.opts.SampleSize, e.opts.Seed)
	}
	return view
}

// Watch invalidates the cache whenever either evaluation file changes and
// blocks until ctx is done. Parent directories are watched so files that
// are replaced rather than rewritten are still seen.
func (e *EvaluationStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range []string{e.opts.ActualPath, e.opts.PredictedPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	e.log.Info("watching evaluation files", zap.Int("files", len(targets)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			e.Invalidate()
			e.opts.Metrics.Add(monitoring.MetricEvaluationReloads, 1)
			e.log.Info("evaluation file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if e.opts.Publisher != nil {
				e.opts.Publisher.Publish(monitoring.EvaluationReloaded, map[string]string{"file": filepath.Base(event.Name)})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.log.Warn("evaluation watcher", zap.Error(err))
		}
	}
}
