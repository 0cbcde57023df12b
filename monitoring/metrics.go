package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType names how a metric aggregates.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeSummary MetricType = "summary"
)

// Metric names recorded by the prediction service.
const (
	MetricPredictions       = "predictions_total"
	MetricBatchRows         = "batch_rows_total"
	MetricCacheHits         = "prediction_cache_hits_total"
	MetricPredictionErrors  = "prediction_errors_total"
	MetricUnrecognized      = "unrecognized_attribute_values_total"
	MetricPredictLatency    = "predict_latency_seconds"
	MetricEvaluationReloads = "evaluation_reloads_total"
)

const latencyWindow = 1000

// Summary is the aggregate of recent observations.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P95   float64 `json:"p95"`
}

// Collector holds in-process counters and latency windows.
type Collector struct {
	mu           sync.RWMutex
	counters     map[string]float64
	observations map[string][]float64
	startTime    time.Time
}

func NewCollector() *Collector {
	return &Collector{
		counters:     make(map[string]float64),
		observations: make(map[string][]float64),
		startTime:    time.Now(),
	}
}

// Add increments a counter. A nil collector is a no-op.
func (c *Collector) Add(name string, delta float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

func (c *Collector) Counter(name string) float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// ObserveDuration records d in seconds under name, keeping the most recent
// observations only.
func (c *Collector) ObserveDuration(name string, d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	obs := append(c.observations[name], d.Seconds())
	if len(obs) > latencyWindow {
		obs = obs[len(obs)-latencyWindow:]
	}
	c.observations[name] = obs
}

// Summary aggregates the observation window of name.
func (c *Collector) Summary(name string) Summary {
	if c == nil {
		return Summary{}
	}
	c.mu.RLock()
	values := append([]float64(nil), c.observations[name]...)
	c.mu.RUnlock()
	return summarize(values)
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	p95 := values[int(float64(len(values)-1)*0.95)]
	return Summary{
		Count: len(values),
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  sum / float64(len(values)),
		P95:   p95,
	}
}

// Snapshot is the JSON body of the metrics endpoint.
type Snapshot struct {
	Uptime     string             `json:"uptime"`
	Counters   map[string]float64 `json:"counters"`
	Summaries  map[string]Summary `json:"summaries"`
	Goroutines int                `json:"goroutines"`
	HeapAlloc  uint64             `json:"heap_alloc"`
	GCCount    uint32             `json:"gc_count"`
}

func (c *Collector) Snapshot() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	snap := Snapshot{
		Counters:   make(map[string]float64),
		Summaries:  make(map[string]Summary),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		GCCount:    m.NumGC,
	}
	if c == nil {
		return snap
	}

	c.mu.RLock()
	snap.Uptime = time.Since(c.startTime).Round(time.Second).String()
	for name, v := range c.counters {
		snap.Counters[name] = v
	}
	names := make([]string, 0, len(c.observations))
	for name := range c.observations {
		names = append(names, name)
	}
	c.mu.RUnlock()

	for _, name := range names {
		snap.Summaries[name] = c.Summary(name)
	}
	return snap
}

// ExportPrometheus renders counters and summaries in the text exposition
// format, sorted by name.
func (c *Collector) ExportPrometheus() string {
	snap := c.Snapshot()
	var b strings.Builder

	counterNames := make([]string, 0, len(snap.Counters))
	for name := range snap.Counters {
		counterNames = append(counterNames, name)
	}
	sort.Strings(counterNames)
	for _, name := range counterNames {
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, MetricTypeCounter)
		fmt.Fprintf(&b, "%s %g\n", name, snap.Counters[name])
	}

	summaryNames := make([]string, 0, len(snap.Summaries))
	for name := range snap.Summaries {
		summaryNames = append(summaryNames, name)
	}
	sort.Strings(summaryNames)
	for _, name := range summaryNames {
		s := snap.Summaries[name]
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, MetricTypeSummary)
		fmt.Fprintf(&b, "%s{quantile=\"0.95\"} %g\n", name, s.P95)
		fmt.Fprintf(&b, "%s_count %d\n", name, s.Count)
	}
	return b.String()
}
