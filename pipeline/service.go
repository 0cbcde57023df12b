package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"salesdash/ml"
	"salesdash/monitoring"
)

// PredictedSalesColumn is appended to batch results.
const PredictedSalesColumn = "Predicted_Sales"

// History persists served predictions.
type History interface {
	RecordSingle(ctx context.Context, features map[string]float64, predicted float64) error
	RecordBatch(ctx context.Context, filename string, features []map[string]float64, predicted []float64) (string, error)
}

// Publisher pushes events to connected dashboards.
type Publisher interface {
	Publish(kind monitoring.MessageType, payload any)
}

// Options wires a Service. Model is required; the schema defaults to
// ml.DefaultSchema and Now to time.Now. History, Publisher and Metrics are
// optional.
type Options struct {
	Model     ml.Model
	Schema    ml.Schema
	History   History
	Publisher Publisher
	Metrics   *monitoring.Collector
	Logger    *zap.Logger
	CacheSize int
	Strict    bool
	Now       func() time.Time
}

// Service encodes product descriptions and runs them through the model.
// It is safe for concurrent use; the model and schema are read-only.
type Service struct {
	model     ml.Model
	schema    ml.Schema
	history   History
	publisher Publisher
	metrics   *monitoring.Collector
	logger    *zap.Logger
	cache     *lru.Cache[string, float64]
	cleaner   *DataCleaner
	strict    bool
	now       func() time.Time
}

// NewService checks the model against the schema and builds the service.
func NewService(opts Options) (*Service, error) {
	if opts.Model == nil {
		return nil, errors.New("model is required")
	}
	schema := opts.Schema
	if schema.Len() == 0 {
		schema = ml.DefaultSchema()
	}
	if err := ml.CheckCompatibility(opts.Model, schema); err != nil {
		return nil, err
	}

	s := &Service{
		model:     opts.Model,
		schema:    schema,
		history:   opts.History,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		cleaner:   NewDataCleaner(),
		strict:    opts.Strict,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, float64](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *Service) Schema() ml.Schema { return s.schema }

// CleaningStats reports the running upload quality totals.
func (s *Service) CleaningStats() CleaningStats { return s.cleaner.GetStats() }

// Prediction is the result of a single-product request.
type Prediction struct {
	Features       ml.FeatureVector       `json:"features"`
	PredictedSales float64                `json:"predicted_sales"`
	ReferenceDate  time.Time              `json:"reference_date"`
	Cached         bool                   `json:"cached"`
	Unrecognized   []ml.UnrecognizedValue `json:"unrecognized,omitempty"`
}

// PredictOne encodes attrs against the reference date (observation date or
// now) and predicts its sales.
func (s *Service) PredictOne(ctx context.Context, attrs ml.ProductAttributes) (*Prediction, error) {
	start := time.Now()

	unknown := attrs.Unrecognized()
	if len(unknown) > 0 {
		if s.strict {
			return nil, fmt.Errorf("%w: %s", ml.ErrUnrecognizedValue, describeUnknown(unknown))
		}
		s.metrics.Add(monitoring.MetricUnrecognized, float64(len(unknown)))
		s.logger.Warn("unrecognized attribute values encoded as baseline",
			zap.String("values", describeUnknown(unknown)))
	}

	ref := attrs.ReferenceDate(s.now())
	vector := ml.Encode(attrs, s.schema, ref)

	key := cacheKey(vector)
	predicted, cached := s.lookup(key)
	if !cached {
		preds, err := ml.PredictVectors(ctx, s.model, []ml.FeatureVector{vector})
		if err != nil {
			s.metrics.Add(monitoring.MetricPredictionErrors, 1)
			return nil, fmt.Errorf("predict: %w", err)
		}
		predicted = preds[0]
		if s.cache != nil {
			s.cache.Add(key, predicted)
		}
	} else {
		s.metrics.Add(monitoring.MetricCacheHits, 1)
	}

	if s.history != nil {
		if err := s.history.RecordSingle(ctx, vector.Map(), predicted); err != nil {
			s.logger.Warn("record prediction", zap.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(monitoring.PredictionMade, monitoring.PredictionEvent{
			PredictedSales: predicted,
			Cached:         cached,
		})
	}
	s.metrics.Add(monitoring.MetricPredictions, 1)
	s.metrics.ObserveDuration(monitoring.MetricPredictLatency, time.Since(start))

	return &Prediction{
		Features:       vector,
		PredictedSales: predicted,
		ReferenceDate:  ref,
		Cached:         cached,
		Unrecognized:   unknown,
	}, nil
}

func (s *Service) lookup(key string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	return s.cache.Get(key)
}

// cacheKey renders a vector exactly; the model is deterministic per vector.
func cacheKey(v ml.FeatureVector) string {
	var b strings.Builder
	for i, x := range v.Values() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return b.String()
}

func describeUnknown(unknown []ml.UnrecognizedValue) string {
	parts := make([]string, len(unknown))
	for i, u := range unknown {
		parts[i] = fmt.Sprintf("%s=%q", u.Attribute, u.Value)
	}
	return strings.Join(parts, ", ")
}

// BatchRow is one uploaded row with its prediction.
type BatchRow struct {
	Values         ml.Record `json:"values"`
	PredictedSales float64   `json:"predicted_sales"`
}

// BatchResult is the upload table plus a Predicted_Sales column.
type BatchResult struct {
	BatchID       string         `json:"batch_id,omitempty"`
	Filename      string         `json:"filename,omitempty"`
	Columns       []string       `json:"columns"`
	Rows          []BatchRow     `json:"rows"`
	Issues        []QualityIssue `json:"issues,omitempty"`
	ReferenceDate time.Time      `json:"reference_date"`
}

// Predictions returns the predicted column in row order.
func (r *BatchResult) Predictions() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.PredictedSales
	}
	return out
}

func (r *BatchResult) Total() float64 {
	total := 0.0
	for _, row := range r.Rows {
		total += row.PredictedSales
	}
	return total
}

// PredictBatch encodes every uploaded row and predicts them in one model
// call. Any row that fails to encode aborts the batch.
func (s *Service) PredictBatch(ctx context.Context, filename string, upload Upload) (*BatchResult, error) {
	start := time.Now()
	ref := s.now()

	records, issues := s.cleaner.Clean(upload.Records)
	for _, issue := range issues {
		if s.strict && issue.Rule == (UnrecognizedValueRule{}).Name() {
			return nil, &ml.RowError{
				Row:    issue.Row,
				Column: issue.Column,
				Value:  records[issue.Row][issue.Column],
				Err:    ml.ErrUnrecognizedValue,
			}
		}
	}
	if len(issues) > 0 {
		s.logger.Warn("upload quality issues", zap.String("file", filename), zap.Int("issues", len(issues)))
	}

	result := &BatchResult{
		Filename:      filename,
		Columns:       append(append([]string(nil), upload.Columns...), PredictedSalesColumn),
		Rows:          make([]BatchRow, len(records)),
		Issues:        issues,
		ReferenceDate: ref,
	}
	if len(records) == 0 {
		return result, nil
	}

	vectors, err := ml.EncodeRecords(records, s.schema, ref)
	if err != nil {
		s.metrics.Add(monitoring.MetricPredictionErrors, 1)
		return nil, err
	}
	preds, err := ml.PredictVectors(ctx, s.model, vectors)
	if err != nil {
		s.metrics.Add(monitoring.MetricPredictionErrors, 1)
		return nil, fmt.Errorf("predict: %w", err)
	}
	for i := range records {
		result.Rows[i] = BatchRow{Values: records[i], PredictedSales: preds[i]}
	}

	if s.history != nil {
		features := make([]map[string]float64, len(vectors))
		for i, v := range vectors {
			features[i] = v.Map()
		}
		id, err := s.history.RecordBatch(ctx, filename, features, preds)
		if err != nil {
			s.logger.Warn("record batch", zap.String("file", filename), zap.Error(err))
		}
		result.BatchID = id
	}
	if s.publisher != nil {
		s.publisher.Publish(monitoring.BatchPredicted, monitoring.BatchEvent{
			BatchID: result.BatchID,
			Rows:    len(result.Rows),
			Total:   result.Total(),
		})
	}
	s.metrics.Add(monitoring.MetricBatchRows, float64(len(records)))
	s.metrics.ObserveDuration(monitoring.MetricPredictLatency, time.Since(start))
	s.logger.Info("batch predicted",
		zap.String("file", filename),
		zap.Int("rows", len(records)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
