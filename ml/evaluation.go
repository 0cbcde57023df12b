package ml

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Defaults of the canned comparison view.
const (
	DefaultSampleSize = 20
	DefaultSampleSeed = 42
)

var ErrEvaluationShape = errors.New("evaluation series are empty or differ in length")

// EvaluationSample holds saved actual/predicted pairs from a hold-out set.
type EvaluationSample struct {
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}

func NewEvaluationSample(actual, predicted []float64) (EvaluationSample, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return EvaluationSample{}, fmt.Errorf("%w: actual=%d predicted=%d", ErrEvaluationShape, len(actual), len(predicted))
	}
	return EvaluationSample{Actual: actual, Predicted: predicted}, nil
}

// LoadEvaluation reads the two saved series. Each file is a JSON array of
// numbers or one number per line, optionally under a header line.
func LoadEvaluation(actualPath, predictedPath string) (EvaluationSample, error) {
	actual, err := loadSeries(actualPath)
	if err != nil {
		return EvaluationSample{}, err
	}
	predicted, err := loadSeries(predictedPath)
	if err != nil {
		return EvaluationSample{}, err
	}
	return NewEvaluationSample(actual, predicted)
}

func (s EvaluationSample) Len() int { return len(s.Actual) }

func loadSeries(path string) ([]float64, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	values, err := parseSeries(payload)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func parseSeries(payload []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []float64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, err
		}
		return values, nil
	}

	var values []float64
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	line := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		line++
		if text == "" {
			continue
		}
		// Exported pandas series carry "index,value" rows.
		if i := strings.LastIndexByte(text, ','); i >= 0 {
			text = strings.TrimSpace(text[i+1:])
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values = append(values, v)
	}
	return values, scanner.Err()
}

// Point is one scatter point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScatterData is actual (x) against predicted (y) plus the y=x reference
// line spanning the actual range.
type ScatterData struct {
	Points    []Point  `json:"points"`
	Reference [2]Point `json:"reference"`
}

func (s EvaluationSample) Scatter() ScatterData {
	points := make([]Point, len(s.Actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range s.Actual {
		points[i] = Point{X: s.Actual[i], Y: s.Predicted[i]}
		lo = math.Min(lo, s.Actual[i])
		hi = math.Max(hi, s.Actual[i])
	}
	if len(points) == 0 {
		lo, hi = 0, 0
	}
	return ScatterData{
		Points:    points,
		Reference: [2]Point{{X: lo, Y: lo}, {X: hi, Y: hi}},
	}
}

// ComparisonRow is one sampled pair; Source is its position in the full
// series.
type ComparisonRow struct {
	Source    int     `json:"source"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// Sample draws n pairs without replacement using a fixed seed, so the view
// shows the same rows on every load. n is capped at the series length.
func (s EvaluationSample) Sample(n int, seed int64) []ComparisonRow {
	if n <= 0 || n > s.Len() {
		n = s.Len()
	}
	perm := rand.New(rand.NewSource(seed)).Perm(s.Len())
	rows := make([]ComparisonRow, n)
	for i := 0; i < n; i++ {
		idx := perm[i]
		rows[i] = ComparisonRow{Source: idx, Actual: s.Actual[idx], Predicted: s.Predicted[idx]}
	}
	return rows
}

// EvaluationMetrics summarises prediction error over the whole sample.
type EvaluationMetrics struct {
	Count int     `json:"count"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	R2    float64 `json:"r2"`
}

func (s EvaluationSample) Metrics() EvaluationMetrics {
	n := s.Len()
	if n == 0 {
		return EvaluationMetrics{}
	}
	mean := 0.0
	for _, a := range s.Actual {
		mean += a
	}
	mean /= float64(n)

	var absErr, sqErr, total float64
	for i := range s.Actual {
		diff := s.Actual[i] - s.Predicted[i]
		absErr += math.Abs(diff)
		sqErr += diff * diff
		dev := s.Actual[i] - mean
		total += dev * dev
	}

	r2 := 0.0
	switch {
	case total > 0:
		r2 = 1 - sqErr/total
	case sqErr == 0:
		r2 = 1
	}
	return EvaluationMetrics{
		Count: n,
		MAE:   absErr / float64(n),
		RMSE:  math.Sqrt(sqErr / float64(n)),
		R2:    r2,
	}
}
