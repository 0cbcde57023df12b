package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"salesdash/ml"
)

func TestScatterSVG(t *testing.T) {
	sample, err := ml.NewEvaluationSample([]float64{10, 20, 30}, []float64{12, 19, 33})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := ScatterSVG(&buf, sample.Scatter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Fatalf("output is not svg: %.80s", buf.String())
	}
}

func TestScatterSVGSinglePoint(t *testing.T) {
	sample, _ := ml.NewEvaluationSample([]float64{5}, []float64{5})
	var buf bytes.Buffer
	if err := ScatterSVG(&buf, sample.Scatter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComparisonSVG(t *testing.T) {
	sample, _ := ml.NewEvaluationSample([]float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 4.5})
	var buf bytes.Buffer
	if err := ComparisonSVG(&buf, sample.Sample(ml.DefaultSampleSize, ml.DefaultSampleSeed)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Fatal("output is not svg")
	}
}

func TestPredictionsSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := PredictionsSVG(&buf, []float64{120.5, 80, 99.9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Fatal("output is not svg")
	}
}

func TestEmptyInputs(t *testing.T) {
	var buf bytes.Buffer
	if err := PredictionsSVG(&buf, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("PredictionsSVG: expected ErrNoData, got %v", err)
	}
	if err := ComparisonSVG(&buf, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("ComparisonSVG: expected ErrNoData, got %v", err)
	}
	if err := ScatterSVG(&buf, ml.ScatterData{}); !errors.Is(err, ErrNoData) {
		t.Errorf("ScatterSVG: expected ErrNoData, got %v", err)
	}
}

func TestChartWidth(t *testing.T) {
	if got := chartWidth(1); got != minChartWidth {
		t.Errorf("chartWidth(1) = %d", got)
	}
	if got := chartWidth(10000); got != maxChartWidth {
		t.Errorf("chartWidth(10000) = %d", got)
	}
}

func TestPadRange(t *testing.T) {
	r := padRange(5, 5)
	if r.Min >= 5 || r.Max <= 5 {
		t.Fatalf("degenerate range not widened: %+v", r)
	}
}

func TestFormatSales(t *testing.T) {
	tests := map[float64]string{
		0:         "0.00 units",
		12.346:    "12.35 units",
		1234567.5: "1,234,567.50 units",
	}
	for in, want := range tests {
		if got := FormatSales(in); got != want {
			t.Errorf("FormatSales(%v) = %q, want %q", in, got, want)
		}
	}
	if got := FormatCount(1500); got != "1,500" {
		t.Errorf("FormatCount = %q", got)
	}
}
