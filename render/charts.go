// Package render draws dashboard charts as SVG and formats sales figures.
package render

import (
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"salesdash/ml"
)

var ErrNoData = errors.New("nothing to plot")

const (
	chartHeight   = 480
	minChartWidth = 640
	maxChartWidth = 2400
	barPixels     = 24
)

// padRange widens [lo, hi] so go-chart never sees a zero-width axis.
func padRange(lo, hi float64) *chart.ContinuousRange {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		lo, hi = 0, 1
	}
	if hi <= lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func bounds(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// ScatterSVG plots actual (x) against predicted (y) with the y=x reference
// line.
func ScatterSVG(w io.Writer, data ml.ScatterData) error {
	if len(data.Points) == 0 {
		return ErrNoData
	}
	xs := make([]float64, len(data.Points))
	ys := make([]float64, len(data.Points))
	for i, p := range data.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	ref := data.Reference
	lo, hi := bounds(xs, ys, []float64{ref[0].X, ref[1].X})

	graph := chart.Chart{
		Title:  "Actual vs Predicted Sales",
		Width:  minChartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "Actual Sales", Range: padRange(lo, hi)},
		YAxis:  chart.YAxis{Name: "Predicted Sales", Range: padRange(lo, hi)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Predictions",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
					DotColor:    chart.ColorBlue,
				},
			},
			chart.ContinuousSeries{
				Name:    "Ideal",
				XValues: []float64{ref[0].X, ref[1].X},
				YValues: []float64{ref[0].Y, ref[1].Y},
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeWidth:     2,
					StrokeDashArray: []float64{5, 5},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.SVG, w)
}

// ComparisonSVG draws sampled actual and predicted values side by side,
// one position per sampled row.
func ComparisonSVG(w io.Writer, rows []ml.ComparisonRow) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	xs := make([]float64, len(rows))
	actual := make([]float64, len(rows))
	predicted := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = float64(i + 1)
		actual[i] = r.Actual
		predicted[i] = r.Predicted
	}
	lo, hi := bounds(actual, predicted)

	graph := chart.Chart{
		Title:  "Actual vs Predicted (sample)",
		Width:  chartWidth(len(rows) * 2),
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "Sample", Range: padRange(1, float64(len(rows)))},
		YAxis:  chart.YAxis{Name: "Sales", Range: padRange(math.Min(lo, 0), hi)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Actual",
				XValues: xs,
				YValues: actual,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotWidth: 4, DotColor: chart.ColorBlue},
			},
			chart.ContinuousSeries{
				Name:    "Predicted",
				XValues: xs,
				YValues: predicted,
				Style:   chart.Style{StrokeColor: chart.ColorOrange, StrokeWidth: 2, DotWidth: 4, DotColor: chart.ColorOrange},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.SVG, w)
}

// PredictionsSVG draws one bar per batch row, labelled by row index.
func PredictionsSVG(w io.Writer, values []float64) error {
	if len(values) == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(values))
	for i, v := range values {
		bars[i] = chart.Value{Label: strconv.Itoa(i), Value: v}
	}
	lo, hi := bounds(values)

	graph := chart.BarChart{
		Title:    "Predicted Sales by Product",
		Width:    chartWidth(len(values)),
		Height:   chartHeight,
		BarWidth: barPixels / 2,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{Range: padRange(math.Min(lo, 0), hi)},
		Bars:  bars,
	}
	return graph.Render(chart.SVG, w)
}

func chartWidth(bars int) int {
	width := bars*barPixels + 120
	if width < minChartWidth {
		return minChartWidth
	}
	if width > maxChartWidth {
		return maxChartWidth
	}
	return width
}
