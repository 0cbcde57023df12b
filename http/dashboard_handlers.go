package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"salesdash/ml"
	"salesdash/pipeline"
	"salesdash/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Slider bounds and starting values of the single-product form.
const (
	defaultPrice = 450
	defaultCost  = 300
	minPrice     = 10
	maxPrice     = 5000
	minCost      = 10
	maxCost      = 4000
)

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"sales":  render.FormatSales,
		"number": render.FormatNumber,
		"count":  render.FormatCount,
		"cell":   func(rec ml.Record, column string) string { return rec[column] },
		"label":  attributeLabel,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pageRenderer{tmpl: tmpl}, nil
}

type chartOption struct {
	Value string
	Label string
}

var chartOptions = []chartOption{
	{pipeline.ChartNone, "None"},
	{pipeline.ChartScatter, "Scatter Plot"},
	{pipeline.ChartBar, "Bar Chart (20 Samples)"},
}

type formValues struct {
	Price    string
	Cost     string
	Date     string
	Selected map[string]string
}

type pageData struct {
	Attributes []ml.AttributeEncoding
	Form       formValues
	Bounds     map[string]int

	Prediction *pipeline.Prediction

	Batch        *pipeline.BatchResult
	BatchColumns []string
	BatchChart   template.HTML

	Charts          []chartOption
	Chart           string
	Evaluation      *pipeline.EvaluationView
	EvaluationChart template.HTML

	Error    string
	Warnings []string
}

func attributeLabel(attribute string) string {
	words := strings.Split(attribute, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func newPageData() pageData {
	selected := make(map[string]string)
	encodings := ml.AttributeEncodings()
	for _, enc := range encodings {
		selected[enc.Attribute] = enc.Values[0]
	}
	return pageData{
		Attributes: encodings,
		Form: formValues{
			Price:    strconv.Itoa(defaultPrice),
			Cost:     strconv.Itoa(defaultCost),
			Selected: selected,
		},
		Bounds: map[string]int{
			"min_price": minPrice, "max_price": maxPrice,
			"min_cost": minCost, "max_cost": maxCost,
		},
		Charts: chartOptions,
		Chart:  pipeline.ChartNone,
	}
}

// RegisterDashboardRoutes mounts the HTML pages.
func (h *Handler) RegisterDashboardRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
	mux.HandleFunc("POST /upload", h.handleUploadForm)
	mux.HandleFunc("GET /evaluation", h.handleEvaluationPage)
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.pages.tmpl.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, newPageData())
}

// formAttributes reads the single-product form. Missing selections keep
// their empty value and encode as the baseline.
func formAttributes(r *http.Request) (ml.ProductAttributes, formValues, error) {
	form := formValues{
		Price:    r.PostFormValue("price"),
		Cost:     r.PostFormValue("cost"),
		Date:     r.PostFormValue("observation_date"),
		Selected: make(map[string]string),
	}
	for _, enc := range ml.AttributeEncodings() {
		form.Selected[enc.Attribute] = r.PostFormValue(enc.Attribute)
	}

	req := predictRequest{
		Gender:          form.Selected[ml.AttrGender],
		Category:        form.Selected[ml.AttrCategory],
		Brand:           form.Selected[ml.AttrBrand],
		Collection:      form.Selected[ml.AttrCollection],
		PriceTier:       form.Selected[ml.AttrPriceTier],
		Style:           form.Selected[ml.AttrStyle],
		ObservationDate: form.Date,
	}
	var err error
	if req.Price, err = formNumber("price", form.Price); err != nil {
		return ml.ProductAttributes{}, form, err
	}
	if req.Cost, err = formNumber("cost", form.Cost); err != nil {
		return ml.ProductAttributes{}, form, err
	}
	attrs, err := req.attributes()
	return attrs, form, err
}

func formNumber(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s %q", ml.ErrInvalidValue, name, v)
	}
	return f, nil
}

func (h *Handler) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	data := newPageData()
	attrs, form, err := formAttributes(r)
	data.Form = form
	if err != nil {
		data.Error = err.Error()
		h.renderPage(w, http.StatusBadRequest, data)
		return
	}

	pred, err := h.deps.Service.PredictOne(r.Context(), attrs)
	if err != nil {
		h.logger.Warn("predict failed", zap.Error(err))
		data.Error = err.Error()
		h.renderPage(w, statusFor(err), data)
		return
	}
	data.Prediction = pred
	for _, u := range pred.Unrecognized {
		data.Warnings = append(data.Warnings, fmt.Sprintf("%s %q is not recognised and was encoded as the baseline", u.Attribute, u.Value))
	}
	h.renderPage(w, http.StatusOK, data)
}

func (h *Handler) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	data := newPageData()
	upload, filename, err := readUpload(r)
	if err != nil {
		data.Error = fmt.Sprintf("could not read upload: %v", err)
		h.renderPage(w, http.StatusBadRequest, data)
		return
	}

	result, err := h.deps.Service.PredictBatch(r.Context(), filename, upload)
	if err != nil {
		h.logger.Warn("batch failed", zap.String("file", filename), zap.Error(err))
		data.Error = err.Error()
		h.renderPage(w, statusFor(err), data)
		return
	}
	data.Batch = result
	data.BatchColumns = upload.Columns
	for _, issue := range result.Issues {
		data.Warnings = append(data.Warnings, fmt.Sprintf("row %d: %s", issue.Row, issue.Message))
	}

	if len(result.Rows) > 0 {
		var svg bytes.Buffer
		if err := render.PredictionsSVG(&svg, result.Predictions()); err != nil {
			h.logger.Warn("render batch chart", zap.Error(err))
		} else {
			data.BatchChart = template.HTML(svg.String())
		}
	}
	h.renderPage(w, http.StatusOK, data)
}

func (h *Handler) handleEvaluationPage(w http.ResponseWriter, r *http.Request) {
	data := newPageData()
	chart, err := pipeline.ParseChart(r.URL.Query().Get("chart"))
	if err != nil {
		data.Error = err.Error()
		h.renderPage(w, http.StatusBadRequest, data)
		return
	}
	data.Chart = chart

	view := h.deps.Evaluation.View(chart)
	data.Evaluation = &view
	if view.Warning != "" {
		data.Warnings = append(data.Warnings, "Could not load evaluation data: "+view.Warning)
	} else if chart != pipeline.ChartNone {
		var svg bytes.Buffer
		if err := renderEvaluation(&svg, view); err != nil && !errors.Is(err, render.ErrNoData) {
			h.logger.Warn("render evaluation chart", zap.Error(err))
		} else if err == nil {
			data.EvaluationChart = template.HTML(svg.String())
		}
	}
	h.renderPage(w, http.StatusOK, data)
}
