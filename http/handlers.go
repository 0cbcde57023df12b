package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesdash/db"
	"salesdash/ml"
	"salesdash/monitoring"
	"salesdash/pipeline"
	"salesdash/render"
)

// HistoryReader lists stored predictions and uploads.
type HistoryReader interface {
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
	Batches(ctx context.Context, limit int) ([]db.BatchSummary, error)
}

// Dependencies are the collaborators the handlers serve. Service and
// Evaluation are required; the rest may be nil.
type Dependencies struct {
	Service    *pipeline.Service
	Evaluation *pipeline.EvaluationStore
	History    HistoryReader
	Metrics    *monitoring.Collector
	Hub        *monitoring.Hub
	Logger     *zap.Logger
	ModelType  string
}

// Handler serves the dashboard pages and the JSON API.
type Handler struct {
	deps    Dependencies
	logger  *zap.Logger
	pages   *pageRenderer
	started time.Time
}

func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Service == nil || deps.Evaluation == nil {
		return nil, errors.New("service and evaluation store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{deps: deps, logger: logger, pages: pages, started: time.Now()}, nil
}

// RegisterHandlers mounts the JSON API.
func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("POST /api/predict/batch", h.handlePredictBatch)
	mux.HandleFunc("GET /api/evaluation", h.handleEvaluation)
	mux.HandleFunc("GET /api/evaluation/metrics", h.handleEvaluationMetrics)
	mux.HandleFunc("GET /api/charts/evaluation.svg", h.handleEvaluationChart)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/history/batches", h.handleBatches)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
}

// writeJSON encodes v before touching the response so an encoding failure
// still produces a 500 with a body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		msg, _ := json.Marshal(map[string]string{"error": "encode response: " + err.Error()})
		buf.Write(msg)
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var rowErr *ml.RowError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &rowErr),
		errors.Is(err, ml.ErrUnrecognizedValue),
		errors.Is(err, ml.ErrInvalidValue),
		errors.Is(err, pipeline.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ml.ErrRowWidth), errors.Is(err, ml.ErrSchemaMismatch):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"model":      h.deps.ModelType,
		"features":   h.deps.Service.Schema().Len(),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"ws_clients": h.clientCount(),
	})
}

func (h *Handler) clientCount() int {
	if h.deps.Hub == nil {
		return 0
	}
	return h.deps.Hub.ClientCount()
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	type attribute struct {
		Name       string   `json:"name"`
		Values     []string `json:"values"`
		Baseline   string   `json:"baseline,omitempty"`
		Indicators []string `json:"indicators"`
	}
	encodings := ml.AttributeEncodings()
	attrs := make([]attribute, len(encodings))
	for i, enc := range encodings {
		attrs[i] = attribute{
			Name:       enc.Attribute,
			Values:     enc.Values,
			Baseline:   enc.Baseline,
			Indicators: enc.IndicatorNames(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"features":   h.deps.Service.Schema(),
		"attributes": attrs,
	})
}

// predictRequest accepts observation_date as a plain date or RFC 3339.
type predictRequest struct {
	Price           float64 `json:"price"`
	Cost            float64 `json:"cost"`
	Gender          string  `json:"gender"`
	Category        string  `json:"category"`
	Brand           string  `json:"brand"`
	Collection      string  `json:"collection"`
	PriceTier       string  `json:"price_tier"`
	Style           string  `json:"style"`
	ObservationDate string  `json:"observation_date"`
}

func (p predictRequest) attributes() (ml.ProductAttributes, error) {
	attrs := ml.ProductAttributes{
		Price:      p.Price,
		Cost:       p.Cost,
		Gender:     ml.Gender(p.Gender),
		Category:   ml.Category(p.Category),
		Brand:      ml.Brand(p.Brand),
		Collection: ml.Collection(p.Collection),
		PriceTier:  ml.PriceTier(p.PriceTier),
		Style:      ml.Style(p.Style),
	}
	if strings.TrimSpace(p.ObservationDate) != "" {
		d, err := ml.ParseDate(p.ObservationDate)
		if err != nil {
			return attrs, err
		}
		attrs.ObservationDate = d
	}
	return attrs, nil
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	attrs, err := req.attributes()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pred, err := h.deps.Service.PredictOne(r.Context(), attrs)
	if err != nil {
		h.logger.Warn("predict failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"predicted_sales": pred.PredictedSales,
		"formatted":       render.FormatSales(pred.PredictedSales),
		"features":        pred.Features,
		"reference_date":  pred.ReferenceDate.Format("2006-01-02"),
		"cached":          pred.Cached,
		"unrecognized":    pred.Unrecognized,
	})
}

// readUpload accepts a multipart form with a "file" part or a raw
// delimited body.
func readUpload(r *http.Request) (pipeline.Upload, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return pipeline.Upload{}, "", fmt.Errorf("%w: %w", pipeline.ErrEmptyUpload, err)
		}
		defer file.Close()
		upload, err := pipeline.ParseUpload(file)
		return upload, filepath.Base(header.Filename), err
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = "upload.csv"
	}
	upload, err := pipeline.ParseUpload(r.Body)
	return upload, name, err
}

func (h *Handler) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	upload, filename, err := readUpload(r)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadGateway {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	result, err := h.deps.Service.PredictBatch(r.Context(), filename, upload)
	if err != nil {
		h.logger.Warn("batch failed", zap.String("file", filename), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "predictions_"+filename))
		if err := pipeline.WriteResults(w, upload, pipeline.PredictedSalesColumn, result.Predictions()); err != nil {
			h.logger.Warn("write csv", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) chartParam(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	v := r.URL.Query().Get("chart")
	if v == "" {
		v = fallback
	}
	chart, err := pipeline.ParseChart(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return chart, true
}

func (h *Handler) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	chart, ok := h.chartParam(w, r, pipeline.ChartScatter)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Evaluation.View(chart))
}

func (h *Handler) handleEvaluationMetrics(w http.ResponseWriter, r *http.Request) {
	sample, err := h.deps.Evaluation.Load()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"warning": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sample.Metrics())
}

func (h *Handler) handleEvaluationChart(w http.ResponseWriter, r *http.Request) {
	chart, ok := h.chartParam(w, r, pipeline.ChartScatter)
	if !ok {
		return
	}
	if chart == pipeline.ChartNone {
		writeError(w, http.StatusBadRequest, errors.New("chart must be scatter or bar"))
		return
	}
	view := h.deps.Evaluation.View(chart)
	if view.Warning != "" {
		writeError(w, http.StatusServiceUnavailable, errors.New(view.Warning))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := renderEvaluation(w, view); err != nil {
		h.logger.Warn("render evaluation chart", zap.Error(err))
	}
}

func renderEvaluation(w io.Writer, view pipeline.EvaluationView) error {
	switch {
	case view.Scatter != nil:
		return render.ScatterSVG(w, *view.Scatter)
	case view.Comparison != nil:
		return render.ComparisonSVG(w, view.Comparison)
	}
	return render.ErrNoData
}

func historyLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	return limit
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, db.ErrNotInitialized)
		return
	}
	records, err := h.deps.History.RecentPredictions(r.Context(), historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": records, "count": len(records)})
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, db.ErrNotInitialized)
		return
	}
	batches, err := h.deps.History.Batches(r.Context(), historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches, "count": len(batches)})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		io.WriteString(w, h.deps.Metrics.ExportPrometheus())
		return
	}
	snap := h.deps.Metrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":    snap,
		"cleaning":   h.deps.Service.CleaningStats(),
		"ws_clients": h.clientCount(),
	})
}
