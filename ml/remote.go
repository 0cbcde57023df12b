package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteModel forwards rows to an HTTP prediction service.
type RemoteModel struct {
	url      string
	features []string
	client   *http.Client
}

type remoteRequest struct {
	Features []string    `json:"features"`
	Rows     [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

// NewRemoteModel builds a client for url. features is sent with every
// request so the service can check column order; it may be nil.
func NewRemoteModel(url string, features []string, timeout time.Duration) *RemoteModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteModel{
		url:      url,
		features: features,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *RemoteModel) Features() []string {
	if m.features == nil {
		return nil
	}
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

func (m *RemoteModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := checkWidth(rows, len(m.features)); err != nil {
		return nil, err
	}
	body, err := json.Marshal(remoteRequest{Features: m.features, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	var payload remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, payload.Error)
	}
	if len(payload.Predictions) != len(rows) {
		return nil, fmt.Errorf("remote returned %d predictions for %d rows", len(payload.Predictions), len(rows))
	}
	return payload.Predictions, nil
}
