package ml

import (
	"context"
	"encoding/json"
	"fmt"
)

// LinearModel is intercept + coefficients · row.
type LinearModel struct {
	features     []string
	intercept    float64
	coefficients []float64
}

type linearArtifact struct {
	Type         string    `json:"type"`
	Features     []string  `json:"features,omitempty"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func NewLinearModel(features []string, intercept float64, coefficients []float64) (*LinearModel, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("%w: no coefficients", ErrInvalidModel)
	}
	if features != nil && len(features) != len(coefficients) {
		return nil, fmt.Errorf("%w: %d features but %d coefficients", ErrInvalidModel, len(features), len(coefficients))
	}
	return &LinearModel{features: features, intercept: intercept, coefficients: coefficients}, nil
}

func (m *LinearModel) Features() []string {
	if m.features == nil {
		return nil
	}
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

func (m *LinearModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := checkWidth(rows, len(m.coefficients)); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		y := m.intercept
		for j, c := range m.coefficients {
			y += c * row[j]
		}
		out[i] = y
	}
	return out, ctx.Err()
}

func decodeLinear(payload []byte) (*LinearModel, error) {
	var artifact linearArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return NewLinearModel(artifact.Features, artifact.Intercept, artifact.Coefficients)
}
