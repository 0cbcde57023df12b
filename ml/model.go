package ml

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrRowWidth       = errors.New("row width does not match model features")
	ErrSchemaMismatch = errors.New("model features do not match feature schema")
	ErrInvalidModel   = errors.New("invalid model artifact")
)

// Model predicts one numeric target per encoded row.
type Model interface {
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
	// Features returns the training-time feature list, or nil when the
	// artifact does not record one.
	Features() []string
}

// PredictVectors feeds encoded vectors to m positionally.
func PredictVectors(ctx context.Context, m Model, vectors []FeatureVector) ([]float64, error) {
	rows := make([][]float64, len(vectors))
	for i, v := range vectors {
		rows[i] = v.Values()
	}
	preds, err := m.Predict(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(preds), len(rows))
	}
	return preds, nil
}

func checkWidth(rows [][]float64, width int) error {
	if width == 0 {
		return nil
	}
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d values, model expects %d", ErrRowWidth, i, len(row), width)
		}
	}
	return nil
}
