package ml

import (
	"context"
	"errors"
	"testing"
)

func TestLinearModelPredict(t *testing.T) {
	model, err := NewLinearModel([]string{"price", "cost"}, 5, []float64{0.1, -0.05})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preds, err := model.Predict(context.Background(), [][]float64{{100, 40}, {0, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0] != 13 || preds[1] != 5 {
		t.Fatalf("unexpected predictions: %v", preds)
	}
}

func TestLinearModelShape(t *testing.T) {
	if _, err := NewLinearModel([]string{"a"}, 0, []float64{1, 2}); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
	model, _ := NewLinearModel(nil, 0, []float64{1, 2})
	if _, err := model.Predict(context.Background(), [][]float64{{1, 2, 3}}); !errors.Is(err, ErrRowWidth) {
		t.Fatalf("expected ErrRowWidth, got %v", err)
	}
}
