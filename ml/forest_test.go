package ml

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// stump splits on feature 0 at 100.
func stump(left, right float64) []TreeNode {
	return []TreeNode{
		{FeatureIdx: 0, Threshold: 100, LeftChild: 1, RightChild: 2},
		{FeatureIdx: -1, Value: left, IsLeaf: true},
		{FeatureIdx: -1, Value: right, IsLeaf: true},
	}
}

func TestRegressionForestPredict(t *testing.T) {
	forest, err := NewRegressionForest([]string{"price", "cost"}, AggregateMean, 0,
		[][]TreeNode{stump(10, 2), stump(20, 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	preds, err := forest.Predict(context.Background(), [][]float64{{50, 1}, {150, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0] != 15 || preds[1] != 3 {
		t.Fatalf("unexpected predictions: %v", preds)
	}
}

func TestRegressionForestSum(t *testing.T) {
	forest, err := NewRegressionForest(nil, AggregateSum, 100, [][]TreeNode{stump(1, -1), stump(2, -2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preds, err := forest.Predict(context.Background(), [][]float64{{0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0] != 103 {
		t.Fatalf("expected 103, got %v", preds[0])
	}
}

func TestRegressionForestRejectsBadTrees(t *testing.T) {
	cyclic := []TreeNode{{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 1}, {IsLeaf: true}}
	if _, err := NewRegressionForest(nil, AggregateMean, 0, [][]TreeNode{cyclic}); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
	if _, err := NewRegressionForest([]string{"a"}, "median", 0, [][]TreeNode{stump(1, 2)}); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestRegressionForestRowWidth(t *testing.T) {
	forest, _ := NewRegressionForest([]string{"price", "cost"}, AggregateMean, 0, [][]TreeNode{stump(1, 2)})
	if _, err := forest.Predict(context.Background(), [][]float64{{1}}); !errors.Is(err, ErrRowWidth) {
		t.Fatalf("expected ErrRowWidth, got %v", err)
	}
}

func TestLoadModelFromSavedForest(t *testing.T) {
	forest, _ := NewRegressionForest(DefaultSchema().Names(), AggregateMean, 0, [][]TreeNode{stump(7, 9)})
	path := filepath.Join(t.TempDir(), "model.json")
	if err := forest.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model, err := LoadModel(ModelOptions{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckCompatibility(model, DefaultSchema()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := make([]float64, DefaultSchema().Len())
	row[0] = 450
	preds, err := model.Predict(context.Background(), [][]float64{row})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0] != 9 {
		t.Fatalf("expected 9, got %v", preds[0])
	}
}

func TestLoadModelUnsupportedType(t *testing.T) {
	if _, err := LoadModel(ModelOptions{Type: "xgboost_binary", Path: "x"}); err == nil {
		t.Fatal("expected error")
	}
}
