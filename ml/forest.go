package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	AggregateMean = "mean"
	AggregateSum  = "sum"
)

// RegressionForest is a tree ensemble exported from a training notebook.
// "mean" averages tree outputs (random forest); "sum" adds them to
// BaseScore (gradient boosting).
type RegressionForest struct {
	features    []string
	baseScore   float64
	aggregation string
	trees       [][]TreeNode
}

// TreeNode is one node of a flat, pre-ordered tree: children always sit at
// higher indices than their parent.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type forestArtifact struct {
	Type        string       `json:"type"`
	Features    []string     `json:"features,omitempty"`
	BaseScore   float64      `json:"base_score"`
	Aggregation string       `json:"aggregation"`
	Trees       [][]TreeNode `json:"trees"`
}

// NewRegressionForest validates the trees and builds a forest.
func NewRegressionForest(features []string, aggregation string, baseScore float64, trees [][]TreeNode) (*RegressionForest, error) {
	if aggregation == "" {
		aggregation = AggregateMean
	}
	if aggregation != AggregateMean && aggregation != AggregateSum {
		return nil, fmt.Errorf("%w: unknown aggregation %q", ErrInvalidModel, aggregation)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	for i, tree := range trees {
		if err := validateTree(tree, len(features)); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidModel, i, err)
		}
	}
	return &RegressionForest{
		features:    features,
		baseScore:   baseScore,
		aggregation: aggregation,
		trees:       trees,
	}, nil
}

func (f *RegressionForest) Features() []string {
	if f.features == nil {
		return nil
	}
	out := make([]string, len(f.features))
	copy(out, f.features)
	return out
}

func (f *RegressionForest) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := checkWidth(rows, len(f.features)); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		total := 0.0
		for t, tree := range f.trees {
			v, err := walkTree(tree, row)
			if err != nil {
				return nil, fmt.Errorf("row %d tree %d: %w", i, t, err)
			}
			total += v
		}
		if f.aggregation == AggregateMean {
			out[i] = f.baseScore + total/float64(len(f.trees))
		} else {
			out[i] = f.baseScore + total
		}
	}
	return out, nil
}

func walkTree(nodes []TreeNode, row []float64) (float64, error) {
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(row) {
			return 0, errors.New("feature index out of range")
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func validateTree(nodes []TreeNode, width int) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || (width > 0 && node.FeatureIdx >= width) {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return nil
}

// Save writes the forest as a JSON artifact.
func (f *RegressionForest) Save(path string) error {
	payload, err := json.Marshal(forestArtifact{
		Type:        ModelTypeForest,
		Features:    f.features,
		BaseScore:   f.baseScore,
		Aggregation: f.aggregation,
		Trees:       f.trees,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func decodeForest(payload []byte) (*RegressionForest, error) {
	var artifact forestArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return NewRegressionForest(artifact.Features, artifact.Aggregation, artifact.BaseScore, artifact.Trees)
}
