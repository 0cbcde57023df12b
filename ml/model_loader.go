package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	ModelTypeForest = "regression_forest"
	ModelTypeLinear = "linear"
	ModelTypeRemote = "remote"
)

// ModelOptions selects and locates a model. An empty Type is read from the
// artifact's "type" field.
type ModelOptions struct {
	Type          string
	Path          string
	RemoteURL     string
	RemoteTimeout time.Duration
	// Features is sent to remote models; file artifacts carry their own.
	Features []string
}

func LoadModel(opts ModelOptions) (Model, error) {
	if opts.Type == ModelTypeRemote {
		if opts.RemoteURL == "" {
			return nil, errors.New("remote model requires a url")
		}
		return NewRemoteModel(opts.RemoteURL, opts.Features, opts.RemoteTimeout), nil
	}

	if opts.Path == "" {
		return nil, errors.New("model path is required")
	}
	payload, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	modelType := opts.Type
	if modelType == "" {
		var header struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &header); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
		modelType = header.Type
	}

	switch modelType {
	case ModelTypeForest:
		forest, err := decodeForest(payload)
		if err != nil {
			return nil, err
		}
		return forest, nil
	case ModelTypeLinear:
		linear, err := decodeLinear(payload)
		if err != nil {
			return nil, err
		}
		return linear, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
