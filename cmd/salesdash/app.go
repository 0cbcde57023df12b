package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"salesdash/config"
	"salesdash/logging"
	"salesdash/ml"
	"salesdash/monitoring"
	"salesdash/pipeline"
)

const defaultConfigFile = "config.yaml"

// loadConfig reads the --config file, falling back to ./config.yaml and
// then to built-in defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				cfg := config.Default()
				return &cfg, nil
			}
			return nil, err
		}
		path = defaultConfigFile
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log)
}

// loadSchema reads the saved feature list. A missing or unreadable list is
// an error.
func loadSchema(cfg config.ModelConfig) (ml.Schema, error) {
	schema, err := ml.LoadSchema(cfg.FeaturesPath)
	if err != nil {
		return ml.Schema{}, fmt.Errorf("load feature list: %w", err)
	}
	return schema, nil
}

func loadModel(cfg config.ModelConfig, schema ml.Schema) (ml.Model, error) {
	model, err := ml.LoadModel(ml.ModelOptions{
		Type:          cfg.Type,
		Path:          cfg.Path,
		RemoteURL:     cfg.RemoteURL,
		RemoteTimeout: cfg.RemoteTimeout,
		Features:      schema.Names(),
	})
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return model, nil
}

// components is what every command that predicts needs.
type components struct {
	cfg     *config.Config
	logger  *zap.Logger
	schema  ml.Schema
	model   ml.Model
	metrics *monitoring.Collector
}

// setup loads config, logger, schema and model.
func setup() (*components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	schema, err := loadSchema(cfg.Model)
	if err != nil {
		return nil, err
	}
	model, err := loadModel(cfg.Model, schema)
	if err != nil {
		return nil, err
	}
	return &components{
		cfg:     cfg,
		logger:  logger,
		schema:  schema,
		model:   model,
		metrics: monitoring.NewCollector(),
	}, nil
}

// newService builds the prediction service. history and publisher may be
// nil.
func (c *components) newService(history pipeline.History, publisher pipeline.Publisher) (*pipeline.Service, error) {
	return pipeline.NewService(pipeline.Options{
		Model:     c.model,
		Schema:    c.schema,
		History:   history,
		Publisher: publisher,
		Metrics:   c.metrics,
		Logger:    c.logger,
		CacheSize: c.cfg.Cache.PredictionEntries,
		Strict:    c.cfg.Model.StrictAttributes,
	})
}

func newEvaluationStore(c *components, publisher pipeline.Publisher) *pipeline.EvaluationStore {
	return pipeline.NewEvaluationStore(pipeline.EvaluationOptions{
		ActualPath:    c.cfg.Evaluation.ActualPath,
		PredictedPath: c.cfg.Evaluation.PredictedPath,
		SampleSize:    c.cfg.Evaluation.SampleSize,
		Seed:          c.cfg.Evaluation.Seed,
		Publisher:     publisher,
		Metrics:       c.metrics,
		Logger:        c.logger,
	})
}
