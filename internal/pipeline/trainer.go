package pipeline

import (
	"fmt"
	"time"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/dataset"
	"github.com/gridcast/gridcast/internal/evaluation"
	"github.com/gridcast/gridcast/internal/features"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/model"
	"github.com/gridcast/gridcast/internal/registry"
)

// Trainer runs the full training flow: load gold data, engineer
// features, split chronologically, fit, evaluate on the held-out test
// segment, and persist the model.
type Trainer struct {
	loader   *dataset.Loader
	strategy features.Strategy
	registry *registry.Registry
	cfg      config.Config
	logger   *logging.Logger
}

// TrainResult reports one completed training run
type TrainResult struct {
	Version     string                         `json:"version"`
	Summary     *model.TrainSummary            `json:"summary"`
	Metrics     map[string]*evaluation.Metrics `json:"metrics"`
	Importance  []model.Importance             `json:"importance"`
	FeatureInfo features.Info                  `json:"feature_info"`
}

// NewTrainer creates a trainer
func NewTrainer(loader *dataset.Loader, strategy features.Strategy, reg *registry.Registry, cfg config.Config, logger *logging.Logger) *Trainer {
	if logger == nil {
		logger = logging.Global()
	}
	return &Trainer{loader: loader, strategy: strategy, registry: reg, cfg: cfg, logger: logger}
}

// Train fits a model on the canonical data in [start, end] and saves it
// to the registry
func (t *Trainer) Train(start, end time.Time) (*TrainResult, error) {
	frame, err := t.loader.LoadRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}

	featured, err := t.strategy.CreateFeatures(frame)
	if err != nil {
		return nil, fmt.Errorf("feature engineering failed: %w", err)
	}

	matrix, err := dataset.Prepare(featured, t.cfg.Model.TargetColumn, t.cfg.Model.ExcludeFeatures)
	if err != nil {
		return nil, err
	}

	split, err := dataset.TimeSeriesSplit(matrix,
		t.cfg.Split.TrainRatio, t.cfg.Split.ValRatio, t.cfg.Split.TestRatio)
	if err != nil {
		return nil, err
	}
	t.logger.Info("Split training data",
		"train", len(split.XTrain), "val", len(split.XVal), "test", len(split.XTest))

	m := model.New(t.cfg.Model, matrix.FeatureNames, t.logger)
	summary, err := m.Fit(split.XTrain, split.YTrain, split.XVal, split.YVal)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	metrics := map[string]*evaluation.Metrics{"train": summary.TrainMetrics}
	if summary.ValMetrics != nil {
		metrics["validation"] = summary.ValMetrics
	}
	if len(split.XTest) > 0 {
		testPred, err := m.Predict(split.XTest)
		if err != nil {
			return nil, err
		}
		testMetrics, err := evaluation.Evaluate(split.YTest, testPred)
		if err != nil {
			return nil, err
		}
		metrics["test"] = testMetrics
		t.logger.Info("Evaluated on held-out test segment",
			"rmse", testMetrics.RMSE, "mape", testMetrics.MAPE, "r2", testMetrics.R2)
	}

	importance := m.FeatureImportance(0)

	meta := &registry.Metadata{
		ModelType:         t.cfg.Model.Type,
		TrainStart:        matrix.Times[0],
		TrainEnd:          matrix.Times[len(matrix.Times)-1],
		TrainSamples:      len(split.XTrain),
		ValSamples:        len(split.XVal),
		TestSamples:       len(split.XTest),
		Hyperparameters:   t.cfg.Model,
		FeatureImportance: importance,
	}

	version, err := t.registry.Save(m, meta, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to persist model: %w", err)
	}

	return &TrainResult{
		Version:     version,
		Summary:     summary,
		Metrics:     metrics,
		Importance:  importance,
		FeatureInfo: t.strategy.FeatureInfo(),
	}, nil
}
