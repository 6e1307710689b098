// Package model implements the demand forecasting estimator: a
// standard scaler feeding a gradient-boosted ensemble of regression
// trees, with early stopping, gain-based feature importance and
// bootstrap prediction intervals.
package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/evaluation"
	"github.com/gridcast/gridcast/internal/logging"
)

// randomSeed fixes all stochastic steps (subsampling, bootstrap) so a
// training run is reproducible.
const randomSeed = 42

// earlyStopTolerance is the minimum validation RMSE improvement that
// counts as progress
const earlyStopTolerance = 1e-7

// GBT is a gradient-boosted regression model. Exported fields are the
// persisted state; everything needed to predict survives a JSON round
// trip.
type GBT struct {
	FeatureNames []string        `json:"feature_names"`
	Scaler       *StandardScaler `json:"scaler"`
	InitValue    float64         `json:"init_value"`
	LearningRate float64         `json:"learning_rate"`
	Trees        []*treeNode     `json:"trees"`

	cfg    config.ModelConfig
	logger *logging.Logger
	rng    *rand.Rand
}

// TrainSummary reports what one Fit call did
type TrainSummary struct {
	TreesUsed    int                 `json:"trees_used"`
	StoppedEarly bool                `json:"stopped_early"`
	TrainSamples int                 `json:"train_samples"`
	ValSamples   int                 `json:"val_samples"`
	TrainMetrics *evaluation.Metrics `json:"train_metrics"`
	ValMetrics   *evaluation.Metrics `json:"val_metrics,omitempty"`
}

// Importance is one entry of the normalized feature importance ranking
type Importance struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// New creates an unfitted model
func New(cfg config.ModelConfig, featureNames []string, logger *logging.Logger) *GBT {
	if logger == nil {
		logger = logging.Global()
	}
	return &GBT{
		FeatureNames: featureNames,
		LearningRate: cfg.LearningRate,
		cfg:          cfg,
		logger:       logger,
		rng:          rand.New(rand.NewSource(randomSeed)),
	}
}

// SetConfig restores training configuration on a deserialized model.
// Only bootstrap and confidence settings matter after loading.
func (m *GBT) SetConfig(cfg config.ModelConfig, logger *logging.Logger) {
	m.cfg = cfg
	if logger == nil {
		logger = logging.Global()
	}
	m.logger = logger
	m.rng = rand.New(rand.NewSource(randomSeed))
}

// Fit trains the ensemble. The scaler is fitted on the training rows
// only; validation rows drive early stopping and are never used for
// fitting.
func (m *GBT) Fit(xTrain [][]float64, yTrain []float64, xVal [][]float64, yVal []float64) (*TrainSummary, error) {
	if len(xTrain) == 0 {
		return nil, fmt.Errorf("cannot train on empty data")
	}
	if len(xTrain) != len(yTrain) {
		return nil, fmt.Errorf("train size mismatch: %d rows, %d targets", len(xTrain), len(yTrain))
	}
	if len(xTrain[0]) != len(m.FeatureNames) {
		return nil, fmt.Errorf("expected %d features, got %d", len(m.FeatureNames), len(xTrain[0]))
	}

	m.Scaler = &StandardScaler{}
	scaledTrain, err := m.Scaler.FitTransform(xTrain)
	if err != nil {
		return nil, err
	}

	var scaledVal [][]float64
	if len(xVal) > 0 {
		scaledVal, err = m.Scaler.Transform(xVal)
		if err != nil {
			return nil, err
		}
	}

	n := len(scaledTrain)
	m.InitValue = stat.Mean(yTrain, nil)
	m.Trees = m.Trees[:0]

	predTrain := make([]float64, n)
	for i := range predTrain {
		predTrain[i] = m.InitValue
	}
	predVal := make([]float64, len(scaledVal))
	for i := range predVal {
		predVal[i] = m.InitValue
	}

	residuals := make([]float64, n)
	bestValRMSE := math.Inf(1)
	bestIter := -1
	sinceImproved := 0
	stoppedEarly := false

	for iter := 0; iter < m.cfg.NumTrees; iter++ {
		for i := range residuals {
			residuals[i] = yTrain[i] - predTrain[i]
		}

		builder := &treeBuilder{
			x:              scaledTrain,
			y:              residuals,
			maxDepth:       m.cfg.MaxDepth,
			minSamplesLeaf: m.cfg.MinSamplesLeaf,
		}
		tree := builder.build(m.subsample(n), 0)
		m.Trees = append(m.Trees, tree)

		for i, row := range scaledTrain {
			predTrain[i] += m.LearningRate * tree.predict(row)
		}

		if len(scaledVal) == 0 {
			continue
		}

		for i, row := range scaledVal {
			predVal[i] += m.LearningRate * tree.predict(row)
		}
		valRMSE := evaluation.RMSE(yVal, predVal)

		if valRMSE < bestValRMSE-earlyStopTolerance {
			bestValRMSE = valRMSE
			bestIter = iter
			sinceImproved = 0
		} else {
			sinceImproved++
			if m.cfg.EarlyStoppingRounds > 0 && sinceImproved >= m.cfg.EarlyStoppingRounds {
				stoppedEarly = true
				m.logger.Info("Early stopping",
					"iteration", iter+1, "best_iteration", bestIter+1, "val_rmse", bestValRMSE)
				break
			}
		}
	}

	// Keep only the trees up to the best validation score
	if len(scaledVal) > 0 && bestIter >= 0 {
		m.Trees = m.Trees[:bestIter+1]
	}

	summary := &TrainSummary{
		TreesUsed:    len(m.Trees),
		StoppedEarly: stoppedEarly,
		TrainSamples: len(xTrain),
		ValSamples:   len(xVal),
	}

	trainPred, err := m.Predict(xTrain)
	if err != nil {
		return nil, err
	}
	summary.TrainMetrics, err = evaluation.Evaluate(yTrain, trainPred)
	if err != nil {
		return nil, err
	}

	if len(xVal) > 0 {
		valPred, err := m.Predict(xVal)
		if err != nil {
			return nil, err
		}
		summary.ValMetrics, err = evaluation.Evaluate(yVal, valPred)
		if err != nil {
			return nil, err
		}
	}

	m.logger.Info("Trained model",
		"trees", summary.TreesUsed,
		"train_samples", summary.TrainSamples,
		"stopped_early", summary.StoppedEarly)
	return summary, nil
}

// subsample draws the training row indices for one tree, without
// replacement
func (m *GBT) subsample(n int) []int {
	size := n
	if m.cfg.Subsample > 0 && m.cfg.Subsample < 1 {
		size = int(float64(n) * m.cfg.Subsample)
		if size < 1 {
			size = 1
		}
	}
	if size >= n {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	return m.rng.Perm(n)[:size]
}

// Predict returns point estimates for x
func (m *GBT) Predict(x [][]float64) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("model is not fitted")
	}

	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(scaled))
	for i, row := range scaled {
		pred := m.InitValue
		for _, tree := range m.Trees {
			pred += m.LearningRate * tree.predict(row)
		}
		out[i] = pred
	}
	return out, nil
}

// PredictWithConfidence returns point estimates plus bootstrap interval
// bounds. The interval comes from resampling the input rows with
// replacement and taking per-row percentiles across rounds; it is a
// predictive-interval approximation, not a model-uncertainty bootstrap.
func (m *GBT) PredictWithConfidence(x [][]float64) (point, lower, upper []float64, err error) {
	point, err = m.Predict(x)
	if err != nil {
		return nil, nil, nil, err
	}

	rounds := m.cfg.BootstrapRounds
	if rounds > len(m.Trees) {
		rounds = len(m.Trees)
	}
	if rounds < 2 {
		// Not enough rounds for percentiles; degenerate interval
		return point, append([]float64(nil), point...), append([]float64(nil), point...), nil
	}

	n := len(x)
	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = make([]float64, 0, rounds)
	}

	resampled := make([][]float64, n)
	for r := 0; r < rounds; r++ {
		for i := range resampled {
			resampled[i] = x[m.rng.Intn(n)]
		}
		preds, err := m.Predict(resampled)
		if err != nil {
			return nil, nil, nil, err
		}
		for i, p := range preds {
			samples[i] = append(samples[i], p)
		}
	}

	alpha := (1 - m.cfg.Confidence) / 2
	if m.cfg.Confidence <= 0 || m.cfg.Confidence >= 1 {
		alpha = 0.025
	}

	lower = make([]float64, n)
	upper = make([]float64, n)
	for i := range samples {
		sort.Float64s(samples[i])
		lower[i] = stat.Quantile(alpha, stat.Empirical, samples[i], nil)
		upper[i] = stat.Quantile(1-alpha, stat.Empirical, samples[i], nil)
	}
	return point, lower, upper, nil
}

// FeatureImportance returns the gain-based importance ranking,
// normalized to sum to 1 over features with nonzero gain, sorted
// descending. topN of 0 or less returns all features.
func (m *GBT) FeatureImportance(topN int) []Importance {
	totals := make([]float64, len(m.FeatureNames))
	for _, tree := range m.Trees {
		tree.accumulateGain(totals)
	}

	sum := 0.0
	for _, g := range totals {
		sum += g
	}
	if sum == 0 {
		return nil
	}

	out := make([]Importance, 0, len(totals))
	for j, g := range totals {
		if g > 0 {
			out = append(out, Importance{Name: m.FeatureNames[j], Weight: g / sum})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Weight != out[b].Weight {
			return out[a].Weight > out[b].Weight
		}
		return out[a].Name < out[b].Name
	})

	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}
