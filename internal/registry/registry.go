// Package registry persists trained models with their metadata and
// metrics, and tracks a latest pointer per model type.
package registry

import (
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/golang/snappy"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/evaluation"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/model"
	"github.com/gridcast/gridcast/internal/store"
)

// latestDir is the copy-as-latest pointer directory
const latestDir = "latest"

// Metadata describes one persisted model version
type Metadata struct {
	Version      string    `json:"version"`
	ModelType    string    `json:"model_type"`
	TrainedAt    time.Time `json:"trained_at"`
	FeatureNames []string  `json:"feature_names"`
	FeatureCount int       `json:"feature_count"`

	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`

	TrainSamples int `json:"train_samples"`
	ValSamples   int `json:"val_samples"`
	TestSamples  int `json:"test_samples"`

	Hyperparameters   config.ModelConfig `json:"hyperparameters"`
	FeatureImportance []model.Importance `json:"feature_importance"`
}

// Registry stores model artifacts in the partition store
type Registry struct {
	store  *store.Store
	logger *logging.Logger

	now func() time.Time
}

// New creates a registry
func New(s *store.Store, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Global()
	}
	return &Registry{store: s, logger: logger, now: time.Now}
}

func modelKey(modelType, version string) string {
	return path.Join("models", modelType, version, "model.json.sz")
}

func metadataKey(modelType, version string) string {
	return path.Join("models", modelType, version, "metadata.json")
}

func metricsKey(modelType, version string) string {
	return path.Join("models", modelType, version, "metrics.json")
}

// Save persists a fitted model under a fresh timestamp-derived version
// and updates the latest pointer. Returns the version string.
func (r *Registry) Save(m *model.GBT, meta *Metadata, metrics map[string]*evaluation.Metrics) (string, error) {
	if meta.ModelType == "" {
		return "", fmt.Errorf("metadata must carry a model type")
	}

	version := fmt.Sprintf("v1.0.%d", r.now().Unix())
	meta.Version = version
	meta.TrainedAt = r.now().UTC()
	meta.FeatureNames = m.FeatureNames
	meta.FeatureCount = len(m.FeatureNames)

	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode model: %w", err)
	}
	if err := r.store.WriteRaw(modelKey(meta.ModelType, version), snappy.Encode(nil, raw)); err != nil {
		return "", err
	}
	if err := r.store.WriteJSON(metadataKey(meta.ModelType, version), meta); err != nil {
		return "", err
	}
	if err := r.store.WriteJSON(metricsKey(meta.ModelType, version), metrics); err != nil {
		return "", err
	}

	// Latest pointer is a full copy so it stays readable even if the
	// versioned directory is pruned later
	for _, key := range []func(string, string) string{modelKey, metadataKey, metricsKey} {
		if err := r.store.Copy(key(meta.ModelType, version), key(meta.ModelType, latestDir)); err != nil {
			return "", fmt.Errorf("failed to update latest pointer: %w", err)
		}
	}

	r.logger.Info("Saved model",
		"model_type", meta.ModelType, "version", version, "features", meta.FeatureCount)
	return version, nil
}

// Load reads one model version. Pass "latest" for the newest model.
func (r *Registry) Load(modelType, version string, cfg config.ModelConfig) (*model.GBT, *Metadata, error) {
	compressed, err := r.store.ReadRaw(modelKey(modelType, version))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model %s/%s: %w", modelType, version, err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress model %s/%s: %w", modelType, version, err)
	}

	var m model.GBT
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model %s/%s: %w", modelType, version, err)
	}
	m.SetConfig(cfg, r.logger)

	var meta Metadata
	if err := r.store.ReadJSON(metadataKey(modelType, version), &meta); err != nil {
		return nil, nil, fmt.Errorf("failed to load metadata %s/%s: %w", modelType, version, err)
	}

	return &m, &meta, nil
}

// LoadLatest reads the newest persisted model of a type
func (r *Registry) LoadLatest(modelType string, cfg config.ModelConfig) (*model.GBT, *Metadata, error) {
	return r.Load(modelType, latestDir, cfg)
}

// LoadMetrics reads the persisted metrics of one version
func (r *Registry) LoadMetrics(modelType, version string) (map[string]*evaluation.Metrics, error) {
	var metrics map[string]*evaluation.Metrics
	if err := r.store.ReadJSON(metricsKey(modelType, version), &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// LoadLatestMetadata reads the newest version's metadata without
// decoding the model itself
func (r *Registry) LoadLatestMetadata(modelType string) (*Metadata, error) {
	var meta Metadata
	if err := r.store.ReadJSON(metadataKey(modelType, latestDir), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListVersions returns the persisted versions of a model type, sorted,
// excluding the latest pointer
func (r *Registry) ListVersions(modelType string) ([]string, error) {
	dirs, err := r.store.ListSubdirs(path.Join("models", modelType))
	if err != nil {
		return nil, err
	}

	versions := dirs[:0]
	for _, d := range dirs {
		if d != latestDir {
			versions = append(versions, d)
		}
	}
	return versions, nil
}
