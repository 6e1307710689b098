package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	if cfg.Pipeline.Mode != ModeHourly {
		t.Errorf("expected default mode %s, got %s", ModeHourly, cfg.Pipeline.Mode)
	}

	if cfg.Model.TargetColumn != "electricity_demand" {
		t.Errorf("expected default target column electricity_demand, got %s", cfg.Model.TargetColumn)
	}

	if cfg.Storage.TargetTimezone != "Asia/Ho_Chi_Minh" {
		t.Errorf("expected default target timezone Asia/Ho_Chi_Minh, got %s", cfg.Storage.TargetTimezone)
	}

	if len(cfg.Features.LagPeriods) != 5 {
		t.Errorf("expected 5 default lag periods, got %d", len(cfg.Features.LagPeriods))
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults when no config file exists: %v", err)
	}

	if cfg.Server.HTTPPort != 7700 {
		t.Errorf("expected default http port 7700, got %d", cfg.Server.HTTPPort)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
storage:
  data_dir: /var/lib/gridcast
pipeline:
  mode: BACKFILL
  backfill_start: "2022-06-01"
split:
  train_ratio: 0.8
  val_ratio: 0.1
  test_ratio: 0.1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.DataDir != "/var/lib/gridcast" {
		t.Errorf("expected data_dir override, got %s", cfg.Storage.DataDir)
	}

	if cfg.Pipeline.Mode != ModeBackfill {
		t.Errorf("expected mode BACKFILL, got %s", cfg.Pipeline.Mode)
	}

	if cfg.Split.TrainRatio != 0.8 {
		t.Errorf("expected train_ratio 0.8, got %f", cfg.Split.TrainRatio)
	}

	// Unset keys fall back to defaults
	if cfg.Queue.Type != "nats" {
		t.Errorf("expected default queue type nats, got %s", cfg.Queue.Type)
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PipelineConfig
		wantErr string
	}{
		{
			name: "valid hourly",
			cfg:  PipelineConfig{Mode: ModeHourly, ChunkDays: 30},
		},
		{
			name:    "unknown mode",
			cfg:     PipelineConfig{Mode: "STREAMING", ChunkDays: 30},
			wantErr: "invalid mode",
		},
		{
			name:    "backfill requires start date",
			cfg:     PipelineConfig{Mode: ModeBackfill, BackfillStart: "junk", ChunkDays: 30},
			wantErr: "invalid backfill_start",
		},
		{
			name:    "chunk days too small",
			cfg:     PipelineConfig{Mode: ModeHourly, ChunkDays: 0},
			wantErr: "chunk_days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSplitConfigValidate(t *testing.T) {
	valid := SplitConfig{TrainRatio: 0.7, ValRatio: 0.15, TestRatio: 0.15}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid split: %v", err)
	}

	// Within the 0.01 tolerance
	close := SplitConfig{TrainRatio: 0.7, ValRatio: 0.15, TestRatio: 0.155}
	if err := close.Validate(); err != nil {
		t.Fatalf("expected split within tolerance to be valid: %v", err)
	}

	bad := SplitConfig{TrainRatio: 0.5, ValRatio: 0.2, TestRatio: 0.2}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for ratios summing to 0.9")
	}

	zeroTrain := SplitConfig{TrainRatio: 0, ValRatio: 0.5, TestRatio: 0.5}
	if err := zeroTrain.Validate(); err == nil {
		t.Fatal("expected error for zero train ratio")
	}
}

func TestModelConfigValidate(t *testing.T) {
	cfg := Default().Model
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default model config should be valid: %v", err)
	}

	noTarget := cfg
	noTarget.TargetColumn = ""
	if err := noTarget.Validate(); err == nil {
		t.Fatal("expected error for missing target column")
	}

	badRate := cfg
	badRate.LearningRate = 1.5
	if err := badRate.Validate(); err == nil {
		t.Fatal("expected error for learning rate above 1")
	}

	badConfidence := cfg
	badConfidence.Confidence = 1.0
	if err := badConfidence.Validate(); err == nil {
		t.Fatal("expected error for confidence of exactly 1")
	}
}

func TestStorageConfigValidate(t *testing.T) {
	cfg := StorageConfig{
		DataDir:        "./data",
		Bucket:         "vietnam-energy-data",
		SourceTimezone: "UTC",
		TargetTimezone: "Asia/Ho_Chi_Minh",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid storage config: %v", err)
	}

	badTZ := cfg
	badTZ.TargetTimezone = "Mars/Olympus"
	if err := badTZ.Validate(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
