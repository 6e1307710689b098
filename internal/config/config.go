package config

import (
	"fmt"
	"math"
	"time"
)

// Processing modes
const (
	ModeBackfill          = "BACKFILL"
	ModeHourly            = "HOURLY"
	ModeCompactionDaily   = "COMPACTION_DAILY"
	ModeCompactionMonthly = "COMPACTION_MONTHLY"
	ModeFullTrain         = "FULL_TRAIN"
	ModePredict           = "PREDICT"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Features FeaturesConfig `mapstructure:"features"`
	Split    SplitConfig    `mapstructure:"split"`
	Model    ModelConfig    `mapstructure:"model"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents the HTTP API server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// StorageConfig represents partition store configuration
type StorageConfig struct {
	DataDir        string `mapstructure:"data_dir"`        // Root directory for all layers
	Bucket         string `mapstructure:"bucket"`          // Namespace under data_dir (mirrors the object-store bucket)
	SourceTimezone string `mapstructure:"source_timezone"` // Timezone of provider timestamps (UTC)
	TargetTimezone string `mapstructure:"target_timezone"` // Business timezone (Asia/Ho_Chi_Minh, UTC+7)
}

// PipelineConfig represents ETL orchestration configuration
type PipelineConfig struct {
	Mode              string   `mapstructure:"mode"`           // BACKFILL, HOURLY, COMPACTION_DAILY, COMPACTION_MONTHLY
	BackfillStart     string   `mapstructure:"backfill_start"` // First date processed in BACKFILL mode (YYYY-MM-DD)
	Signals           []string `mapstructure:"signals"`        // Electricity signals present in the bronze layer
	ChunkDays         int      `mapstructure:"chunk_days"`     // Days per backfill chunk
	WeatherSource     string   `mapstructure:"weather_source"` // Source name under bronze/silver layers
	ElectricitySource string   `mapstructure:"electricity_source"`
}

// FeaturesConfig represents feature engineering configuration
type FeaturesConfig struct {
	Strategy           string `mapstructure:"strategy"`            // Feature strategy kind (gbt)
	LagPeriods         []int  `mapstructure:"lag_periods"`         // Lag offsets in hours
	RollingWindows     []int  `mapstructure:"rolling_windows"`     // Trailing window sizes in hours
	CreateInteractions bool   `mapstructure:"create_interactions"` // Enable pairwise interaction features
}

// SplitConfig represents train/validation/test split ratios
type SplitConfig struct {
	TrainRatio float64 `mapstructure:"train_ratio"`
	ValRatio   float64 `mapstructure:"val_ratio"`
	TestRatio  float64 `mapstructure:"test_ratio"`
}

// ModelConfig represents training and prediction configuration
type ModelConfig struct {
	Type               string   `mapstructure:"type"`                 // Model type (gbt)
	TargetColumn       string   `mapstructure:"target_column"`        // Required target column in the canonical table
	ExcludeFeatures    []string `mapstructure:"exclude_features"`     // Columns never used as predictors
	MinHistoricalHours int      `mapstructure:"min_historical_hours"` // Trailing window needed to rebuild lag/rolling features

	NumTrees            int     `mapstructure:"num_trees"`
	MaxDepth            int     `mapstructure:"max_depth"`
	LearningRate        float64 `mapstructure:"learning_rate"`
	Subsample           float64 `mapstructure:"subsample"`
	MinSamplesLeaf      int     `mapstructure:"min_samples_leaf"`
	EarlyStoppingRounds int     `mapstructure:"early_stopping_rounds"`

	BootstrapRounds int     `mapstructure:"bootstrap_rounds"` // Resampling rounds for prediction intervals
	Confidence      float64 `mapstructure:"confidence"`       // Interval confidence level (0-1)
}

// QueueConfig represents forecast event publisher configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication
	Subject  string `mapstructure:"subject"`  // Subject/topic forecast events are published to

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "gridcast")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// AuthConfig represents API authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("features config: %w", err)
	}

	if err := c.Split.Validate(); err != nil {
		return fmt.Errorf("split config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	if _, err := time.LoadLocation(c.TargetTimezone); err != nil {
		return fmt.Errorf("invalid target_timezone %q: %w", c.TargetTimezone, err)
	}

	if _, err := time.LoadLocation(c.SourceTimezone); err != nil {
		return fmt.Errorf("invalid source_timezone %q: %w", c.SourceTimezone, err)
	}

	return nil
}

// Validate validates pipeline configuration
func (c *PipelineConfig) Validate() error {
	switch c.Mode {
	case ModeBackfill, ModeHourly, ModeCompactionDaily, ModeCompactionMonthly,
		ModeFullTrain, ModePredict:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}

	if c.Mode == ModeBackfill {
		if _, err := time.Parse("2006-01-02", c.BackfillStart); err != nil {
			return fmt.Errorf("invalid backfill_start %q: %w", c.BackfillStart, err)
		}
	}

	if c.ChunkDays < 1 {
		return fmt.Errorf("chunk_days must be at least 1")
	}

	return nil
}

// Validate validates feature engineering configuration
func (c *FeaturesConfig) Validate() error {
	if len(c.LagPeriods) == 0 {
		return fmt.Errorf("lag_periods must not be empty")
	}

	for _, lag := range c.LagPeriods {
		if lag < 1 {
			return fmt.Errorf("lag period must be positive, got %d", lag)
		}
	}

	for _, w := range c.RollingWindows {
		if w < 2 {
			return fmt.Errorf("rolling window must be at least 2, got %d", w)
		}
	}

	return nil
}

// Validate validates split ratios. The sum must be 1.0 within a 0.01
// tolerance; shuffled splits are never allowed for this data.
func (c *SplitConfig) Validate() error {
	total := c.TrainRatio + c.ValRatio + c.TestRatio
	if math.Abs(total-1.0) > 0.01 {
		return fmt.Errorf("split ratios must sum to 1.0, got %.4f", total)
	}

	if c.TrainRatio <= 0 || c.ValRatio < 0 || c.TestRatio < 0 {
		return fmt.Errorf("split ratios must be non-negative with train_ratio > 0")
	}

	return nil
}

// Validate validates model configuration
func (c *ModelConfig) Validate() error {
	if c.TargetColumn == "" {
		return fmt.Errorf("target_column is required")
	}

	if c.MinHistoricalHours < 1 {
		return fmt.Errorf("min_historical_hours must be positive")
	}

	if c.NumTrees < 1 {
		return fmt.Errorf("num_trees must be positive")
	}

	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1]")
	}

	if c.Subsample <= 0 || c.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1]")
	}

	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("confidence must be in (0, 1)")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
