package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")             // Current directory
		v.AddConfigPath("./configs")     // Project configs directory
		v.AddConfigPath("/etc/gridcast") // System-wide config
	}

	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("GRIDCAST")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 7700)

	// Storage defaults
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.bucket", "vietnam-energy-data")
	v.SetDefault("storage.source_timezone", "UTC")
	v.SetDefault("storage.target_timezone", "Asia/Ho_Chi_Minh")

	// Pipeline defaults
	v.SetDefault("pipeline.mode", ModeHourly)
	v.SetDefault("pipeline.backfill_start", "2021-01-01")
	v.SetDefault("pipeline.signals", []string{
		"carbon_intensity",
		"total_load",
		"price_day_ahead",
		"electricity_mix",
		"electricity_flows",
	})
	v.SetDefault("pipeline.chunk_days", 30)
	v.SetDefault("pipeline.weather_source", "weather")
	v.SetDefault("pipeline.electricity_source", "electricity")

	// Feature defaults
	v.SetDefault("features.strategy", "gbt")
	v.SetDefault("features.lag_periods", []int{1, 2, 3, 24, 168})
	v.SetDefault("features.rolling_windows", []int{3, 6, 12, 24})
	v.SetDefault("features.create_interactions", false)

	// Split defaults
	v.SetDefault("split.train_ratio", 0.7)
	v.SetDefault("split.val_ratio", 0.15)
	v.SetDefault("split.test_ratio", 0.15)

	// Model defaults
	v.SetDefault("model.type", "gbt")
	v.SetDefault("model.target_column", "electricity_demand")
	v.SetDefault("model.exclude_features", []string{"datetime"})
	v.SetDefault("model.min_historical_hours", 168)
	v.SetDefault("model.num_trees", 100)
	v.SetDefault("model.max_depth", 6)
	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("model.subsample", 0.8)
	v.SetDefault("model.min_samples_leaf", 1)
	v.SetDefault("model.early_stopping_rounds", 10)
	v.SetDefault("model.bootstrap_rounds", 10)
	v.SetDefault("model.confidence", 0.95)

	// Queue defaults
	v.SetDefault("queue.type", "nats")
	v.SetDefault("queue.url", "nats://localhost:4222")
	v.SetDefault("queue.subject", "gridcast.forecasts")
	v.SetDefault("queue.redis_stream", "gridcast")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the default configuration
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, err := parseConfig(v)
	if err != nil {
		// Defaults are maintained alongside Validate; a failure here is a bug.
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}
