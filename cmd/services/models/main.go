package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/dataset"
	"github.com/gridcast/gridcast/internal/features"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/pipeline"
	"github.com/gridcast/gridcast/internal/predict"
	"github.com/gridcast/gridcast/internal/queue"
	"github.com/gridcast/gridcast/internal/registry"
	"github.com/gridcast/gridcast/internal/store"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "", "Override the configured processing mode")
	from := flag.String("from", "", "Training range start (YYYY-MM-DD, FULL_TRAIN only)")
	to := flag.String("to", "", "Training range end (YYYY-MM-DD, FULL_TRAIN only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Pipeline.Mode = *mode
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Models service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime,
		"mode", cfg.Pipeline.Mode)

	s, err := store.New(cfg.Storage.DataDir, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("Failed to open partition store", "error", err)
	}

	kind, err := features.ParseKind(cfg.Features.Strategy)
	if err != nil {
		logger.Fatal("Invalid feature strategy", "error", err)
	}
	strategy, err := features.NewStrategy(kind, cfg.Features, logger)
	if err != nil {
		logger.Fatal("Failed to build feature strategy", "error", err)
	}

	loader := dataset.NewLoader(s, pipeline.SourceCanonical, logger)
	reg := registry.New(s, logger)

	switch cfg.Pipeline.Mode {
	case config.ModeFullTrain:
		runTraining(cfg, loader, strategy, reg, logger, *from, *to)
	case config.ModePredict:
		runPrediction(cfg, loader, strategy, reg, s, logger)
	default:
		logger.Fatal("Mode is not a models-service mode", "mode", cfg.Pipeline.Mode)
	}
}

func runTraining(cfg *config.Config, loader *dataset.Loader, strategy features.Strategy,
	reg *registry.Registry, logger *logging.Logger, from, to string,
) {
	start, end, err := trainingRange(cfg, from, to)
	if err != nil {
		logger.Fatal("Invalid training range", "error", err)
	}

	trainer := pipeline.NewTrainer(loader, strategy, reg, *cfg, logger)
	result, err := trainer.Train(start, end)
	if err != nil {
		logger.Fatal("Training failed", "error", err)
	}

	logger.Info("Training finished",
		"version", result.Version,
		"trees_used", result.Summary.TreesUsed,
		"stopped_early", result.Summary.StoppedEarly)
	if test := result.Metrics["test"]; test != nil {
		logger.Info("Held-out test metrics",
			"rmse", test.RMSE, "mape", test.MAPE, "mae", test.MAE,
			"r2", test.R2, "bias", test.Bias)
	}
}

func runPrediction(cfg *config.Config, loader *dataset.Loader, strategy features.Strategy,
	reg *registry.Registry, s *store.Store, logger *logging.Logger,
) {
	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to queue", "type", cfg.Queue.Type, "error", err)
	}
	defer func() { _ = publisher.Close() }()

	predictor := predict.New(loader, strategy, reg, s, publisher,
		cfg.Model, cfg.Queue.Subject, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	record, err := predictor.Run(ctx, localNow(cfg.Storage.TargetTimezone))
	if err != nil {
		logger.Fatal("Prediction failed", "error", err)
	}
	logger.Info("Prediction finished",
		"prediction_for", record.PredictionFor,
		"predicted_value", record.PredictedValue,
		"model_version", record.ModelVersion)
}

// trainingRange resolves the training window: explicit flags win, the
// default is backfill start through yesterday
func trainingRange(cfg *config.Config, from, to string) (time.Time, time.Time, error) {
	if from == "" {
		from = cfg.Pipeline.BackfillStart
	}
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -from date %q: %w", from, err)
	}

	var end time.Time
	if to == "" {
		end = localNow(cfg.Storage.TargetTimezone).Truncate(24 * time.Hour).AddDate(0, 0, -1).Add(23 * time.Hour)
	} else {
		end, err = time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -to date %q: %w", to, err)
		}
		end = end.Add(23 * time.Hour)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("range end %s before start %s", to, from)
	}
	return start, end, nil
}

// localNow is the current wall clock in the business timezone as a
// naive timestamp
func localNow(tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	ts := time.Now().In(loc)
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, time.UTC)
}
