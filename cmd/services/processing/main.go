package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gridcast/gridcast/internal/config"
	"github.com/gridcast/gridcast/internal/logging"
	"github.com/gridcast/gridcast/internal/pipeline"
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
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Pipeline.Mode = *mode
		if err := cfg.Pipeline.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid mode override: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Processing service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime,
		"mode", cfg.Pipeline.Mode)

	s, err := store.New(cfg.Storage.DataDir, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("Failed to open partition store", "error", err)
	}

	p, err := pipeline.New(*cfg, s, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", "error", err)
	}

	report, err := p.Run()
	if err != nil {
		logger.Fatal("Pipeline run failed", "error", err)
	}

	logger.Info("Pipeline run finished",
		"run_id", report.RunID, "mode", report.Mode,
		"succeeded", report.Succeeded, "failed", report.Failed)
	if report.HasFailures() {
		os.Exit(1)
	}
}
