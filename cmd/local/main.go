package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/nemanja-m/wordfreq/internal/coordinator/api/rest"
	"github.com/nemanja-m/wordfreq/internal/coordinator/cluster/local"
	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	"github.com/nemanja-m/wordfreq/internal/coordinator/service"
	jobstorage "github.com/nemanja-m/wordfreq/internal/coordinator/storage"
	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/storage"
	workerservice "github.com/nemanja-m/wordfreq/internal/worker/service"
	"github.com/nemanja-m/wordfreq/pkg/input"
)

func main() {
	var patterns []string
	flag.Func("input", "input files glob pattern, may be repeated (supports **)", func(s string) error {
		patterns = append(patterns, s)
		return nil
	})
	var (
		splits      = flag.Int("splits", 4, "number of map tasks")
		workers     = flag.Int("workers", runtime.NumCPU(), "number of concurrent tasks")
		taskTimeout = flag.Duration("task-timeout", 2*time.Minute, "timeout of a single map or reduce task")
		logLevel    = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger, err := logging.NewWithWriter(config.LoggingConfig{Level: *logLevel, Format: "text"}, os.Stderr)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	if len(patterns) == 0 {
		logger.Fatal("Input pattern must be specified using the -input flag")
	}
	if *splits <= 0 || *workers <= 0 {
		logger.Fatal("Number of splits and workers must be greater than 0")
	}

	files, err := input.FindFiles(patterns...)
	if err != nil {
		logger.Fatal("Failed to find input files", "error", err)
	}
	if len(files) == 0 {
		logger.Fatal("No files matched the input patterns", "patterns", strings.Join(patterns, ","))
	}

	text, err := input.ReadText(files...)
	if err != nil {
		logger.Fatal("Failed to read input", "error", err)
	}
	logger.Info("Read input", "files", len(files), "bytes", len(text))

	store := storage.NewMemoryStore()
	worker := workerservice.NewWorkerService(workerservice.NewStoreExecutor(store, logger), logger)
	cluster := local.New(*workers, worker, logger)
	defer cluster.Close()

	coordinator := service.NewCoordinator(
		store,
		cluster,
		jobstorage.NewInMemoryJobStore(),
		logger,
		service.WithSplits(*splits, 0),
		service.WithTaskTimeout(*taskTimeout),
	)

	result, err := coordinator.Submit(context.Background(), text)
	if err != nil {
		var failure *core.JobFailure
		if errors.As(err, &failure) {
			logger.Fatal("Job failed", "stage", string(failure.Stage), "error", failure.Err)
		}
		logger.Fatal("Job failed", "error", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rest.ToWordCountResponse(result)); err != nil {
		logger.Fatal("Failed to write result", "error", err)
	}
}
