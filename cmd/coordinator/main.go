package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nemanja-m/wordfreq/internal/coordinator/api/rest"
	"github.com/nemanja-m/wordfreq/internal/coordinator/cluster/local"
	"github.com/nemanja-m/wordfreq/internal/coordinator/cluster/remote"
	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	"github.com/nemanja-m/wordfreq/internal/coordinator/service"
	jobstorage "github.com/nemanja-m/wordfreq/internal/coordinator/storage"
	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/storage"
	workerservice "github.com/nemanja-m/wordfreq/internal/worker/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadCoordinator(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open blob store", "type", cfg.Storage.Type, "error", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cluster, closeCluster, err := newCluster(ctx, cfg.Cluster, store, logger)
	if err != nil {
		logger.Fatal("Failed to create cluster", "type", cfg.Cluster.Type, "error", err)
	}
	defer closeCluster()

	coordinator := service.NewCoordinator(
		store,
		cluster,
		jobstorage.NewInMemoryJobStore(),
		logger,
		service.WithSplits(cfg.Job.Splits, cfg.Job.MaxLinesPerSplit),
		service.WithTaskTimeout(cfg.Cluster.TaskTimeout),
	)

	server := rest.NewServer(cfg.REST, coordinator, logger)
	go func() {
		logger.Info("Starting coordinator REST server",
			"addr", cfg.REST.Addr,
			"cluster", cfg.Cluster.Type,
			"storage", cfg.Storage.Type,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("REST server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down coordinator")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// In-flight jobs get until shutdownTimeout to finish before they are cancelled.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST server forced to shutdown", "error", err)
	}
	coordinator.Shutdown()
	logger.Info("Coordinator stopped")
}

// newCluster builds the task runner selected by cfg.Type. The local cluster
// runs tasks in this process against store; the grpc cluster dispatches them
// to remote workers sharing the same store.
func newCluster(
	ctx context.Context,
	cfg config.ClusterConfig,
	store storage.BlobStore,
	logger logging.Logger,
) (core.Cluster, func(), error) {
	switch cfg.Type {
	case "grpc":
		cluster, err := remote.New(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		checker := remote.NewHealthChecker(cfg.HealthInterval, cluster, logger)
		go checker.Start(ctx)
		return cluster, func() {
			if err := cluster.Close(); err != nil {
				logger.Warn("Failed to close worker connections", "error", err)
			}
		}, nil
	default:
		executor := workerservice.NewStoreExecutor(store, logger)
		worker := workerservice.NewWorkerService(executor, logger)
		cluster := local.New(cfg.Workers, worker, logger)
		return cluster, cluster.Close, nil
	}
}
