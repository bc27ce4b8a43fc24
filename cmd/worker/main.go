package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/storage"
	"github.com/nemanja-m/wordfreq/internal/worker/api/grpc"
	"github.com/nemanja-m/wordfreq/internal/worker/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadWorker(*configPath)
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

	executor := service.NewStoreExecutor(store, logger)
	workerService := service.NewWorkerService(executor, logger)
	server := grpc.NewServer(cfg.Server, workerService, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("Worker started",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Type,
		"reflection", cfg.Server.EnableReflection,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down worker")
		server.Stop()
	case err := <-errCh:
		if err != nil {
			logger.Error("Worker gRPC server error", "error", err)
			store.Close()
			os.Exit(1)
		}
	}
}
