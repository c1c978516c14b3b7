package main

import (
	"context"
	"errors"
	"os"
	"time"

	"screentime/internal/amqp"
	"screentime/internal/backend"
	"screentime/internal/cli"
	"screentime/internal/log"
	"screentime/internal/services"
	"screentime/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting screentime-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	mirrorCfg, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		os.Exit(1)
	}
	mirror := cli.InitBackend(context.Background(), logger, mirrorCfg)
	logger.Info("Mirror backend initialized", "mirror", cfg.MirrorBackend)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	// Periodic reconciliation catches events lost while the worker was down.
	var (
		primary   *backend.BackendResult
		processor *services.SyncProcessor
	)
	if cfg.MirrorSyncInterval > 0 {
		primaryCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid backend configuration", log.FieldError, err)
			os.Exit(1)
		}
		primary = cli.InitBackend(context.Background(), logger, primaryCfg)

		syncCfg := services.DefaultSyncProcessorConfig()
		syncCfg.PollInterval = cfg.MirrorSyncInterval
		processor = services.NewSyncProcessor(primary.Backend, mirror.Backend, syncCfg)
	} else {
		logger.Info("Periodic mirror sync disabled")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if processor != nil {
			if err := processor.Stop(ctx); err != nil {
				logger.Warn("Sync processor stop error", log.FieldError, err)
			}
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := mirror.Close(); err != nil {
			logger.Warn("Mirror close error", log.FieldError, err)
		}
		if err := primary.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})
	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Periodic mirror sync started", "interval", cfg.MirrorSyncInterval)
	}

	mirrorWorker := worker.NewMirrorWorker(mirror.Backend)
	go func() {
		err := amqpClient.ConsumeRecordEvents(ctx, mirrorWorker.HandleRecordEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Record event consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
