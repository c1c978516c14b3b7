package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"screentime/internal/amqp"
	"screentime/internal/backend"
	"screentime/internal/cli"
	"screentime/internal/document"
	apphttp "screentime/internal/http"
	"screentime/internal/log"
	"screentime/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	schema := cfg.Schema()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result := cli.InitBackend(context.Background(), logger, backendCfg)

	// Record events are optional; without a broker the mirror worker has nothing to follow.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, record events disabled", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Record events enabled", "exchange", cfg.AMQPExchange)
		}
	}

	doc, err := document.NewLoader(cfg.DocumentPath, schema.MeasureField)
	if err != nil {
		logger.Error("Invalid document configuration", log.FieldError, err)
		os.Exit(1)
	}

	var readyCheck func(context.Context) error
	if p, ok := result.Backend.(pinger); ok {
		readyCheck = p.Ping
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:       ":" + cfg.Port,
		Recorder:   services.NewRecorder(result.Backend, publisher, schema.WriteMode),
		Records:    result.Backend,
		Document:   doc,
		CacheTTL:   cfg.CacheTTL,
		Logger:     logger,
		ReadyCheck: readyCheck,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Other processes (screentimectl, a csv mirror sync, hand edits) change the
	// files behind the server's back; drop cached charts when they do.
	watched := []string{cfg.DocumentPath}
	if backendCfg.Type == backend.CSVBackend {
		watched = append(watched, cfg.StorePath)
	}
	var watchers []*document.Watcher
	for _, path := range watched {
		w, err := document.NewWatcher(path, srv.InvalidateCharts)
		if err != nil {
			logger.Warn("File watcher disabled", log.FieldError, err, "path", path)
			continue
		}
		watchers = append(watchers, w)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		for _, w := range watchers {
			_ = w.Close()
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	for _, w := range watchers {
		go w.Run(ctx)
	}

	logger.Info("Starting screentime server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldWriteMode, schema.WriteMode,
		"store", cfg.StorePath,
		"document", cfg.DocumentPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
