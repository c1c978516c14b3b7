// Package cli holds the start-up steps shared by cmd/screentime and
// cmd/screentime-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"screentime/internal/backend"
	"screentime/internal/config"
	"screentime/internal/log"
)

// LoadEnvFile reads .env into the environment when present. Real environment
// variables win.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger installs a text logger on stdout at the given level as the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

func fatal(logger *log.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

// LoadAndValidateConfig exits the process when the environment is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(logger, "Invalid configuration", log.FieldError, err)
	}
	return cfg
}

// InitBackend opens the record store or exits the process.
func InitBackend(ctx context.Context, logger *log.Logger, cfg backend.Config) *backend.BackendResult {
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	result, err := factory.CreateBackend(ctx, cfg)
	if err != nil {
		fatal(logger, "Record store unavailable", log.FieldError, err, "type", cfg.Type)
	}
	return result
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// then runs with its own timeout; done closes when it returns or times out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		cleanupCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(cleanupCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-cleanupCtx.Done():
			logger.Warn("Shutdown timed out", "timeout", timeout)
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
