// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/subtrack and cmd/subtrack-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"subtrack/internal/backend"
	"subtrack/internal/config"
	applog "subtrack/internal/log"
	"subtrack/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and exits the
// process when the configuration is invalid.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend opens the configured document store and optional AMQP client.
// Returns the result or exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (backend.Factory, backend.Config, *backend.BackendResult) {
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := factory.CreateBackend(initCtx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return factory, backendConfig, result
}

// Publisher returns the backend's AMQP client as a services.Publisher, or a
// nil interface when change notifications are disabled.
func Publisher(result *backend.BackendResult) services.Publisher {
	if result == nil || result.Publisher == nil {
		return nil
	}
	return result.Publisher
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled once a signal arrives and cleanup has
// finished or the timeout has passed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		if cleanup == nil {
			return
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		cleanup(shutdownCtx)
	}()

	return ctx
}
