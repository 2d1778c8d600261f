package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"subtrack/internal/backend"
	"subtrack/internal/cli"
	applog "subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting subtrack-worker")

	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("The memory backend is private to this process; backups will only see the worker's own empty dataset",
			applog.FieldBackend, cfg.DataBackend)
	}

	ctx, cancel := context.WithCancel(cli.GracefulShutdown(logger, 30*time.Second, nil))
	defer cancel()

	factory, backendConfig, result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	writer, err := factory.CreateBackupWriter(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backup writer", applog.FieldError, err)
		os.Exit(1)
	}

	// The worker only reads records and stamps last_backup; it never
	// announces changes itself.
	subs := services.NewSubscriptionService(result.Store, nil)
	exps := services.NewExpenseService(result.Store, nil)
	settings := services.NewSettingsService(result.Store, nil)
	data := services.NewDataService(subs, exps, settings, nil)
	backupWorker := worker.NewBackupWorker(data, settings, writer)

	var wg sync.WaitGroup

	if result.Publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := result.Publisher.ConsumeDataChanged(ctx, backupWorker.HandleDataChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
				cancel()
			}
		}()
	} else {
		logger.Info("AMQP not configured; backing up whenever the interval is due")
		backupWorker.DisableChangeTracking()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		backupWorker.Run(ctx, cfg.BackupCheckInterval)
	}()

	<-ctx.Done()
	logger.Info("Shutting down worker...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
