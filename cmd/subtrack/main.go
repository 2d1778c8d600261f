package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"subtrack/internal/cli"
	apphttp "subtrack/internal/http"
	applog "subtrack/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	_, _, result := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()
	pub := cli.Publisher(result)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.NewDeps(result.Store, pub), apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DashboardCacheTTL:  cfg.DashboardCacheTTL,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting subtrack server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"amqp_enabled", pub != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
