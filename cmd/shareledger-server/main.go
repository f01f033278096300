package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"shareledger/internal/cli"
	apphttp "shareledger/internal/http"
	"shareledger/internal/log"
	"shareledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	reports, err := cli.NewReportService(cfg, logger, res)
	if err != nil {
		logger.Error("Failed to initialize report service", log.FieldError, err)
		res.Close()
		os.Exit(1)
	}

	recOpts := []services.RecordingOption{services.WithRecordingLogger(logger)}
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		recOpts = append(recOpts, services.WithPublisher(amqpClient))
	}
	recorder := services.NewRecordingService(res.Store, recOpts...)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Reports:  reports,
		Recorder: recorder,
		Ready:    res.Ready,
		Logger:   logger,
		CacheTTL: cfg.CacheTTL,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Starting shareledger server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
