package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"shareledger/internal/cli"
	"shareledger/internal/log"
	"shareledger/internal/report"
	"shareledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting shareledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.InitBackend(context.Background(), logger, cfg)

	reports, err := cli.NewReportService(cfg, logger, res)
	if err != nil {
		logger.Error("Failed to initialize report service", log.FieldError, err)
		res.Close()
		os.Exit(1)
	}
	reportWorker := worker.NewReportWorker(reports, report.NewWriter(cfg.ReportsDir), logger)

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		logger.Info("AMQP disabled, regenerating on the report interval only", "interval", cfg.ReportInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reportWorker.Run(gctx, cfg.ReportInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumePeriodChanged(gctx, reportWorker.HandleMessage)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
