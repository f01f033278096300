package main

import (
	"context"
	"fmt"
	"os"

	"shareledger/internal/cli"
	"shareledger/internal/cli/commands"
	"shareledger/internal/config"
	"shareledger/internal/log"
	"shareledger/internal/report"
	"shareledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(level, log.ComponentCLI)

	app := commands.New(commands.Options{
		Load: func(ctx context.Context) (*commands.Env, func(), error) {
			return load(ctx, logger)
		},
	})
	if err := app.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func load(ctx context.Context, logger *log.Logger) (*commands.Env, func(), error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	reports, err := cli.NewReportService(cfg, logger, res)
	if err != nil {
		res.Close()
		return nil, nil, err
	}

	var opts []services.RecordingOption
	opts = append(opts, services.WithRecordingLogger(logger))
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		opts = append(opts, services.WithPublisher(amqpClient))
	}

	env := &commands.Env{
		Reports:  reports,
		Recorder: services.NewRecordingService(res.Store, opts...),
		Writer:   report.NewWriter(cfg.ReportsDir),
		Logger:   logger,
	}
	release := func() {
		if amqpClient != nil {
			amqpClient.Close()
		}
		res.Close()
	}
	return env, release, nil
}
