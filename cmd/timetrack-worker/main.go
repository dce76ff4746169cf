package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"timetrack/internal/amqp"
	"timetrack/internal/cli"
	"timetrack/internal/config"
	"timetrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	cfg = cli.LoadAndValidateConfig(logger)

	logger.Info("Starting timetrack-worker")

	store := cli.OpenBackend(context.Background(), logger, cfg)
	defer store.Cleanup()

	cascade := worker.NewCascadeWorker(store.Store, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled, relying on scheduled sweeps only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on cascades interrupted while the worker was down.
	if n, err := cascade.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	} else {
		logger.Info("Startup sweep completed", "entries_removed", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cascade.RunScheduled(gctx, cfg.SweepSchedule)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeProjectDeactivated(gctx, cascade.HandleProjectDeactivated)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
