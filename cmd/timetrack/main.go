package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"timetrack/internal/amqp"
	"timetrack/internal/auth"
	"timetrack/internal/cli"
	"timetrack/internal/config"
	"timetrack/internal/core"
	apphttp "timetrack/internal/http"
	"timetrack/internal/report"
	"timetrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	cfg = cli.LoadAndValidateConfig(logger)

	store := cli.OpenBackend(context.Background(), logger, cfg)

	// A nil interface, not a nil *amqp.Client, keeps publishing disabled.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			amqpClient, events = c, c
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	clock := core.SystemClock{}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiresIn)
	svc := services.New(store.Store, events, auth.NewArgon2Hasher(auth.DefaultArgon2Params()), tokens, clock)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimit:          cfg.RateLimit,
		TrustForwardHeader: cfg.TrustForwardHeader,
		Development:        cfg.IsDevelopment(),
		MetricsEnabled:     cfg.MetricsEnabled,
		UserCacheTTL:       cfg.UserCacheTTL,
	}, apphttp.Deps{
		Services: svc,
		Tokens:   tokens,
		Reports:  report.NewRenderer(clock),
		Ready:    store.Store.Ping,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	})

	logger.Info("Starting timetrack server", "port", cfg.Port, "backend", cfg.DataBackend, "events", events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
