package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"expressconnect/internal/cache"
	"expressconnect/internal/config"
	"expressconnect/internal/log"
	"expressconnect/internal/queue"
	"expressconnect/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(tasks.NewLogMailer(logger), cfg.Notify.From, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Notify.Stream,
		cfg.Notify.Group,
		cfg.Notify.Consumer,
		cfg.Notify.ClaimInterval,
		logger,
		processor,
	).WithMaxDeliveries(cfg.Notify.MaxDeliveries)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("consumer group setup failed")
	}

	logger.Info().Str("stream", cfg.Notify.Stream).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited")
}
