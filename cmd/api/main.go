package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"expressconnect/internal/cache"
	"expressconnect/internal/config"
	"expressconnect/internal/database"
	"expressconnect/internal/gate"
	"expressconnect/internal/handlers"
	"expressconnect/internal/jobs"
	"expressconnect/internal/log"
	"expressconnect/internal/notify"
	"expressconnect/internal/repository"
	"expressconnect/internal/security"
	"expressconnect/internal/server"
	"expressconnect/internal/service"
	"expressconnect/internal/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	accounts := repository.NewAccountRepository(dbPool)
	svcCfg := service.NewConfig(cfg)
	creds := service.NewCredentialService(
		accounts,
		security.NewHasher(cfg.Security.BcryptCost),
		svcCfg,
		logger.With().Str("component", "credentials").Logger(),
	)
	auth := service.NewAuthService(
		accounts,
		creds,
		verification.NewStore(redisClient, cfg.Security.CodeSecret),
		notify.NewStreamNotifier(redisClient, cfg.Notify.Stream),
		svcCfg,
		logger.With().Str("component", "auth").Logger(),
	)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		Auth:     auth,
		Sessions: security.NewSessionIssuer(cfg.Security.SessionSecret, cfg.Security.SessionTTL),
		Gate: gate.New(gate.Config{
			APIPrefixes:      cfg.Auth.APIPrefixes,
			SignInPath:       cfg.Auth.SignInPath,
			UnauthorizedPath: cfg.Auth.UnauthorizedPath,
			AdminHome:        cfg.Auth.AdminHome,
		}),
		DB:    dbPool,
		Cache: redisClient,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(creds, cfg.Jobs.ResetSweepSpec, cfg.Timeouts.Store, logger.With().Str("component", "jobs").Logger())
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
