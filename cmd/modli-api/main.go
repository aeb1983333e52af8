package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/app"
	"github.com/mekanizma/modli/backend/internal/broker"
	"github.com/mekanizma/modli/backend/internal/config"
	"github.com/mekanizma/modli/backend/internal/database"
	"github.com/mekanizma/modli/backend/internal/logger"
	"github.com/mekanizma/modli/backend/internal/routers"
	"github.com/mekanizma/modli/backend/internal/server"
)

const DefaultContextTimeout = 30

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := logger.NewLogger("modli-api", "info")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logger.NewLogger("modli-api", cfg.Server.LogLevel)
	logger.Info().Msg("Config loaded successfully")

	logger.Info().Msg("Connecting to database...")
	db, err := database.New(cfg.Database, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), DefaultContextTimeout*time.Second)
	defer cancelMigrate()

	if err = database.Migrate(migrateCtx, &logger, cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err = database.WaitFor(context.Background(), &logger, "redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	var publisher *broker.Publisher
	if cfg.RabbitMQ.Enabled() {
		err = database.WaitFor(context.Background(), &logger, "rabbitmq", func(context.Context) error {
			var dialErr error
			publisher, dialErr = broker.NewPublisher(cfg.RabbitMQ, &logger)
			return dialErr
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
	}

	application, err := app.NewApp(cfg, &logger, redisClient, db, publisher)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	r := routers.SetupRoutes(application)

	srv, err := server.New(application)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize server")
	}
	srv.SetupHTTPServer(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().Msg("Server is ready to accept connections")

	<-ctx.Done()

	logger.Info().Msg("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultContextTimeout*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited properly")
}
