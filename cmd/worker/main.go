package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/config"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/database"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/jobs"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/telemetry"
	"github.com/NETWORK-Z-Dev/dSyncShop/shop"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	serviceName := cfg.OTelServiceName + "-worker"
	logging.Init(cfg.IsDevelopment(), serviceName)

	if !cfg.AsyncWebhooks() {
		logging.Logger().Fatal().Msg("REDIS_URL is required to run the worker")
	}

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Settings{
		Service:     serviceName,
		Endpoint:    cfg.OTelEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logging.Logger().Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	opts, closeActions := shop.FromConfig(cfg, db)
	defer closeActions()

	s, err := shop.New(opts)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize shop")
	}

	server := jobs.NewServer(parseRedisAddr(cfg.RedisURL), 10, s.Hub)

	go func() {
		if err := server.Start(); err != nil {
			logging.Logger().Fatal().Err(err).Msg("failed to start worker")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger().Info().Msg("shutting down worker")
	server.Shutdown()
}

func parseRedisAddr(redisURL string) string {
	return strings.TrimPrefix(redisURL, "redis://")
}
