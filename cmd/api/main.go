package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/config"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/database"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/handlers"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/jobs"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/middleware"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/telemetry"
	"github.com/NETWORK-Z-Dev/dSyncShop/shop"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.IsDevelopment(), cfg.OTelServiceName)

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Settings{
		Service:     cfg.OTelServiceName,
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

	if err := middleware.InitMetrics(); err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize metrics")
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	opts, closeActions := shop.FromConfig(cfg, db)
	defer closeActions()
	opts.Migrate = true

	redisAddr := parseRedisAddr(cfg.RedisURL)
	if cfg.AsyncWebhooks() {
		jobClient := jobs.NewClient(redisAddr)
		defer jobClient.Close()
		opts.Dispatcher = jobClient
	}

	s, err := shop.New(opts)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize shop")
	}

	healthHandler := handlers.NewHealthHandler(db, redisAddr)

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(otelecho.Middleware(cfg.OTelServiceName, otelecho.WithSkipper(func(c echo.Context) bool {
		return c.Path() == "/api/health"
	})))
	e.Use(middleware.Metrics())
	e.HTTPErrorHandler = middleware.ErrorHandler

	if cfg.IsDevelopment() {
		e.Use(echomiddleware.Logger())
	}

	e.GET("/api/health", healthHandler.Check)

	g := e.Group(strings.TrimRight(cfg.BasePath, "/"))
	g.Use(middleware.OptionalJWTAuth(cfg.JWTSecret))
	s.Mount(g)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logging.Logger().Info().
			Str("port", cfg.Port).
			Str("base_path", cfg.BasePath).
			Bool("paypal", opts.PayPal != nil).
			Bool("coinbase", opts.Coinbase != nil).
			Bool("async_webhooks", cfg.AsyncWebhooks()).
			Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Logger().Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("failed to shutdown server")
	}
}

func parseRedisAddr(redisURL string) string {
	return strings.TrimPrefix(redisURL, "redis://")
}
