package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/carpark-service/config"
	"github.com/Eursukkul/carpark-service/internal/consumer"
	"github.com/Eursukkul/carpark-service/internal/handler"
	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/Eursukkul/carpark-service/internal/metrics"
	"github.com/Eursukkul/carpark-service/internal/middleware"
	"github.com/Eursukkul/carpark-service/internal/repository"
	"github.com/Eursukkul/carpark-service/internal/service"
	"github.com/Eursukkul/carpark-service/internal/telemetry"
	"github.com/Eursukkul/carpark-service/pkg/database"
	"github.com/Eursukkul/carpark-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Options{
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
		Service:     cfg.OTelServiceName,
	})

	if err := run(cfg); err != nil {
		logging.Logger().Fatal().Err(err).Msg("carpark service stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdownTelemetry, err := telemetry.Init(ctx, cfg.OTelServiceName, cfg.Environment, cfg.OTelEndpoint)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logging.Logger().Error().Err(err).Msg("failed to shutdown telemetry")
			}
		}()
	}

	// Storage
	var (
		db           *gorm.DB
		spaceRepo    repository.SpaceRepository
		activityRepo repository.ActivityRepository
	)
	if cfg.UsesMemoryStorage() {
		spaceRepo = repository.NewMemorySpaceRepository(cfg.TotalSpaces)
		activityRepo = repository.NewMemoryActivityRepository()
		logging.Logger().Info().Int("total_spaces", cfg.TotalSpaces).Msg("using in-memory storage")
	} else {
		var err error
		db, err = database.NewPostgresDB(ctx, cfg.DSN(), cfg.IsDevelopment())
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		if err := database.SeedSpaces(ctx, db, cfg.TotalSpaces); err != nil {
			return err
		}
		spaceRepo = repository.NewSpaceRepository(db)
		activityRepo = repository.NewActivityRepository(db)
	}

	// Activity feed: over RabbitMQ when configured, otherwise recorded in process.
	var publisher service.ActivityPublisher
	if cfg.RabbitURL != "" {
		mqPublisher, err := rabbitmq.NewPublisher(ctx, cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer mqPublisher.Close()
		publisher = mqPublisher

		mqConsumer, err := rabbitmq.NewConsumer(ctx, cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume(ctx)
		if err != nil {
			return err
		}
		activityConsumer := consumer.NewActivityConsumer(activityRepo)
		activityConsumer.Start(context.WithoutCancel(ctx), msgs)
		defer func() {
			mqConsumer.Close()
			select {
			case <-activityConsumer.Done():
			case <-time.After(5 * time.Second):
				logging.Logger().Warn().Msg("activity consumer did not drain in time")
			}
		}()
	} else {
		publisher = consumer.NewLocalRecorder(activityRepo)
	}

	// Service
	parkingSvc, err := service.NewInstrumentedParkingService(
		service.NewParkingService(spaceRepo, publisher),
		otel.Tracer(cfg.OTelServiceName),
		otel.Meter(cfg.OTelServiceName),
	)
	if err != nil {
		return fmt.Errorf("instrument parking service: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(otel.Meter(cfg.OTelServiceName))
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.Recover())
	e.Use(otelecho.Middleware(cfg.OTelServiceName, otelecho.WithSkipper(func(c echo.Context) bool {
		return c.Path() == "/health" || c.Path() == "/metrics"
	})))
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logging.Info(c.Request().Context()).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(httpMetrics.Middleware())

	var ping func(ctx context.Context) error
	if db != nil {
		ping = func(ctx context.Context) error { return database.CheckHealth(ctx, db) }
	}
	handler.NewHealthHandler(cfg.OTelServiceName, ping).RegisterRoutes(e)

	registry := metrics.NewRegistry(metrics.NewOccupancyCollector(spaceRepo))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler.NewParkingHandler(parkingSvc, activityRepo).RegisterRoutes(e)

	serverErr := make(chan error, 1)
	go func() {
		logging.Logger().Info().Str("port", cfg.ServerPort).Msg("car park service starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	stop()

	logging.Logger().Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("failed to shutdown server")
	}
	return nil
}
