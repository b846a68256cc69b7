package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/api"
	"github.com/andresuchdata/velorize/backend-go/internal/cache"
	"github.com/andresuchdata/velorize/backend-go/internal/config"
	"github.com/andresuchdata/velorize/backend-go/internal/metrics"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline/forecast"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
	"github.com/andresuchdata/velorize/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
	"github.com/andresuchdata/velorize/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Configure(cfg.Log, "velorize-api")
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	planningCache, err := cache.NewPlanningCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Planning cache unavailable, continuing without it")
		planningCache = cache.NewNoopPlanningCache()
	}

	rec := metrics.Default()

	services, err := buildServices(cfg, db, planningCache, rec)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Initialize HTTP server
	router := api.NewRouter(services, rec, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func buildServices(cfg *config.Config, db *postgres.DB, planningCache cache.PlanningCache, rec *metrics.Recorder) (*api.Services, error) {
	products := repository.NewProductRepository(db.DB)
	demand := repository.NewDemandRepository(db.DB)
	inventory := repository.NewInventoryRepository(db.DB)
	marketing := repository.NewMarketingRepository(db.DB)
	forecasts := postgres.NewForecastRepository(db)

	forecastCfg, err := forecast.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}
	generator := forecast.NewForecastPipeline(forecastCfg, products, demand, marketing, forecasts, rec)

	runs := pipeline.NewRepository(db.DB.DB)
	orchestrator := pipeline.NewOrchestrator(runs, pipeline.ConfigFrom("api", cfg.Pipeline), rec)

	analytics := service.NewAnalyticsService(demand, inventory, planningCache, cfg.Planning.AnalysisDays)

	return &api.Services{
		Forecast:        service.NewForecastService(forecasts, orchestrator, generator),
		Analytics:       analytics,
		Optimization:    service.NewOptimizationService(demand, inventory, analytics, cfg.Planning),
		Recommendations: service.NewRecommendationService(inventory, demand),
		Marketing:       service.NewMarketingService(marketing, demand),
	}, nil
}
