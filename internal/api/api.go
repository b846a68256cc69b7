package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/velorize/backend-go/internal/api/handlers"
	"github.com/andresuchdata/velorize/backend-go/internal/api/middleware"
	"github.com/andresuchdata/velorize/backend-go/internal/metrics"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

type Services struct {
	Forecast        *service.ForecastService
	Analytics       *service.AnalyticsService
	Optimization    *service.OptimizationService
	Recommendations *service.RecommendationService
	Marketing       *service.MarketingService
}

// NewRouter builds the HTTP surface. Route groups whose service is nil are
// not registered. /metrics serves the default Prometheus registry.
func NewRouter(services *Services, rec *metrics.Recorder, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(rec))
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api/v1")

	if services == nil {
		return router
	}

	if services.Forecast != nil {
		forecastHandler := handlers.NewForecastHandler(services.Forecast)
		forecastGroup := apiGroup.Group("/forecasting")
		{
			forecastGroup.POST("/preview", forecastHandler.Preview)
			forecastGroup.POST("/generate", forecastHandler.Generate)
			forecastGroup.GET("/forecasts", forecastHandler.List)
			forecastGroup.DELETE("/forecasts/:id", forecastHandler.Delete)
			forecastGroup.GET("/accuracy", forecastHandler.Accuracy)
		}
	}

	if services.Analytics != nil {
		analyticsHandler := handlers.NewAnalyticsHandler(services.Analytics)
		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.GET("/abc", analyticsHandler.ABC)
			analyticsGroup.GET("/xyz", analyticsHandler.XYZ)
			analyticsGroup.GET("/abc-xyz", analyticsHandler.Matrix)
			analyticsGroup.GET("/velocity", analyticsHandler.Velocity)
			analyticsGroup.GET("/seasonality/:product_id", analyticsHandler.Seasonality)
		}
	}

	if services.Optimization != nil && services.Recommendations != nil {
		optimizationHandler := handlers.NewOptimizationHandler(services.Optimization, services.Recommendations)
		optimizationGroup := apiGroup.Group("/optimization")
		{
			optimizationGroup.POST("/eoq/calculate", optimizationHandler.CalculateEOQ)
			optimizationGroup.POST("/reorder-point/calculate", optimizationHandler.CalculateReorderPoint)
			optimizationGroup.GET("/eoq", optimizationHandler.EOQ)
			optimizationGroup.GET("/reorder-points", optimizationHandler.ReorderPoints)
			optimizationGroup.GET("/abc-xyz", optimizationHandler.Policies)
			optimizationGroup.GET("/recommendations", optimizationHandler.Recommendations)
		}
	}

	if services.Marketing != nil {
		marketingHandler := handlers.NewMarketingHandler(services.Marketing)
		marketingGroup := apiGroup.Group("/marketing")
		{
			marketingGroup.GET("/events/:id/impact", marketingHandler.EventImpact)
			marketingGroup.GET("/impact", marketingHandler.ImpactSummary)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
