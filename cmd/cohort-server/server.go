package main

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/cohort/internal/config"
	"github.com/ehr/cohort/internal/domain/cohort"
	"github.com/ehr/cohort/internal/domain/terminology"
	"github.com/ehr/cohort/internal/platform/db"
	"github.com/ehr/cohort/internal/platform/middleware"
	"github.com/ehr/cohort/internal/platform/telemetry"
)

// newServer builds the echo instance with the middleware chain and every
// route registered.
func newServer(cfg *config.Config, database *sql.DB, catalog *terminology.Catalog, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if cfg.MetricsEnabled {
		metrics := telemetry.NewMetrics(database)
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(database))

	api := e.Group("", middleware.RateLimit(rateLimitCfg))

	// Terminology domain
	termSvc := terminology.NewService(catalog, terminology.NewConceptRepoDuckDB(database))
	terminology.NewHandler(termSvc).RegisterRoutes(api)

	// Cohort domain
	cohortSvc := cohort.NewService(catalog, cohort.NewRepoDuckDB(database))
	cohort.NewHandler(cohortSvc, cfg.OutcomesDefaultLimit, cfg.OutcomesMaxLimit).RegisterRoutes(api)

	return e
}
