package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordanlanch/leadbook/config"
	"github.com/jordanlanch/leadbook/pkg/api/handlers"
	"github.com/jordanlanch/leadbook/pkg/authz"
	"github.com/jordanlanch/leadbook/pkg/buyers"
	"github.com/jordanlanch/leadbook/pkg/database"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/export"
	"github.com/jordanlanch/leadbook/pkg/importer"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/metrics"
	custommw "github.com/jordanlanch/leadbook/pkg/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	log.Info("configuration loaded", "environment", cfg.APIEnvironment)

	db, err := database.NewClient("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database ready")

	prometheusMetrics := metrics.New()

	// Repositories and services.
	buyerRepo := database.NewBuyerRepository(db.DB)
	historyRepo := database.NewHistoryRepository(db.DB)
	userRepo := database.NewUserRepository(db.DB)

	normalizer := enums.NewNormalizer(enums.DefaultMapping())
	gate := authz.NewGateWithBypass(authz.AdminBypass)
	validator := buyers.NewValidator(normalizer)
	buyerService := buyers.NewService(buyerRepo, historyRepo, gate, validator, log)
	importService := importer.NewService(buyerService, normalizer, cfg.ImportMaxRows, log)
	exportService := export.NewService(buyerRepo, normalizer, log)

	// Handlers.
	authHandler := handlers.NewAuthHandler(userRepo, prometheusMetrics, log, cfg.JWTSecret, cfg.JWTExpirationHours)
	buyerHandler := handlers.NewBuyerHandler(buyerService, prometheusMetrics, log)
	transferHandler := handlers.NewTransferHandler(importService, exportService, prometheusMetrics, log)

	// Echo setup.
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommw.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommw.NewRateLimiter(5, 2) // login/register brute-force guard

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("request", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
			} else {
				log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			}
			return nil
		},
	}))
	e.Use(prometheusMetrics.Middleware())
	e.Use(echomw.CORSWithConfig(custommw.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(echomw.Gzip())
	e.Use(echomw.Secure())
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Public endpoints.
	e.GET("/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register, authRateLimiter.RateLimitMiddleware())
		authRoutes.POST("/login", authHandler.Login, authRateLimiter.RateLimitMiddleware())
	}

	// Protected buyer lead routes.
	buyersGroup := v1.Group("/buyers", custommw.JWTMiddleware(cfg.JWTSecret))
	{
		buyersGroup.POST("", buyerHandler.Create)
		buyersGroup.GET("", buyerHandler.List)
		buyersGroup.GET("/stats", buyerHandler.Stats)
		buyersGroup.POST("/import", transferHandler.Import)
		buyersGroup.GET("/import/template", transferHandler.Template)
		buyersGroup.GET("/export", transferHandler.Export)
		buyersGroup.GET("/:id", buyerHandler.Get)
		buyersGroup.PUT("/:id", buyerHandler.Update)
		buyersGroup.DELETE("/:id", buyerHandler.Delete)
	}

	// Start server with graceful shutdown.
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	go func() {
		log.Info("server starting", "address", address)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
