package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/api"
	"github.com/hassanrz/psx-analytics/internal/api/handlers"
	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/logging"
	"github.com/hassanrz/psx-analytics/internal/repository"
	"github.com/hassanrz/psx-analytics/internal/services"
)

func main() {
	// A missing .env is fine; the environment still wins over config.yaml.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	bars := repository.NewBarRepository(db.Pool)
	indicators := repository.NewIndicatorRepository(db.Pool)
	articles := repository.NewArticleRepository(db.Pool)
	sentiment := repository.NewSentimentRepository(db.Pool)
	predictions := repository.NewPredictionRepository(db.Pool)

	engine := services.NewIndicatorEngine(cfg.Indicators, logger)
	scorer := services.NewSentimentScorer(cfg.Sentiment, logger)
	forecaster := services.NewForecaster(cfg.Forecast, logger)
	recorder := services.NewRecorder(predictions, bars, logger)

	pipeline := services.NewPipeline(cfg, logger, bars, indicators, articles, sentiment, redis,
		engine, scorer, forecaster, recorder).
		WithNotifier(services.NewTelegramNotifier(cfg.Telegram, logger)).
		WithMonitor(services.NewSystemMonitor(logger))

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	analyticsHandler := handlers.NewAnalyticsHandler(cfg, logger, bars, indicators, sentiment, predictions, redis)
	pipelineHandler := handlers.NewPipelineHandler(logger, pipeline, articles, cfg.Pipeline.SymbolList())
	api.SetupRoutes(router, db, redis, analyticsHandler, pipelineHandler)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go runScheduler(schedulerCtx, cfg.Pipeline.RunInterval(), pipeline, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// runScheduler runs the pipeline on a fixed interval. A zero interval
// disables scheduling entirely; runs then only happen via the trigger
// endpoint.
func runScheduler(ctx context.Context, interval time.Duration, pipeline *services.Pipeline, logger *logrus.Logger) {
	if interval <= 0 {
		logger.Info("Pipeline scheduler disabled")
		return
	}

	logger.Infof("Pipeline scheduler running every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pipeline.Run(ctx)
		}
	}
}
