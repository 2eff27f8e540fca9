package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hassanrz/psx-analytics/internal/api/handlers"
	"github.com/hassanrz/psx-analytics/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, analytics *handlers.AnalyticsHandler, pipeline *handlers.PipelineHandler) {
	router.GET("/health", healthCheck(db, redis))

	api := router.Group("/api")
	{
		api.GET("/stocks", analytics.GetStocks)
		api.GET("/indicators/:symbol", analytics.GetIndicators)
		api.GET("/sentiment/:symbol", analytics.GetSentiment)
		api.GET("/predictions/:symbol", analytics.GetPredictions)
		api.GET("/signal/:symbol", analytics.GetSignal)

		api.POST("/trigger", pipeline.TriggerRun)
		api.POST("/articles", pipeline.CreateArticle)
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
