package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanrz/psx-analytics/internal/api/handlers"
	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/repository"
)

func setupTestRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mr := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	cfg := &config.Config{
		Pipeline:  config.PipelineConfig{Symbols: "UBL", Workers: 1},
		Sentiment: config.SentimentConfig{LookbackDays: 7},
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	analytics := handlers.NewAnalyticsHandler(cfg, logger,
		repository.NewBarRepository(pool),
		repository.NewIndicatorRepository(pool),
		repository.NewSentimentRepository(pool),
		repository.NewPredictionRepository(pool),
		rc,
	)
	pipeline := handlers.NewPipelineHandler(logger, nil, repository.NewArticleRepository(pool), []string{"UBL"})

	router := gin.New()
	SetupRoutes(router, &database.PostgresDB{}, rc, analytics, pipeline)
	return router, pool
}

func TestSetupRoutes_ReadEndpointsWired(t *testing.T) {
	router, pool := setupTestRouter(t)

	last := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	pool.ExpectQuery(`SELECT COUNT\(\*\), MAX\(trade_date\) FROM historical_prices`).
		WithArgs("UBL").
		WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(10, &last))

	req := httptest.NewRequest(http.MethodGet, "/api/stocks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.StocksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Stocks, 1)
	assert.Equal(t, "UBL", resp.Stocks[0].Symbol)
}

func TestSetupRoutes_UnknownRoute(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
