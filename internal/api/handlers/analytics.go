package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/models"
	"github.com/hassanrz/psx-analytics/internal/repository"
	"github.com/hassanrz/psx-analytics/internal/services"
)

const (
	defaultListLimit     = 100
	defaultSentimentDays = 30
)

// AnalyticsHandler serves the read side: stocks, indicators, sentiment,
// predictions and the aggregated signal.
type AnalyticsHandler struct {
	cfg         *config.Config
	logger      *logrus.Logger
	bars        *repository.BarRepository
	indicators  *repository.IndicatorRepository
	sentiment   *repository.SentimentRepository
	predictions *repository.PredictionRepository
	redis       *database.RedisClient
}

func NewAnalyticsHandler(
	cfg *config.Config,
	logger *logrus.Logger,
	bars *repository.BarRepository,
	indicators *repository.IndicatorRepository,
	sentiment *repository.SentimentRepository,
	predictions *repository.PredictionRepository,
	redis *database.RedisClient,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		cfg:         cfg,
		logger:      logger,
		bars:        bars,
		indicators:  indicators,
		sentiment:   sentiment,
		predictions: predictions,
		redis:       redis,
	}
}

type StockInfo struct {
	Symbol   string     `json:"symbol"`
	BarCount int        `json:"bar_count"`
	LastDate *time.Time `json:"last_trade_date,omitempty"`
}

type StocksResponse struct {
	Stocks []StockInfo `json:"stocks"`
}

// GetStocks lists the configured symbols with their bar coverage.
func (h *AnalyticsHandler) GetStocks(c *gin.Context) {
	resp := StocksResponse{Stocks: make([]StockInfo, 0)}
	for _, symbol := range h.cfg.Pipeline.SymbolList() {
		count, lastDate, err := h.bars.Stats(c.Request.Context(), symbol)
		if err != nil {
			h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load bar stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stock data"})
			return
		}
		info := StockInfo{Symbol: symbol, BarCount: count}
		if count > 0 {
			info.LastDate = &lastDate
		}
		resp.Stocks = append(resp.Stocks, info)
	}
	c.JSON(http.StatusOK, resp)
}

type IndicatorsResponse struct {
	Symbol     string             `json:"symbol"`
	Indicators []models.Indicator `json:"indicators"`
}

// GetIndicators returns the most recent indicator rows for a symbol.
func (h *AnalyticsHandler) GetIndicators(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	limit := queryInt(c, "limit", defaultListLimit)

	rows, err := h.indicators.ListRecent(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load indicators")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load indicators"})
		return
	}
	c.JSON(http.StatusOK, IndicatorsResponse{Symbol: symbol, Indicators: rows})
}

type SentimentResponse struct {
	Symbol string                  `json:"symbol"`
	Since  time.Time               `json:"since"`
	Scores []models.SentimentScore `json:"scores"`
}

// GetSentiment returns the symbol's sentiment scores over a trailing window.
func (h *AnalyticsHandler) GetSentiment(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	days := queryInt(c, "days", defaultSentimentDays)
	since := time.Now().AddDate(0, 0, -days)

	scores, err := h.sentiment.ListSince(c.Request.Context(), symbol, since)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load sentiment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sentiment"})
		return
	}
	c.JSON(http.StatusOK, SentimentResponse{Symbol: symbol, Since: since, Scores: scores})
}

type PredictionsResponse struct {
	Symbol      string                  `json:"symbol"`
	Predictions []models.Prediction     `json:"predictions"`
	Accuracy    *models.AccuracySummary `json:"accuracy,omitempty"`
}

// GetPredictions returns recent predictions plus the reconciled accuracy
// summary for the symbol.
func (h *AnalyticsHandler) GetPredictions(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	limit := queryInt(c, "limit", defaultListLimit)

	rows, err := h.predictions.ListRecent(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load predictions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load predictions"})
		return
	}

	accuracy, err := h.predictions.Accuracy(c.Request.Context(), symbol, services.ModelType)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to load accuracy summary")
		accuracy = nil
	}

	c.JSON(http.StatusOK, PredictionsResponse{Symbol: symbol, Predictions: rows, Accuracy: accuracy})
}

type SignalResponse struct {
	Signal services.AggregateResult `json:"signal"`
	Cached bool                     `json:"cached"`
}

// GetSignal returns the symbol's latest aggregated signal, preferring the
// cached copy from the last pipeline run and recomputing from storage when
// the cache is cold.
func (h *AnalyticsHandler) GetSignal(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	ctx := c.Request.Context()

	if payload, err := h.redis.Get(ctx, database.SignalCacheKey(symbol)); err == nil {
		var agg services.AggregateResult
		if err := json.Unmarshal([]byte(payload), &agg); err == nil {
			c.JSON(http.StatusOK, SignalResponse{Signal: agg, Cached: true})
			return
		}
	}

	count, lastDate, err := h.bars.Stats(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load bar stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for symbol"})
		return
	}

	indicators, err := h.indicators.ListForDate(ctx, symbol, lastDate)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load indicators")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}

	since := lastDate.AddDate(0, 0, -h.cfg.Sentiment.LookbackDays)
	sentiment, err := h.sentiment.ListSince(ctx, symbol, since)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load sentiment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}

	agg := services.AggregateSignals(symbol, lastDate, indicators, sentiment)
	c.JSON(http.StatusOK, SignalResponse{Signal: agg, Cached: false})
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
