package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/models"
	"github.com/hassanrz/psx-analytics/internal/repository"
)

// PipelineRunner starts one batch run; services.Pipeline is the production
// implementation.
type PipelineRunner interface {
	RunWithID(ctx context.Context, runID string, symbols []string) *models.RunSummary
}

// PipelineHandler serves the write side: manual run triggers and article
// ingestion.
type PipelineHandler struct {
	logger   *logrus.Logger
	pipeline PipelineRunner
	articles *repository.ArticleRepository
	symbols  []string
}

func NewPipelineHandler(logger *logrus.Logger, pipeline PipelineRunner, articles *repository.ArticleRepository, symbols []string) *PipelineHandler {
	return &PipelineHandler{
		logger:   logger,
		pipeline: pipeline,
		articles: articles,
		symbols:  symbols,
	}
}

type TriggerRequest struct {
	Symbols []string `json:"symbols"`
}

type TriggerResponse struct {
	RunID   string   `json:"run_id"`
	Status  string   `json:"status"`
	Symbols []string `json:"symbols"`
}

// TriggerRun starts a pipeline run in the background and returns immediately
// with the run ID. An optional symbols list restricts the run; the default is
// the configured set. The run detaches from the request context; per-symbol
// locks keep overlapping triggers from doubling work.
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	runID := uuid.NewString()

	symbols := h.symbols
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err == nil && len(req.Symbols) > 0 {
		symbols = make([]string, 0, len(req.Symbols))
		for _, s := range req.Symbols {
			if s = normalizeSymbol(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	h.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"symbols": symbols,
	}).Info("Pipeline run triggered via API")

	go h.pipeline.RunWithID(context.Background(), runID, symbols)

	c.JSON(http.StatusAccepted, TriggerResponse{
		RunID:   runID,
		Status:  "started",
		Symbols: symbols,
	})
}

type ArticleRequest struct {
	Title       string    `json:"title" binding:"required"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

type ArticleResponse struct {
	Status string `json:"status"`
	Title  string `json:"title"`
}

// CreateArticle queues a news article for scoring on the next pipeline run.
// Titles are the dedup key; resubmitting a known title is a no-op.
func (h *PipelineHandler) CreateArticle(c *gin.Context) {
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	publishedAt := req.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}

	article := &models.Article{
		Title:       req.Title,
		Body:        req.Body,
		Source:      req.Source,
		URL:         req.URL,
		PublishedAt: publishedAt,
	}

	inserted, err := h.articles.Insert(c.Request.Context(), article)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store article")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store article"})
		return
	}

	if !inserted {
		c.JSON(http.StatusOK, ArticleResponse{Status: "duplicate", Title: req.Title})
		return
	}
	c.JSON(http.StatusCreated, ArticleResponse{Status: "queued", Title: req.Title})
}
