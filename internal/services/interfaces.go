package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hassanrz/psx-analytics/internal/models"
)

// Consumer-side views of the repositories. The pipeline depends on these so
// tests can substitute fixtures without a database.

type BarSource interface {
	ListBySymbol(ctx context.Context, symbol string) ([]models.HistoricalBar, error)
	CloseOn(ctx context.Context, symbol, date string) (decimal.Decimal, bool, error)
}

type IndicatorStore interface {
	UpsertBatch(ctx context.Context, rows []models.Indicator) error
}

type ArticleSource interface {
	ListUnscored(ctx context.Context, limit int) ([]models.Article, error)
	MarkScored(ctx context.Context, id int64, at time.Time) error
}

type SentimentStore interface {
	Insert(ctx context.Context, s *models.SentimentScore) (bool, error)
	ListSince(ctx context.Context, stock string, since time.Time) ([]models.SentimentScore, error)
}

type PredictionStore interface {
	UpsertBatch(ctx context.Context, rows []models.Prediction) error
	ListPending(ctx context.Context, symbol string) ([]models.Prediction, error)
	Reconcile(ctx context.Context, id int64, actual, difference, pctError decimal.Decimal) (bool, error)
}

// RunLocker serializes pipeline runs per symbol and caches run artifacts.
// database.RedisClient is the production implementation.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, symbol, runID string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, symbol, runID string) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}
