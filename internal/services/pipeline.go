package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// unscoredBatchSize bounds one run's article intake; leftovers are picked up
// by the next run.
const unscoredBatchSize = 200

// RunNotifier pushes a finished run's summary to an external channel.
type RunNotifier interface {
	NotifyRunSummary(ctx context.Context, summary *models.RunSummary)
}

// ResourceMonitor reports process resource usage after a run.
type ResourceMonitor interface {
	LogUsage(ctx context.Context)
}

// Pipeline orchestrates one batch run: score queued articles once, then fan
// symbols out to workers that compute indicators, aggregate signals, forecast
// and reconcile. Failures are contained per symbol.
type Pipeline struct {
	cfg    *config.Config
	logger *logrus.Logger

	bars       BarSource
	indicators IndicatorStore
	articles   ArticleSource
	sentiment  SentimentStore
	locker     RunLocker

	engine     *IndicatorEngine
	scorer     *SentimentScorer
	forecaster *Forecaster
	recorder   *Recorder

	notifier RunNotifier
	monitor  ResourceMonitor
}

func NewPipeline(
	cfg *config.Config,
	logger *logrus.Logger,
	bars BarSource,
	indicators IndicatorStore,
	articles ArticleSource,
	sentiment SentimentStore,
	locker RunLocker,
	engine *IndicatorEngine,
	scorer *SentimentScorer,
	forecaster *Forecaster,
	recorder *Recorder,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		bars:       bars,
		indicators: indicators,
		articles:   articles,
		sentiment:  sentiment,
		locker:     locker,
		engine:     engine,
		scorer:     scorer,
		forecaster: forecaster,
		recorder:   recorder,
	}
}

// WithNotifier attaches an optional run summary notifier.
func (p *Pipeline) WithNotifier(n RunNotifier) *Pipeline {
	p.notifier = n
	return p
}

// WithMonitor attaches an optional post-run resource monitor.
func (p *Pipeline) WithMonitor(m ResourceMonitor) *Pipeline {
	p.monitor = m
	return p
}

// Run executes a batch over the configured symbol set under a fresh run ID.
func (p *Pipeline) Run(ctx context.Context) *models.RunSummary {
	return p.RunWithID(ctx, uuid.NewString(), p.cfg.Pipeline.SymbolList())
}

// RunWithID executes one batch run. Articles are scored once up front so
// every symbol aggregates against the same sentiment state, then symbols are
// processed by a bounded worker pool.
func (p *Pipeline) RunWithID(ctx context.Context, runID string, symbols []string) *models.RunSummary {
	summary := &models.RunSummary{
		RunID:     runID,
		StartedAt: time.Now(),
	}

	p.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"symbols": len(symbols),
		"workers": p.cfg.Pipeline.Workers,
	}).Info("Pipeline run started")

	scored, err := p.scoreArticles(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Article scoring failed, continuing with stored sentiment")
	}
	summary.Articles = scored

	jobs := make(chan string)
	results := make(chan models.SymbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Pipeline.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				results <- p.processSymbol(ctx, runID, symbol)
			}
		}()
	}

	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()
	close(results)

	for r := range results {
		summary.Results = append(summary.Results, r)
	}
	summary.FinishedAt = time.Now()

	p.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"articles": summary.Articles,
		"failed":   summary.Failed(),
		"duration": summary.FinishedAt.Sub(summary.StartedAt),
	}).Info("Pipeline run finished")

	if p.monitor != nil {
		p.monitor.LogUsage(ctx)
	}
	if p.notifier != nil {
		p.notifier.NotifyRunSummary(ctx, summary)
	}
	return summary
}

// scoreArticles drains the unscored article queue through the sentiment
// scorer. Articles matching no stock are still marked scored so they are not
// revisited every run.
func (p *Pipeline) scoreArticles(ctx context.Context) (int, error) {
	articles, err := p.articles.ListUnscored(ctx, unscoredBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unscored articles: %w", err)
	}

	now := time.Now()
	scored := 0
	for i := range articles {
		if p.scoreArticle(ctx, &articles[i], now) {
			scored++
		}
	}
	return scored, nil
}

// scoreArticle stores one article's sentiment rows and marks the article
// consumed. A failing article is logged and left in the queue for the next
// run; it must never block the articles behind it.
func (p *Pipeline) scoreArticle(ctx context.Context, a *models.Article, now time.Time) bool {
	for _, score := range p.scorer.ScoreArticle(a, now) {
		s := score
		if _, err := p.sentiment.Insert(ctx, &s); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"article_id": a.ID,
				"stock":      s.Stock,
			}).Warn("Failed to store sentiment, skipping article")
			return false
		}
	}
	if err := p.articles.MarkScored(ctx, a.ID, now); err != nil {
		p.logger.WithError(err).WithField("article_id", a.ID).Warn("Failed to mark article scored")
		return false
	}
	return true
}

// processSymbol runs the full per-symbol chain under the symbol's run lock.
// Every error path is absorbed into the returned result.
func (p *Pipeline) processSymbol(ctx context.Context, runID, symbol string) models.SymbolResult {
	result := models.SymbolResult{Symbol: symbol, Status: models.StatusOK}
	log := p.logger.WithFields(logrus.Fields{"run_id": runID, "symbol": symbol})

	acquired, err := p.locker.AcquireRunLock(ctx, symbol, runID, p.cfg.Pipeline.LockDuration())
	if err != nil {
		return failed(result, fmt.Errorf("failed to acquire run lock: %w", err))
	}
	if !acquired {
		log.Warn("Symbol locked by another run, skipping")
		result.Status = models.StatusSkipped
		return result
	}
	defer func() {
		if err := p.locker.ReleaseRunLock(ctx, symbol, runID); err != nil {
			log.WithError(err).Warn("Failed to release run lock")
		}
	}()

	bars, err := p.bars.ListBySymbol(ctx, symbol)
	if err != nil {
		return failed(result, fmt.Errorf("failed to load bars: %w", err))
	}
	if len(bars) == 0 {
		log.Warn("No historical bars, skipping symbol")
		result.Status = models.StatusNoData
		return result
	}

	rows := p.engine.Compute(bars)
	for i := range rows {
		rows[i].Symbol = symbol
	}
	if err := p.indicators.UpsertBatch(ctx, rows); err != nil {
		return failed(result, fmt.Errorf("failed to store indicators: %w", err))
	}
	result.IndicatorRows = len(rows)

	latest := bars[len(bars)-1].TradeDate
	agg, err := p.aggregateLatest(ctx, symbol, latest, rows)
	if err != nil {
		return failed(result, err)
	}

	if p.forecaster.Stale(symbol, len(bars), latest) {
		log.Debug("Forecast model stale, retraining")
	}
	forecasts, err := p.forecaster.Forecast(symbol, bars)
	switch {
	case errors.Is(err, ErrDataInsufficient):
		log.WithError(err).Warn("Skipping forecasts")
	case err != nil:
		return failed(result, fmt.Errorf("forecast failed: %w", err))
	default:
		recorded, err := p.recorder.Record(ctx, symbol, ModelType, forecasts, agg, time.Now())
		if err != nil {
			return failed(result, err)
		}
		result.PredictionRows = recorded
	}

	reconciled, err := p.recorder.Reconcile(ctx, symbol)
	if err != nil {
		return failed(result, err)
	}
	result.Reconciled = reconciled

	log.WithFields(logrus.Fields{
		"indicators":  result.IndicatorRows,
		"predictions": result.PredictionRows,
		"reconciled":  result.Reconciled,
		"direction":   agg.Direction,
	}).Info("Symbol processed")
	return result
}

// aggregateLatest fuses the latest trade date's indicators with recent
// sentiment and caches the result for the read API. A cache write failure is
// logged but never fails the symbol.
func (p *Pipeline) aggregateLatest(ctx context.Context, symbol string, latest time.Time, rows []models.Indicator) (AggregateResult, error) {
	var todays []models.Indicator
	for _, r := range rows {
		if r.TradeDate.Equal(latest) {
			todays = append(todays, r)
		}
	}

	since := latest.AddDate(0, 0, -p.cfg.Sentiment.LookbackDays)
	sentiment, err := p.sentiment.ListSince(ctx, symbol, since)
	if err != nil {
		return AggregateResult{}, fmt.Errorf("failed to load sentiment: %w", err)
	}

	agg := AggregateSignals(symbol, latest, todays, sentiment)

	if payload, err := json.Marshal(agg); err == nil {
		if err := p.locker.Set(ctx, database.SignalCacheKey(symbol), payload, 0); err != nil {
			p.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache aggregated signal")
		}
	}
	return agg, nil
}

func failed(result models.SymbolResult, err error) models.SymbolResult {
	result.Status = models.StatusFailed
	result.Error = err.Error()
	return result
}
