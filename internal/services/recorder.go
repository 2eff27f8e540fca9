package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/models"
	"github.com/hassanrz/psx-analytics/internal/repository"
)

// Recorder combines forecaster output with the aggregated signal into
// prediction rows, and later fills in actual outcomes once target dates have
// observable bars.
type Recorder struct {
	predictions PredictionStore
	bars        BarSource
	logger      *logrus.Logger
}

func NewRecorder(predictions PredictionStore, bars BarSource, logger *logrus.Logger) *Recorder {
	return &Recorder{predictions: predictions, bars: bars, logger: logger}
}

// Record persists one prediction row per forecast, each carrying the run's
// aggregated direction, confidence and signal counts. The batch is written in
// one transaction; rows already reconciled are left untouched by the upsert.
func (r *Recorder) Record(ctx context.Context, symbol, modelType string, forecasts []Forecast, agg AggregateResult, at time.Time) (int, error) {
	if len(forecasts) == 0 {
		return 0, nil
	}

	rows := make([]models.Prediction, 0, len(forecasts))
	for _, fc := range forecasts {
		rows = append(rows, models.Prediction{
			Symbol:         symbol,
			ModelType:      modelType,
			PredictedAt:    at,
			TargetPeriod:   fc.TargetPeriod,
			PredictedValue: decimal.NewFromFloat(fc.PredictedValue),
			Direction:      agg.Direction,
			ConfidencePct:  agg.ConfidencePct,
			BuySignals:     agg.BuySignals,
			SellSignals:    agg.SellSignals,
		})
	}

	if err := r.predictions.UpsertBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to record predictions for %s: %w", symbol, err)
	}
	return len(rows), nil
}

// Reconcile walks the symbol's pending predictions and, for every target date
// that now has a bar, fills actual_value, difference and pct_error exactly
// once. Target dates without a bar yet simply stay pending.
func (r *Recorder) Reconcile(ctx context.Context, symbol string) (int, error) {
	pending, err := r.predictions.ListPending(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending predictions for %s: %w", symbol, err)
	}

	reconciled := 0
	for _, p := range pending {
		if !p.Reconcilable() {
			continue
		}

		// target_period may carry a timestamp suffix from older writers;
		// only the calendar date matters.
		date := p.TargetPeriod
		if len(date) > len(repository.DateLayout) {
			date = date[:len(repository.DateLayout)]
		}
		if _, err := time.Parse(repository.DateLayout, date); err != nil {
			r.logger.WithFields(logrus.Fields{
				"symbol":        symbol,
				"target_period": p.TargetPeriod,
			}).Warn("Skipping prediction with unparseable target period")
			continue
		}

		actual, ok, err := r.bars.CloseOn(ctx, symbol, date)
		if err != nil {
			return reconciled, fmt.Errorf("failed to fetch close for %s/%s: %w", symbol, date, err)
		}
		if !ok || actual.IsZero() {
			// Not yet due, or a zero close that would blow up pct_error.
			continue
		}

		difference := actual.Sub(p.PredictedValue).Round(4)
		pctError := difference.Div(actual).Mul(decimal.NewFromInt(100)).Abs().Round(4)

		done, err := r.predictions.Reconcile(ctx, p.ID, actual, difference, pctError)
		if err != nil {
			return reconciled, fmt.Errorf("failed to reconcile prediction %d: %w", p.ID, err)
		}
		if done {
			reconciled++
		}
	}

	if reconciled > 0 {
		r.logger.WithFields(logrus.Fields{
			"symbol":     symbol,
			"reconciled": reconciled,
			"pending":    len(pending) - reconciled,
		}).Info("Predictions reconciled")
	}
	return reconciled, nil
}
