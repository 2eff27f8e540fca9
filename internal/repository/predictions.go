package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// PredictionRepository persists forecaster output. One row per
// (symbol, model_type, target_period); re-running a forecast refreshes the
// pending row, while a reconciled row is immutable.
type PredictionRepository struct {
	pool database.Pool
}

func NewPredictionRepository(pool database.Pool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

const upsertPredictionSQL = `
	INSERT INTO predictions
		(symbol, model_type, predicted_at, target_period, predicted_value,
		 direction, confidence_pct, buy_signals, sell_signals)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (symbol, model_type, target_period)
	DO UPDATE SET predicted_at = EXCLUDED.predicted_at,
	              predicted_value = EXCLUDED.predicted_value,
	              direction = EXCLUDED.direction,
	              confidence_pct = EXCLUDED.confidence_pct,
	              buy_signals = EXCLUDED.buy_signals,
	              sell_signals = EXCLUDED.sell_signals
	WHERE predictions.actual_value IS NULL`

// UpsertBatch writes one forecast run's rows inside a single transaction, so
// a failure partway through leaves the previous predictions intact. The WHERE
// guard keeps reconciled rows frozen: once actual_value is set the forecast
// that produced it must not drift.
func (r *PredictionRepository) UpsertBatch(ctx context.Context, rows []models.Prediction) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin prediction tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range rows {
		if _, err := tx.Exec(ctx, upsertPredictionSQL,
			p.Symbol, p.ModelType, p.PredictedAt, p.TargetPeriod, p.PredictedValue,
			p.Direction, p.ConfidencePct, p.BuySignals, p.SellSignals,
		); err != nil {
			return fmt.Errorf("failed to upsert prediction %s/%s: %w", p.Symbol, p.TargetPeriod, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit prediction tx: %w", err)
	}
	return nil
}

// ListPending returns unreconciled predictions with concrete target dates,
// oldest first. future_* rows are excluded; they have no date to match yet.
func (r *PredictionRepository) ListPending(ctx context.Context, symbol string) ([]models.Prediction, error) {
	query := `
		SELECT id, symbol, model_type, predicted_at, target_period, predicted_value,
		       direction, confidence_pct, buy_signals, sell_signals,
		       actual_value, difference, pct_error
		FROM predictions
		WHERE symbol = $1
		  AND actual_value IS NULL
		  AND target_period NOT LIKE 'future\_%'
		ORDER BY predicted_at ASC`

	return r.list(ctx, query, symbol)
}

// ListRecent returns the newest predictions for the serving layer.
func (r *PredictionRepository) ListRecent(ctx context.Context, symbol string, limit int) ([]models.Prediction, error) {
	query := `
		SELECT id, symbol, model_type, predicted_at, target_period, predicted_value,
		       direction, confidence_pct, buy_signals, sell_signals,
		       actual_value, difference, pct_error
		FROM predictions
		WHERE symbol = $1
		ORDER BY predicted_at DESC, id DESC
		LIMIT $2`

	return r.list(ctx, query, symbol, limit)
}

// Reconcile fills the actual outcome exactly once. A row already reconciled
// (or deleted) reports false.
func (r *PredictionRepository) Reconcile(ctx context.Context, id int64, actual, difference, pctError decimal.Decimal) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE predictions
		SET actual_value = $1, difference = $2, pct_error = $3
		WHERE id = $4 AND actual_value IS NULL`,
		actual, difference, pctError, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to reconcile prediction %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Accuracy summarizes reconciled predictions for one symbol and model.
func (r *PredictionRepository) Accuracy(ctx context.Context, symbol, modelType string) (*models.AccuracySummary, error) {
	var s models.AccuracySummary
	s.Symbol, s.ModelType = symbol, modelType

	var avg *decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       AVG(ABS(pct_error)),
		       COUNT(*) FILTER (WHERE direction = 'BUY' AND difference > 0),
		       COUNT(*) FILTER (WHERE direction = 'SELL' AND difference < 0)
		FROM predictions
		WHERE symbol = $1 AND model_type = $2 AND actual_value IS NOT NULL`,
		symbol, modelType,
	).Scan(&s.Filled, &avg, &s.CorrectBuy, &s.CorrectSell)
	if err != nil {
		return nil, fmt.Errorf("failed to read accuracy for %s: %w", symbol, err)
	}
	if avg != nil {
		s.AvgPctError = *avg
	}
	return &s, nil
}

func (r *PredictionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Prediction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.Symbol, &p.ModelType, &p.PredictedAt, &p.TargetPeriod,
			&p.PredictedValue, &p.Direction, &p.ConfidencePct, &p.BuySignals, &p.SellSignals,
			&p.ActualValue, &p.Difference, &p.PctError); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}
	return out, nil
}
