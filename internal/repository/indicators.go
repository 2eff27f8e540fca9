package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// IndicatorRepository persists computed indicator rows. Recomputes overwrite
// the existing (symbol, trade_date, indicator_name) row, never duplicate it.
type IndicatorRepository struct {
	pool database.Pool
}

func NewIndicatorRepository(pool database.Pool) *IndicatorRepository {
	return &IndicatorRepository{pool: pool}
}

const upsertIndicatorSQL = `
	INSERT INTO indicators (symbol, trade_date, indicator_name, value, signal, period, calculated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (symbol, trade_date, indicator_name)
	DO UPDATE SET value = EXCLUDED.value,
	              signal = EXCLUDED.signal,
	              period = EXCLUDED.period,
	              calculated_at = EXCLUDED.calculated_at`

// UpsertBatch writes one symbol's recomputed rows inside a single
// transaction, so a failure partway through leaves the previous state intact.
func (r *IndicatorRepository) UpsertBatch(ctx context.Context, rows []models.Indicator) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin indicator tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, row := range rows {
		if _, err := tx.Exec(ctx, upsertIndicatorSQL,
			row.Symbol, row.TradeDate, row.IndicatorName, row.Value, row.Signal, row.Period, row.CalculatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert %s for %s: %w", row.IndicatorName, row.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit indicator tx: %w", err)
	}
	return nil
}

// ListForDate returns every indicator computed for a symbol on one trade date.
func (r *IndicatorRepository) ListForDate(ctx context.Context, symbol string, date time.Time) ([]models.Indicator, error) {
	query := `
		SELECT id, symbol, trade_date, indicator_name, value, signal, period, calculated_at
		FROM indicators
		WHERE symbol = $1 AND trade_date = $2
		ORDER BY indicator_name ASC`

	return r.list(ctx, query, symbol, date)
}

// ListRecent returns the newest indicator rows for the dashboard read path.
func (r *IndicatorRepository) ListRecent(ctx context.Context, symbol string, limit int) ([]models.Indicator, error) {
	query := `
		SELECT id, symbol, trade_date, indicator_name, value, signal, period, calculated_at
		FROM indicators
		WHERE symbol = $1
		ORDER BY trade_date DESC, indicator_name ASC
		LIMIT $2`

	return r.list(ctx, query, symbol, limit)
}

func (r *IndicatorRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Indicator, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer rows.Close()

	var out []models.Indicator
	for rows.Next() {
		var ind models.Indicator
		if err := rows.Scan(&ind.ID, &ind.Symbol, &ind.TradeDate, &ind.IndicatorName,
			&ind.Value, &ind.Signal, &ind.Period, &ind.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		out = append(out, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indicator rows: %w", err)
	}
	return out, nil
}
