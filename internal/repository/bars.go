package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// DateLayout is the calendar-date format used for trade dates and concrete
// prediction target periods. Trading days carry no timezone.
const DateLayout = "2006-01-02"

// BarRepository reads the append-only historical_prices feed. The scrapers
// own writes to this table.
type BarRepository struct {
	pool database.Pool
}

func NewBarRepository(pool database.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// ListBySymbol returns every bar for a symbol in chronological order. An
// unknown symbol yields an empty slice, not an error.
func (r *BarRepository) ListBySymbol(ctx context.Context, symbol string) ([]models.HistoricalBar, error) {
	query := `
		SELECT id, symbol, trade_date, open_price, high_price, low_price, close_price, volume
		FROM historical_prices
		WHERE symbol = $1
		ORDER BY trade_date ASC`

	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []models.HistoricalBar
	for rows.Next() {
		var b models.HistoricalBar
		if err := rows.Scan(&b.ID, &b.Symbol, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bar rows: %w", err)
	}
	return bars, nil
}

// CloseOn looks up the close price for a symbol on a calendar date. The
// second return is false when no bar exists for that date.
func (r *BarRepository) CloseOn(ctx context.Context, symbol, date string) (decimal.Decimal, bool, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid trade date %q: %w", date, err)
	}

	var close decimal.Decimal
	err = r.pool.QueryRow(ctx,
		`SELECT close_price FROM historical_prices WHERE symbol = $1 AND trade_date = $2`,
		symbol, day,
	).Scan(&close)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to look up close for %s on %s: %w", symbol, date, err)
	}
	return close, true, nil
}

// Stats returns the bar count and last trade date for a symbol. The
// forecaster uses it for its staleness check.
func (r *BarRepository) Stats(ctx context.Context, symbol string) (int, time.Time, error) {
	var count int
	var last *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(trade_date) FROM historical_prices WHERE symbol = $1`,
		symbol,
	).Scan(&count, &last)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read bar stats for %s: %w", symbol, err)
	}
	if last == nil {
		return count, time.Time{}, nil
	}
	return count, *last, nil
}
