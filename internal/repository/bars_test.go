package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarRepository_ListBySymbol(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)

	day1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT id, symbol, trade_date, open_price, high_price, low_price, close_price, volume FROM historical_prices").
		WithArgs("UBL").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "symbol", "trade_date", "open_price", "high_price", "low_price", "close_price", "volume",
		}).
			AddRow(int64(1), "UBL", day1, decimal.NewFromFloat(100), decimal.NewFromFloat(103), decimal.NewFromFloat(99), decimal.NewFromFloat(102), int64(5000)).
			AddRow(int64(2), "UBL", day2, decimal.NewFromFloat(102), decimal.NewFromFloat(105), decimal.NewFromFloat(101), decimal.NewFromFloat(104), int64(6200)))

	bars, err := repo.ListBySymbol(context.Background(), "UBL")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "UBL", bars[0].Symbol)
	assert.True(t, bars[0].TradeDate.Before(bars[1].TradeDate))
	assert.True(t, bars[1].Close.Equal(decimal.NewFromFloat(104)))

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestBarRepository_ListBySymbol_Empty(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)

	mockPool.ExpectQuery("SELECT id, symbol, trade_date").
		WithArgs("XXXX").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "symbol", "trade_date", "open_price", "high_price", "low_price", "close_price", "volume",
		}))

	bars, err := repo.ListBySymbol(context.Background(), "XXXX")
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestBarRepository_CloseOn(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT close_price FROM historical_prices").
		WithArgs("PSO", day).
		WillReturnRows(pgxmock.NewRows([]string{"close_price"}).AddRow(decimal.NewFromFloat(155)))

	closePrice, ok, err := repo.CloseOn(context.Background(), "PSO", "2024-03-05")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, closePrice.Equal(decimal.NewFromFloat(155)))
}

func TestBarRepository_CloseOn_NoBar(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT close_price FROM historical_prices").
		WithArgs("PSO", day).
		WillReturnRows(pgxmock.NewRows([]string{"close_price"}))

	_, ok, err := repo.CloseOn(context.Background(), "PSO", "2024-03-09")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBarRepository_CloseOn_BadDate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)

	_, _, err = repo.CloseOn(context.Background(), "PSO", "not-a-date")
	assert.Error(t, err)
}

func TestBarRepository_Stats(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)
	last := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(`SELECT COUNT\(\*\), MAX\(trade_date\) FROM historical_prices`).
		WithArgs("HBL").
		WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(120, &last))

	count, lastDate, err := repo.Stats(context.Background(), "HBL")
	require.NoError(t, err)
	assert.Equal(t, 120, count)
	assert.True(t, lastDate.Equal(last))
}

func TestBarRepository_Stats_NoRows(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewBarRepository(mockPool)

	mockPool.ExpectQuery(`SELECT COUNT\(\*\), MAX\(trade_date\) FROM historical_prices`).
		WithArgs("XXXX").
		WillReturnRows(pgxmock.NewRows([]string{"count", "max"}).AddRow(0, (*time.Time)(nil)))

	count, lastDate, err := repo.Stats(context.Background(), "XXXX")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, lastDate.IsZero())
}
