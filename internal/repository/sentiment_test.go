package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanrz/psx-analytics/internal/models"
)

func TestArticleRepository_Insert(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewArticleRepository(mockPool)

	a := &models.Article{
		Title:       "OGDC announces record profit",
		Body:        "Oil and Gas Development Company posted...",
		Source:      "dawn",
		PublishedAt: time.Now(),
	}

	mockPool.ExpectExec("INSERT INTO articles").
		WithArgs(a.Title, a.Body, a.Source, a.URL, a.PublishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestArticleRepository_Insert_DuplicateTitle(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewArticleRepository(mockPool)

	a := &models.Article{Title: "OGDC announces record profit", PublishedAt: time.Now()}

	mockPool.ExpectExec("INSERT INTO articles").
		WithArgs(a.Title, a.Body, a.Source, a.URL, a.PublishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestArticleRepository_ListUnscored(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewArticleRepository(mockPool)
	published := time.Now().Add(-2 * time.Hour)

	mockPool.ExpectQuery("SELECT id, title, body, source, url, published_at, scored_at FROM articles").
		WithArgs(200).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "body", "source", "url", "published_at", "scored_at",
		}).AddRow(int64(3), "HBL quarterly results", "Habib Bank...", "tribune", "", published, (*time.Time)(nil)))

	out, err := repo.ListUnscored(context.Background(), 200)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].ScoredAt)
}

func TestArticleRepository_MarkScored(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewArticleRepository(mockPool)
	now := time.Now()

	mockPool.ExpectExec("UPDATE articles SET scored_at").
		WithArgs(now, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkScored(context.Background(), 3, now))
}

func TestSentimentRepository_Insert(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSentimentRepository(mockPool)

	s := &models.SentimentScore{
		Stock:        "HBL",
		Title:        "HBL quarterly results",
		Polarity:     decimal.NewFromFloat(0.5),
		Subjectivity: decimal.NewFromFloat(0.2),
		Signal:       models.SignalBuy,
		ScoredAt:     time.Now(),
	}

	mockPool.ExpectExec("INSERT INTO news_sentiment").
		WithArgs(s.Stock, s.Title, s.Polarity, s.Subjectivity, s.Signal, s.ScoredAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.Insert(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestSentimentRepository_Insert_AlreadyScored(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSentimentRepository(mockPool)

	s := &models.SentimentScore{Stock: "HBL", Title: "HBL quarterly results", ScoredAt: time.Now()}

	mockPool.ExpectExec("INSERT INTO news_sentiment").
		WithArgs(s.Stock, s.Title, s.Polarity, s.Subjectivity, s.Signal, s.ScoredAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.Insert(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestSentimentRepository_ListSince(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSentimentRepository(mockPool)
	since := time.Now().AddDate(0, 0, -7)
	scoredAt := time.Now()

	mockPool.ExpectQuery("SELECT id, stock, title, polarity, subjectivity, signal, scored_at FROM news_sentiment").
		WithArgs("HBL", since).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "stock", "title", "polarity", "subjectivity", "signal", "scored_at",
		}).AddRow(int64(7), "HBL", "HBL quarterly results", decimal.NewFromFloat(0.5), decimal.NewFromFloat(0.2), models.SignalBuy, scoredAt))

	out, err := repo.ListSince(context.Background(), "HBL", since)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.SignalBuy, out[0].Signal)
}
