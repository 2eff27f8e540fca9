package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hassanrz/psx-analytics/internal/database"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// ArticleRepository stores the raw scraped news feed. Titles are unique; a
// re-submitted article is dropped at the insert.
type ArticleRepository struct {
	pool database.Pool
}

func NewArticleRepository(pool database.Pool) *ArticleRepository {
	return &ArticleRepository{pool: pool}
}

// Insert appends an article. Returns false when the title was already seen.
func (r *ArticleRepository) Insert(ctx context.Context, a *models.Article) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO articles (title, body, source, url, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO NOTHING`,
		a.Title, a.Body, a.Source, a.URL, a.PublishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListUnscored returns articles the sentiment scorer has not processed yet.
func (r *ArticleRepository) ListUnscored(ctx context.Context, limit int) ([]models.Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, body, source, url, published_at, scored_at
		FROM articles
		WHERE scored_at IS NULL
		ORDER BY published_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unscored articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Source, &a.URL, &a.PublishedAt, &a.ScoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}
	return out, nil
}

// MarkScored records that the scorer has consumed an article, whether or not
// any stock matched it.
func (r *ArticleRepository) MarkScored(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE articles SET scored_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to mark article %d scored: %w", id, err)
	}
	return nil
}

// SentimentRepository persists per-stock article scores.
type SentimentRepository struct {
	pool database.Pool
}

func NewSentimentRepository(pool database.Pool) *SentimentRepository {
	return &SentimentRepository{pool: pool}
}

// Insert stores one score. A (stock, title) pair is scored at most once; a
// repeat is a no-op and returns false.
func (r *SentimentRepository) Insert(ctx context.Context, s *models.SentimentScore) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO news_sentiment (stock, title, polarity, subjectivity, signal, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stock, title) DO NOTHING`,
		s.Stock, s.Title, s.Polarity, s.Subjectivity, s.Signal, s.ScoredAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert sentiment for %s: %w", s.Stock, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListSince returns a stock's scores newer than the cutoff, newest first.
func (r *SentimentRepository) ListSince(ctx context.Context, stock string, since time.Time) ([]models.SentimentScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, stock, title, polarity, subjectivity, signal, scored_at
		FROM news_sentiment
		WHERE stock = $1 AND scored_at >= $2
		ORDER BY scored_at DESC`, stock, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiment for %s: %w", stock, err)
	}
	defer rows.Close()

	var out []models.SentimentScore
	for rows.Next() {
		var s models.SentimentScore
		if err := rows.Scan(&s.ID, &s.Stock, &s.Title, &s.Polarity, &s.Subjectivity, &s.Signal, &s.ScoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sentiment rows: %w", err)
	}
	return out, nil
}
