package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/models"
)

func testSentimentConfig() config.SentimentConfig {
	return config.SentimentConfig{
		Aliases: map[string][]string{
			"UBL":  {"ubl", "united bank"},
			"PSO":  {"pso", "pakistan state oil"},
			"OGDC": {"ogdc", "oil & gas development"},
		},
		BuyThreshold:  0,
		SellThreshold: 0,
		LookbackDays:  7,
	}
}

func TestSentimentScorer_PositiveArticle(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())
	at := time.Now()

	a := &models.Article{
		Title: "UBL posts record profit",
		Body:  "United Bank Limited reported strong growth in quarterly earnings.",
	}

	scores := scorer.ScoreArticle(a, at)
	require.Len(t, scores, 1)

	s := scores[0]
	assert.Equal(t, "UBL", s.Stock)
	assert.Equal(t, a.Title, s.Title)
	assert.True(t, s.Polarity.GreaterThan(decimal.Zero))
	assert.Equal(t, models.SignalBuy, s.Signal)
	assert.True(t, s.ScoredAt.Equal(at))
}

func TestSentimentScorer_NegativeArticle(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	a := &models.Article{
		Title: "PSO shares fall on losses",
		Body:  "Pakistan State Oil warned of weak demand and declining margins.",
	}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 1)
	assert.Equal(t, "PSO", scores[0].Stock)
	assert.True(t, scores[0].Polarity.LessThan(decimal.Zero))
	assert.Equal(t, models.SignalSell, scores[0].Signal)
}

func TestSentimentScorer_NeutralWhenNoLexiconHits(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	a := &models.Article{Title: "UBL holds annual general meeting"}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 1)
	assert.True(t, scores[0].Polarity.IsZero())
	assert.True(t, scores[0].Subjectivity.IsZero())
	assert.Equal(t, models.SignalNeutral, scores[0].Signal)
}

func TestSentimentScorer_MultiStockArticle(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	a := &models.Article{
		Title: "UBL and PSO lead market rally",
		Body:  "Both stocks surged on positive earnings news.",
	}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 2)
	// Matches are sorted for deterministic output.
	assert.Equal(t, "PSO", scores[0].Stock)
	assert.Equal(t, "UBL", scores[1].Stock)
	assert.True(t, scores[0].Polarity.Equal(scores[1].Polarity))
}

func TestSentimentScorer_NoMatchDiscarded(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	a := &models.Article{Title: "Cement sector output rises"}
	assert.Empty(t, scorer.ScoreArticle(a, time.Now()))
}

func TestSentimentScorer_AliasNormalization(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	// "Oil & Gas Development" only matches because the alias gets the same
	// punctuation stripping as the article text.
	a := &models.Article{Title: "Oil & Gas Development announces higher output"}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 1)
	assert.Equal(t, "OGDC", scores[0].Stock)
}

func TestSentimentScorer_AliasMatchesWholeWordsOnly(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	// "republic" contains "ubl" but must not match the UBL alias.
	a := &models.Article{Title: "Republic day holiday announced"}
	assert.Empty(t, scorer.ScoreArticle(a, time.Now()))
}

func TestSentimentScorer_LongTitleTruncated(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	long := "UBL profit "
	for len(long) < 1200 {
		long += "x"
	}
	a := &models.Article{Title: long}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 1)
	assert.Len(t, scores[0].Title, 999)
}

func TestSentimentScorer_TruncationKeepsValidUTF8(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	// 997 ASCII bytes followed by euro signs puts a 3-byte rune across the
	// cut; a byte-offset slice would keep its first two bytes.
	long := "ubl " + strings.Repeat("a", 993) + "€€€"
	a := &models.Article{Title: long}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 1)

	title := scores[0].Title
	assert.True(t, utf8.ValidString(title), "stored title must be valid UTF-8, got trailing bytes %q", title[len(title)-4:])
	assert.LessOrEqual(t, len(title), 999)
	assert.Equal(t, 997, len(title), "cut must back up to the rune boundary")
}

func TestSentimentScorer_PolarityMath(t *testing.T) {
	scorer := NewSentimentScorer(testSentimentConfig(), testLogger())

	// Tokens after cleaning: ubl profit growth loss -> 2 positive, 1 negative.
	a := &models.Article{Title: "UBL profit growth loss"}

	scores := scorer.ScoreArticle(a, time.Now())
	require.Len(t, scores, 1)

	// polarity = (2-1)/(2+1), subjectivity = 3/4.
	assert.True(t, scores[0].Polarity.Equal(decimal.NewFromFloat(0.3333)), "got %s", scores[0].Polarity)
	assert.True(t, scores[0].Subjectivity.Equal(decimal.NewFromFloat(0.75)))
}
