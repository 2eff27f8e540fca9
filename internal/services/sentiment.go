package services

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// SentimentScorer turns raw article text into per-stock polarity scores.
// Stocks are matched by alias keywords; an article matching several stocks
// produces one score per match, and an article matching none is discarded.
type SentimentScorer struct {
	cfg     config.SentimentConfig
	logger  *logrus.Logger
	folder  cases.Caser
	aliases map[string][]string // stock -> cleaned alias phrases
}

func NewSentimentScorer(cfg config.SentimentConfig, logger *logrus.Logger) *SentimentScorer {
	s := &SentimentScorer{
		cfg:     cfg,
		logger:  logger,
		folder:  cases.Fold(),
		aliases: make(map[string][]string, len(cfg.Aliases)),
	}
	// Aliases get the same normalization as article text, so "Oil & Gas
	// Development" matches after punctuation is stripped.
	for stock, list := range cfg.Aliases {
		for _, alias := range list {
			if cleaned := s.cleanText(alias); cleaned != "" {
				s.aliases[stock] = append(s.aliases[stock], cleaned)
			}
		}
	}
	return s
}

// ScoreArticle scores one article against every configured stock. The
// returned slice is empty when no alias matches.
func (s *SentimentScorer) ScoreArticle(a *models.Article, at time.Time) []models.SentimentScore {
	text := s.cleanText(a.Title + " " + a.Body)
	stocks := s.matchStocks(text)
	if len(stocks) == 0 {
		return nil
	}

	polarity, subjectivity := s.scoreText(text)
	signal := s.signalFor(polarity)

	title := truncateTitle(a.Title)

	scores := make([]models.SentimentScore, 0, len(stocks))
	for _, stock := range stocks {
		scores = append(scores, models.SentimentScore{
			Stock:        stock,
			Title:        title,
			Polarity:     decimal.NewFromFloat(polarity).Round(4),
			Subjectivity: decimal.NewFromFloat(subjectivity).Round(4),
			Signal:       signal,
			ScoredAt:     at,
		})
		s.logger.WithFields(logrus.Fields{
			"stock":    stock,
			"signal":   signal,
			"polarity": polarity,
		}).Debug("Article scored")
	}
	return scores
}

// matchStocks returns the stocks whose alias phrases occur in the cleaned
// text, sorted for deterministic output.
func (s *SentimentScorer) matchStocks(cleaned string) []string {
	padded := " " + cleaned + " "
	var matches []string
	for stock, aliases := range s.aliases {
		for _, alias := range aliases {
			if strings.Contains(padded, " "+alias+" ") {
				matches = append(matches, stock)
				break
			}
		}
	}
	sort.Strings(matches)
	return matches
}

// scoreText computes polarity in [-1,1] and subjectivity in [0,1] from the
// lexicon hit counts: polarity = (pos-neg)/(pos+neg), subjectivity =
// (pos+neg)/tokens.
func (s *SentimentScorer) scoreText(cleaned string) (polarity, subjectivity float64) {
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return 0, 0
	}

	pos, neg := 0, 0
	for _, tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			pos++
		} else if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	if pos+neg > 0 {
		polarity = float64(pos-neg) / float64(pos+neg)
	}
	subjectivity = float64(pos+neg) / float64(len(tokens))
	return polarity, subjectivity
}

// maxTitleBytes matches the news_sentiment title column width.
const maxTitleBytes = 999

// truncateTitle cuts an over-long title on a rune boundary; a byte-offset
// slice could split a multibyte character and produce invalid UTF-8 the
// database would reject.
func truncateTitle(title string) string {
	if len(title) <= maxTitleBytes {
		return title
	}
	cut := maxTitleBytes
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}

func (s *SentimentScorer) signalFor(polarity float64) models.TradeSignal {
	switch {
	case polarity > s.cfg.BuyThreshold:
		return models.SignalBuy
	case polarity < s.cfg.SellThreshold:
		return models.SignalSell
	default:
		return models.SignalNeutral
	}
}

// cleanText case-folds, strips everything but letters, and drops stopwords.
func (s *SentimentScorer) cleanText(text string) string {
	folded := s.folder.String(text)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	var kept []string
	for _, tok := range strings.Fields(b.String()) {
		if _, stop := stopWords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}
