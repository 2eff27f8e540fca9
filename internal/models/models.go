package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSignal is the discretized interpretation of an indicator, sentiment
// score, or prediction.
type TradeSignal string

const (
	SignalBuy     TradeSignal = "BUY"
	SignalSell    TradeSignal = "SELL"
	SignalNeutral TradeSignal = "NEUTRAL"
)

// Valid reports whether s is one of the three supported signals.
func (s TradeSignal) Valid() bool {
	return s == SignalBuy || s == SignalSell || s == SignalNeutral
}

// HistoricalBar represents one OHLCV record for a symbol on a trading date.
// Bars are immutable once imported; the scrapers own this table.
type HistoricalBar struct {
	ID        int64           `json:"id" db:"id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	TradeDate time.Time       `json:"trade_date" db:"trade_date"`
	Open      decimal.Decimal `json:"open_price" db:"open_price"`
	High      decimal.Decimal `json:"high_price" db:"high_price"`
	Low       decimal.Decimal `json:"low_price" db:"low_price"`
	Close     decimal.Decimal `json:"close_price" db:"close_price"`
	Volume    int64           `json:"volume" db:"volume"`
}

// Indicator is a computed technical indicator value for one symbol and trade
// date. Unique per (symbol, trade_date, indicator_name); recomputes overwrite
// in place.
type Indicator struct {
	ID            int64           `json:"id" db:"id"`
	Symbol        string          `json:"symbol" db:"symbol"`
	TradeDate     time.Time       `json:"trade_date" db:"trade_date"`
	IndicatorName string          `json:"indicator_name" db:"indicator_name"`
	Value         decimal.Decimal `json:"value" db:"value"`
	Signal        TradeSignal     `json:"signal" db:"signal"`
	// Period is nil for series without a single window, e.g. the MACD line.
	Period       *int      `json:"period,omitempty" db:"period"`
	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
}

// Article is a raw scraped news item. Append-only input feed; Title is the
// dedup key across the whole pipeline.
type Article struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Body        string     `json:"body" db:"body"`
	Source      string     `json:"source" db:"source"`
	URL         string     `json:"url" db:"url"`
	PublishedAt time.Time  `json:"published_at" db:"published_at"`
	ScoredAt    *time.Time `json:"scored_at,omitempty" db:"scored_at"`
}

// SentimentScore is the lexicon score of one article for one matched stock.
// Created once per (stock, title); never mutated.
type SentimentScore struct {
	ID           int64           `json:"id" db:"id"`
	Stock        string          `json:"stock" db:"stock"`
	Title        string          `json:"title" db:"title"`
	Polarity     decimal.Decimal `json:"polarity" db:"polarity"`
	Subjectivity decimal.Decimal `json:"subjectivity" db:"subjectivity"`
	Signal       TradeSignal     `json:"signal" db:"signal"`
	ScoredAt     time.Time       `json:"scored_at" db:"scored_at"`
}

// Prediction is one forecaster output combined with the aggregated signal at
// prediction time. TargetPeriod is either a concrete "YYYY-MM-DD" date or a
// relative "future_N" tag. ActualValue, Difference and PctError stay nil until
// the target date's bar is observed, then are filled exactly once.
type Prediction struct {
	ID             int64            `json:"id" db:"id"`
	Symbol         string           `json:"symbol" db:"symbol"`
	ModelType      string           `json:"model_type" db:"model_type"`
	PredictedAt    time.Time        `json:"predicted_at" db:"predicted_at"`
	TargetPeriod   string           `json:"target_period" db:"target_period"`
	PredictedValue decimal.Decimal  `json:"predicted_value" db:"predicted_value"`
	Direction      TradeSignal      `json:"direction" db:"direction"`
	ConfidencePct  decimal.Decimal  `json:"confidence_pct" db:"confidence_pct"`
	BuySignals     int              `json:"buy_signals" db:"buy_signals"`
	SellSignals    int              `json:"sell_signals" db:"sell_signals"`
	ActualValue    *decimal.Decimal `json:"actual_value,omitempty" db:"actual_value"`
	Difference     *decimal.Decimal `json:"difference,omitempty" db:"difference"`
	PctError       *decimal.Decimal `json:"pct_error,omitempty" db:"pct_error"`
}

// FuturePrefix tags predictions whose target date does not exist yet. Such
// rows are never reconciled automatically.
const FuturePrefix = "future_"

// Reconcilable reports whether the prediction is still pending and carries a
// concrete target date.
func (p *Prediction) Reconcilable() bool {
	return p.ActualValue == nil && !strings.HasPrefix(p.TargetPeriod, FuturePrefix)
}

// AccuracySummary aggregates reconciled predictions for one symbol and model.
type AccuracySummary struct {
	Symbol      string          `json:"symbol"`
	ModelType   string          `json:"model_type"`
	Filled      int             `json:"filled"`
	AvgPctError decimal.Decimal `json:"avg_pct_error"`
	CorrectBuy  int             `json:"correct_buy"`
	CorrectSell int             `json:"correct_sell"`
}
