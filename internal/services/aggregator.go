package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hassanrz/psx-analytics/internal/models"
)

// AggregateResult is the unified trading signal for one symbol on one trade
// date, fused from indicator and sentiment records.
type AggregateResult struct {
	Symbol        string             `json:"symbol"`
	TradeDate     time.Time          `json:"trade_date"`
	Direction     models.TradeSignal `json:"direction"`
	ConfidencePct decimal.Decimal    `json:"confidence_pct"`
	BuySignals    int                `json:"buy_signals"`
	SellSignals   int                `json:"sell_signals"`
	TotalSignals  int                `json:"total_signals"`
}

// AggregateSignals fuses one date's indicator records with the recent
// sentiment records into a direction and confidence. It is a pure function:
// NEUTRAL records count toward neither side, direction follows the majority,
// and confidence is the majority share of the non-neutral records (0 when
// there are none). Identical inputs always yield identical output.
func AggregateSignals(symbol string, tradeDate time.Time, indicators []models.Indicator, sentiment []models.SentimentScore) AggregateResult {
	buy, sell := 0, 0

	for _, ind := range indicators {
		switch ind.Signal {
		case models.SignalBuy:
			buy++
		case models.SignalSell:
			sell++
		}
	}
	for _, s := range sentiment {
		switch s.Signal {
		case models.SignalBuy:
			buy++
		case models.SignalSell:
			sell++
		}
	}

	total := buy + sell
	direction := models.SignalNeutral
	confidence := decimal.Zero
	if total > 0 {
		switch {
		case buy > sell:
			direction = models.SignalBuy
		case sell > buy:
			direction = models.SignalSell
		}
		majority := buy
		if sell > majority {
			majority = sell
		}
		confidence = decimal.NewFromInt(int64(majority)).
			Div(decimal.NewFromInt(int64(total))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return AggregateResult{
		Symbol:        symbol,
		TradeDate:     tradeDate,
		Direction:     direction,
		ConfidencePct: confidence,
		BuySignals:    buy,
		SellSignals:   sell,
		TotalSignals:  total,
	}
}
