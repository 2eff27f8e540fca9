package services

import (
	"fmt"
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// IndicatorEngine computes the closed set of technical indicators over one
// symbol's bar history. Dates without a full trailing window emit nothing;
// they are never zero-filled. Recomputing over the same bars yields identical
// rows, so upserts keep the table idempotent.
type IndicatorEngine struct {
	cfg    config.IndicatorConfig
	logger *logrus.Logger
}

func NewIndicatorEngine(cfg config.IndicatorConfig, logger *logrus.Logger) *IndicatorEngine {
	return &IndicatorEngine{cfg: cfg, logger: logger}
}

// Compute returns every indicator row derivable from the bar sequence. Bars
// must be in chronological order; gaps between trading days are fine because
// windows run over available bars, not calendar days. Zero bars is a no-op.
func (e *IndicatorEngine) Compute(bars []models.HistoricalBar) []models.Indicator {
	if len(bars) == 0 {
		return nil
	}

	symbol := bars[0].Symbol
	dates := make([]time.Time, len(bars))
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		dates[i] = b.TradeDate
		closes[i], _ = b.Close.Float64()
		highs[i], _ = b.High.Float64()
		lows[i], _ = b.Low.Float64()
	}

	now := time.Now()
	var rows []models.Indicator

	for _, p := range e.cfg.MAPeriods {
		rows = append(rows, e.movingAverage(symbol, closes, dates, p, now)...)
	}
	for _, p := range e.cfg.EMAPeriods {
		rows = append(rows, e.exponentialMA(symbol, closes, dates, p, now)...)
	}
	rows = append(rows, e.rsi(symbol, closes, dates, e.cfg.RSIPeriod, now)...)
	rows = append(rows, e.stochasticK(symbol, closes, highs, lows, dates, e.cfg.StochPeriod, now)...)
	rows = append(rows, e.macd(symbol, closes, dates, now)...)
	rows = append(rows, e.williamsR(symbol, closes, highs, lows, dates, e.cfg.WilliamsPeriod, now)...)
	rows = append(rows, e.cci(symbol, closes, highs, lows, dates, e.cfg.CCIPeriod, now)...)
	rows = append(rows, e.roc(symbol, closes, dates, e.cfg.ROCPeriod, now)...)

	e.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"bars":   len(bars),
		"rows":   len(rows),
	}).Debug("Indicator computation complete")

	return rows
}

func (e *IndicatorEngine) row(symbol string, date time.Time, name string, value float64, signal models.TradeSignal, period *int, now time.Time) models.Indicator {
	return models.Indicator{
		Symbol:        symbol,
		TradeDate:     date,
		IndicatorName: name,
		Value:         decimal.NewFromFloat(round6(value)),
		Signal:        signal,
		Period:        period,
		CalculatedAt:  now,
	}
}

// movingAverage emits MA_p: BUY when the close sits above its trailing mean.
func (e *IndicatorEngine) movingAverage(symbol string, closes []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	if period < 1 || len(closes) < period {
		return nil
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	values := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))

	name := indicatorName("MA", period)
	rows := make([]models.Indicator, 0, len(values))
	for j, v := range values {
		i := j + period - 1
		rows = append(rows, e.row(symbol, dates[i], name, v, levelSignal(closes[i], v), &period, now))
	}
	return rows
}

// exponentialMA emits EMA_p, seeded with the simple mean of the first window.
func (e *IndicatorEngine) exponentialMA(symbol string, closes []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	values := emaSeries(closes, period)
	if values == nil {
		return nil
	}

	name := indicatorName("EMA", period)
	rows := make([]models.Indicator, 0, len(values))
	for j, v := range values {
		i := j + period - 1
		rows = append(rows, e.row(symbol, dates[i], name, v, levelSignal(closes[i], v), &period, now))
	}
	return rows
}

// rsi uses Wilder smoothing. Oversold (<30) reads BUY, overbought (>70) SELL.
// It needs period prior bars, so the first emitted date is one later than the
// same-period moving average.
func (e *IndicatorEngine) rsi(symbol string, closes []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	if period < 1 || len(closes) < period+1 {
		return nil
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		gains[i-1] = math.Max(closes[i]-closes[i-1], 0)
		losses[i-1] = math.Max(closes[i-1]-closes[i], 0)
	}

	avgGain := mean(gains[:period])
	avgLoss := mean(losses[:period])

	var rows []models.Indicator
	for i := period; i < len(closes); i++ {
		idx := i - 1
		if idx > period-1 {
			avgGain = (avgGain*float64(period-1) + gains[idx]) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + losses[idx]) / float64(period)
		}
		val := 100.0
		if avgLoss != 0 {
			val = 100 - (100 / (1 + avgGain/avgLoss))
		}
		signal := models.SignalNeutral
		switch {
		case val < 30:
			signal = models.SignalBuy
		case val > 70:
			signal = models.SignalSell
		}
		rows = append(rows, e.row(symbol, dates[i], "RSI", val, signal, &period, now))
	}
	return rows
}

// stochasticK emits the raw %K oscillator; 50 when the window has no range.
func (e *IndicatorEngine) stochasticK(symbol string, closes, highs, lows []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	if period < 1 || len(closes) < period {
		return nil
	}

	var rows []models.Indicator
	for i := period - 1; i < len(closes); i++ {
		highest := maxOf(highs[i-period+1 : i+1])
		lowest := minOf(lows[i-period+1 : i+1])
		k := 50.0
		if highest != lowest {
			k = (closes[i] - lowest) / (highest - lowest) * 100
		}
		signal := models.SignalNeutral
		switch {
		case k < 20:
			signal = models.SignalBuy
		case k > 80:
			signal = models.SignalSell
		}
		rows = append(rows, e.row(symbol, dates[i], "Stochastic_K", k, signal, &period, now))
	}
	return rows
}

// macd emits the MACD line (no single period), plus the signal line and
// histogram once enough MACD values exist. The line is signed by its zero
// crossing; signal and histogram rows are both signed by the histogram.
func (e *IndicatorEngine) macd(symbol string, closes []float64, dates []time.Time, now time.Time) []models.Indicator {
	fast, slow, signalPeriod := e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal
	if fast < 1 || slow < fast || signalPeriod < 1 || len(closes) < slow {
		return nil
	}

	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)

	// MACD values exist from the first bar where the slow EMA does.
	macdVals := make([]float64, len(emaSlow))
	for j := range emaSlow {
		i := j + slow - 1
		macdVals[j] = emaFast[i-(fast-1)] - emaSlow[j]
	}

	var rows []models.Indicator
	for j, v := range macdVals {
		i := j + slow - 1
		rows = append(rows, e.row(symbol, dates[i], "MACD", v, zeroCrossSignal(v), nil, now))
	}

	if len(macdVals) < signalPeriod {
		return rows
	}

	signalVals := emaSeries(macdVals, signalPeriod)
	for j, sig := range signalVals {
		k := j + signalPeriod - 1 // index into macdVals
		i := k + slow - 1
		hist := macdVals[k] - sig
		effect := zeroCrossSignal(hist)
		rows = append(rows, e.row(symbol, dates[i], "MACD_Signal", sig, effect, &signalPeriod, now))
		rows = append(rows, e.row(symbol, dates[i], "MACD_Histogram", hist, effect, &signalPeriod, now))
	}
	return rows
}

// williamsR emits Williams %R; -50 when the window has no range.
func (e *IndicatorEngine) williamsR(symbol string, closes, highs, lows []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	if period < 1 || len(closes) < period {
		return nil
	}

	var rows []models.Indicator
	for i := period - 1; i < len(closes); i++ {
		highest := maxOf(highs[i-period+1 : i+1])
		lowest := minOf(lows[i-period+1 : i+1])
		wr := -50.0
		if highest != lowest {
			wr = (highest - closes[i]) / (highest - lowest) * -100
		}
		signal := models.SignalNeutral
		switch {
		case wr < -80:
			signal = models.SignalBuy
		case wr > -20:
			signal = models.SignalSell
		}
		rows = append(rows, e.row(symbol, dates[i], "Williams_R", wr, signal, &period, now))
	}
	return rows
}

// cci uses the classic 0.015 mean-deviation constant; 0 when the deviation
// vanishes.
func (e *IndicatorEngine) cci(symbol string, closes, highs, lows []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	if period < 1 || len(closes) < period {
		return nil
	}

	typical := make([]float64, len(closes))
	for i := range closes {
		typical[i] = (highs[i] + lows[i] + closes[i]) / 3
	}

	var rows []models.Indicator
	for i := period - 1; i < len(typical); i++ {
		window := typical[i-period+1 : i+1]
		sma := mean(window)
		md := 0.0
		for _, v := range window {
			md += math.Abs(v - sma)
		}
		md /= float64(period)

		val := 0.0
		if md != 0 {
			val = (typical[i] - sma) / (0.015 * md)
		}
		signal := models.SignalNeutral
		switch {
		case val < -100:
			signal = models.SignalBuy
		case val > 100:
			signal = models.SignalSell
		}
		rows = append(rows, e.row(symbol, dates[i], "CCI", val, signal, &period, now))
	}
	return rows
}

// roc is the percentage rate of change over period bars. Like RSI it needs
// period prior bars.
func (e *IndicatorEngine) roc(symbol string, closes []float64, dates []time.Time, period int, now time.Time) []models.Indicator {
	if period < 1 || len(closes) < period+1 {
		return nil
	}

	var rows []models.Indicator
	for i := period; i < len(closes); i++ {
		val := 0.0
		if closes[i-period] != 0 {
			val = (closes[i] - closes[i-period]) / closes[i-period] * 100
		}
		rows = append(rows, e.row(symbol, dates[i], "ROC", val, zeroCrossSignal(val), &period, now))
	}
	return rows
}

// emaSeries returns the EMA of data, seeded with the simple mean of the first
// period values. The result is aligned to data[period-1:]; nil when data is
// shorter than the period.
func emaSeries(data []float64, period int) []float64 {
	if period < 1 || len(data) < period {
		return nil
	}

	mult := 2.0 / float64(period+1)
	ema := mean(data[:period])
	out := make([]float64, 0, len(data)-period+1)
	out = append(out, ema)
	for i := period; i < len(data); i++ {
		ema = (data[i]-ema)*mult + ema
		out = append(out, ema)
	}
	return out
}

func indicatorName(prefix string, period int) string {
	return fmt.Sprintf("%s_%d", prefix, period)
}

// levelSignal reads close above the reference as BUY, below as SELL.
func levelSignal(close, reference float64) models.TradeSignal {
	switch {
	case close > reference:
		return models.SignalBuy
	case close < reference:
		return models.SignalSell
	default:
		return models.SignalNeutral
	}
}

func zeroCrossSignal(v float64) models.TradeSignal {
	switch {
	case v > 0:
		return models.SignalBuy
	case v < 0:
		return models.SignalSell
	default:
		return models.SignalNeutral
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func maxOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
