package services

import (
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/models"
	"github.com/hassanrz/psx-analytics/internal/repository"
)

// ModelType tags predictions produced by this forecaster.
const ModelType = "LSTM"

// Forecast is one forecaster output: a concrete "YYYY-MM-DD" target for the
// walk-forward holdout, or a "future_N" tag for steps past the last bar.
type Forecast struct {
	TargetPeriod   string
	PredictedValue float64
}

// symbolModel is the per-symbol model lifecycle state. A model is Trained for
// exactly the bar history it saw; any newly ingested bar flips it back to
// Stale and forces a full retrain (there is no incremental update).
type symbolModel struct {
	net       *lstmNetwork
	scaler    minMaxScaler
	barCount  int
	lastDate  time.Time
	trainedAt time.Time
}

// Forecaster trains one small LSTM per symbol on its differenced close series
// and produces walk-forward plus future forecasts.
type Forecaster struct {
	cfg    config.ForecastConfig
	logger *logrus.Logger

	mu     sync.Mutex
	models map[string]*symbolModel
}

func NewForecaster(cfg config.ForecastConfig, logger *logrus.Logger) *Forecaster {
	return &Forecaster{
		cfg:    cfg,
		logger: logger,
		models: make(map[string]*symbolModel),
	}
}

// Stale reports whether the symbol's model must be retrained before its next
// forecast, i.e. it does not exist or was trained on different history.
func (f *Forecaster) Stale(symbol string, barCount int, lastDate time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.models[symbol]
	return !ok || m.barCount != barCount || !m.lastDate.Equal(lastDate)
}

// Forecast returns walk-forward predictions over the test holdout followed by
// chained future_1..future_N forecasts. Bars must be chronological. Fewer
// than min_history (or lookback+2) bars yields ErrDataInsufficient and no
// forecasts.
func (f *Forecaster) Forecast(symbol string, bars []models.HistoricalBar) ([]Forecast, error) {
	W := f.cfg.Lookback
	minBars := f.cfg.MinHistory
	if minBars < W+2 {
		minBars = W + 2
	}
	if len(bars) < minBars {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d", ErrDataInsufficient, symbol, len(bars), minBars)
	}

	raw := make([]float64, len(bars))
	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		raw[i], _ = b.Close.Float64()
		dates[i] = b.TradeDate
	}

	// First-difference the series; the model learns day-over-day moves, not
	// absolute price levels.
	diffs := make([]float64, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		diffs[i-1] = raw[i] - raw[i-1]
	}

	// Supervised windows: diffs[k..k+W-1] predict diffs[k+W].
	sampleCount := len(diffs) - W
	holdout := f.cfg.TestHoldout
	if holdout >= sampleCount {
		holdout = sampleCount / 2
	}
	trainCount := sampleCount - holdout

	model := f.trainedModel(symbol, diffs, trainCount, len(bars), dates[len(dates)-1])

	forecasts := make([]Forecast, 0, holdout+f.cfg.Horizon)

	// Walk-forward over the holdout. Sample k targets diffs[k+W], which is
	// the move into raw[k+W+1].
	for k := trainCount; k < sampleCount; k++ {
		window := f.scaledWindow(model.scaler, diffs[k:k+W])
		yhat := model.scaler.invert(model.net.predict(window))
		base := raw[k+W]
		forecasts = append(forecasts, Forecast{
			TargetPeriod:   dates[k+W+1].Format(repository.DateLayout),
			PredictedValue: round4(base + yhat),
		})
	}

	// Future forecasts chain: each predicted move extends the window and the
	// price level it is applied to.
	window := f.scaledWindow(model.scaler, diffs[len(diffs)-W:])
	lastObs := raw[len(raw)-1]
	for step := 1; step <= f.cfg.Horizon; step++ {
		scaled := model.net.predict(window)
		lastObs = round4(lastObs + model.scaler.invert(scaled))
		forecasts = append(forecasts, Forecast{
			TargetPeriod:   fmt.Sprintf("%s%d", models.FuturePrefix, step),
			PredictedValue: lastObs,
		})
		window = append(window[1:], scaled)
	}

	return forecasts, nil
}

// trainedModel returns the cached model when it is still fresh for this
// history, otherwise trains a new one.
func (f *Forecaster) trainedModel(symbol string, diffs []float64, trainCount, barCount int, lastDate time.Time) *symbolModel {
	f.mu.Lock()
	if m, ok := f.models[symbol]; ok && m.barCount == barCount && m.lastDate.Equal(lastDate) {
		f.mu.Unlock()
		return m
	}
	f.mu.Unlock()

	W := f.cfg.Lookback

	// Scaling bounds come from the training split only: the last training
	// sample's target is diffs[trainCount-1+W].
	scaler := fitScaler(diffs[:trainCount+W])

	net := newLSTMNetwork(f.cfg.HiddenUnits, f.cfg.LearningRate, seedFor(symbol))

	start := time.Now()
	var lastLoss float64
	for epoch := 0; epoch < f.cfg.Epochs; epoch++ {
		lastLoss = 0
		for k := 0; k < trainCount; k++ {
			window := f.scaledWindow(scaler, diffs[k:k+W])
			target := scaler.scale(diffs[k+W])
			lastLoss += net.trainSample(window, target)
		}
	}

	m := &symbolModel{
		net:       net,
		scaler:    scaler,
		barCount:  barCount,
		lastDate:  lastDate,
		trainedAt: time.Now(),
	}

	f.mu.Lock()
	f.models[symbol] = m
	f.mu.Unlock()

	f.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"samples":  trainCount,
		"epochs":   f.cfg.Epochs,
		"loss":     lastLoss / float64(max(trainCount, 1)),
		"duration": time.Since(start),
	}).Info("LSTM model trained")

	return m
}

func (f *Forecaster) scaledWindow(scaler minMaxScaler, window []float64) []float64 {
	out := make([]float64, len(window))
	for i, v := range window {
		out[i] = scaler.scale(v)
	}
	return out
}

// seedFor derives a stable per-symbol seed so repeated runs over unchanged
// history train identical models.
func seedFor(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
