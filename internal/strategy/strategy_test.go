package strategy

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/coinpilot/internal/models"
)

func candlesFrom(closes, volumes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		vol := 100.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Open:      closes[i],
			High:      closes[i] + 1,
			Low:       closes[i] - 1,
			Close:     closes[i],
			Volume:    vol,
		}
	}
	return candles
}

func TestFactoryKnownNames(t *testing.T) {
	logger := logrus.New()
	for _, name := range []string{"mean_reversion", "sma_crossover", "momentum", "combined"} {
		strat, err := NewFromParams(name, nil, logger)
		require.NoError(t, err, name)
		assert.Equal(t, name, strat.Name())
	}
}

func TestFactoryUnknownNameFallsBack(t *testing.T) {
	strat, err := NewFromParams("quantum_leap", nil, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultStrategyName, strat.Name())
}

func TestFactoryRejectsInvalidParams(t *testing.T) {
	_, err := NewFromParams("sma_crossover", map[string]float64{"short_window": 30, "long_window": 10}, logrus.New())
	assert.Error(t, err)

	_, err = NewFromParams("mean_reversion", map[string]float64{"rsi_oversold": 80, "rsi_overbought": 20}, logrus.New())
	assert.Error(t, err)

	_, err = NewFromParams("momentum", map[string]float64{"roc_threshold": -1}, logrus.New())
	assert.Error(t, err)
}

func TestMeanReversionBuysCrash(t *testing.T) {
	strat, err := NewMeanReversion(nil)
	require.NoError(t, err)

	// Mostly flat with tiny oscillation, then a sharp sell-off: RSI is
	// deeply oversold and the close breaks the lower band.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 100.1
		}
	}
	closes[len(closes)-1] = 80
	candles := candlesFrom(closes, nil)

	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)

	signal, err := strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, signal)
}

func TestMeanReversionHoldsOnFlatMarket(t *testing.T) {
	strat, err := NewMeanReversion(nil)
	require.NoError(t, err)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 100.2
		}
	}
	candles := candlesFrom(closes, nil)

	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)

	signal, err := strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalHold, signal)
}

func TestMeanReversionInsufficientWindow(t *testing.T) {
	strat, err := NewMeanReversion(nil)
	require.NoError(t, err)

	_, err = strat.ComputeIndicators(candlesFrom([]float64{1, 2, 3}, nil))
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestSMACrossoverDetectsGoldenCross(t *testing.T) {
	strat, err := NewSMACrossover(map[string]float64{"short_window": 2, "long_window": 5})
	require.NoError(t, err)

	// Decline into a sharp reversal: the short average crosses above
	// the long one on the last candle.
	closes := []float64{110, 108, 106, 104, 102, 100, 98, 96, 94, 115}
	candles := candlesFrom(closes, nil)

	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)

	signal, err := strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, signal)
}

func TestSMACrossoverDetectsDeathCross(t *testing.T) {
	strat, err := NewSMACrossover(map[string]float64{"short_window": 2, "long_window": 5})
	require.NoError(t, err)

	closes := []float64{90, 92, 94, 96, 98, 100, 102, 104, 106, 85}
	candles := candlesFrom(closes, nil)

	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)

	signal, err := strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalSell, signal)
}

func TestMomentumRequiresVolumeConfirmation(t *testing.T) {
	strat, err := NewMomentum(map[string]float64{"roc_period": 3, "roc_threshold": 2, "volume_period": 5})
	require.NoError(t, err)

	closes := []float64{100, 100, 100, 100, 100, 102, 104, 108}

	// Strong move on high volume trades.
	highVol := []float64{100, 100, 100, 100, 100, 100, 100, 500}
	candles := candlesFrom(closes, highVol)
	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)
	signal, err := strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, signal)

	// The same move on fading volume holds.
	lowVol := []float64{500, 500, 500, 500, 500, 500, 500, 100}
	candles = candlesFrom(closes, lowVol)
	indicators, err = strat.ComputeIndicators(candles)
	require.NoError(t, err)
	signal, err = strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalHold, signal)
}

func TestCombinedRequiresMajority(t *testing.T) {
	strat, err := NewCombined(map[string]float64{
		"short_window": 2,
		"long_window":  5,
		"roc_period":   3,
	})
	require.NoError(t, err)

	// Flat market: every sub-strategy holds.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 100.2
		}
	}
	candles := candlesFrom(closes, nil)

	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)

	signal, err := strat.GenerateSignal(candles, indicators)
	require.NoError(t, err)
	assert.Equal(t, models.SignalHold, signal)
}

func TestCombinedMergesPrefixedIndicators(t *testing.T) {
	strat, err := NewCombined(map[string]float64{
		"short_window": 2,
		"long_window":  5,
	})
	require.NoError(t, err)

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}
	indicators, err := strat.ComputeIndicators(candlesFrom(closes, nil))
	require.NoError(t, err)

	assert.Contains(t, indicators, "mean_reversion.rsi")
	assert.Contains(t, indicators, "sma_crossover.sma_short")
	assert.Contains(t, indicators, "momentum.roc")
}

func TestMeanReversionPublishesVolatility(t *testing.T) {
	strat, err := NewMeanReversion(map[string]float64{"rsi_period": 5, "bb_period": 5})
	require.NoError(t, err)

	closes := []float64{100, 101, 100, 101, 100, 101, 100, 101}
	indicators, err := strat.ComputeIndicators(candlesFrom(closes, nil))
	require.NoError(t, err)

	require.Contains(t, indicators, "atr")
	assert.Greater(t, indicators["atr"], 0.0)
}

func TestMomentumTrendFilter(t *testing.T) {
	strat, err := NewMomentum(map[string]float64{"roc_period": 3, "roc_threshold": 2, "volume_period": 5})
	require.NoError(t, err)

	candles := candlesFrom([]float64{100, 100, 100, 100, 100, 102, 104, 108}, nil)
	indicators, err := strat.ComputeIndicators(candles)
	require.NoError(t, err)
	require.Contains(t, indicators, "ema")
	assert.Greater(t, indicators["ema"], 0.0)

	// Strong momentum with volume but price below trend holds.
	counterTrend := map[string]float64{"roc": 5, "volume": 500, "volume_sma": 100, "close": 100, "ema": 105}
	signal, err := strat.GenerateSignal(candles, counterTrend)
	require.NoError(t, err)
	assert.Equal(t, models.SignalHold, signal)

	// The same momentum with price above trend buys.
	withTrend := map[string]float64{"roc": 5, "volume": 500, "volume_sma": 100, "close": 108, "ema": 105}
	signal, err = strat.GenerateSignal(candles, withTrend)
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuy, signal)
}
