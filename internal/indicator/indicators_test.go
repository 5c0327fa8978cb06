package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	sma := SMA(data, 3)

	require.Len(t, sma, 5)
	assert.Zero(t, sma[0])
	assert.Zero(t, sma[1])
	assert.InDelta(t, 2.0, sma[2], 1e-9)
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 4.0, sma[4], 1e-9)
}

func TestSMAShortInput(t *testing.T) {
	sma := SMA([]float64{1, 2}, 5)
	assert.Equal(t, []float64{0, 0}, sma)
}

func TestEMASeededBySMA(t *testing.T) {
	data := []float64{2, 4, 6, 8, 10}
	ema := EMA(data, 3)

	require.Len(t, ema, 5)
	// Seed is the SMA of the first period.
	assert.InDelta(t, 4.0, ema[2], 1e-9)
	// k = 2/(3+1) = 0.5
	assert.InDelta(t, 6.0, ema[3], 1e-9)
	assert.InDelta(t, 8.0, ema[4], 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	// Strictly rising: no losses, RSI pegs at 100.
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rsi := RSI(rising, 5)
	assert.InDelta(t, 100.0, rsi[len(rsi)-1], 1e-9)

	// Strictly falling: no gains, RSI pegs at 0.
	falling := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	rsi = RSI(falling, 5)
	assert.InDelta(t, 0.0, rsi[len(rsi)-1], 1e-9)
}

func TestRSIBalancedMovesNearFifty(t *testing.T) {
	// Equal sized gains and losses settle near the midpoint.
	data := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100}
	rsi := RSI(data, 4)
	assert.InDelta(t, 50.0, rsi[len(rsi)-1], 10.0)
}

func TestBollingerBandsSymmetry(t *testing.T) {
	data := []float64{98, 102, 98, 102, 98, 102, 98, 102, 98, 102}
	bands := Bollinger(data, 4, 2)

	last := len(data) - 1
	mid := bands.Middle[last]
	assert.InDelta(t, 100.0, mid, 1e-9)
	assert.InDelta(t, mid-bands.Lower[last], bands.Upper[last]-mid, 1e-9)
	assert.Greater(t, bands.Upper[last], bands.Lower[last])
}

func TestROC(t *testing.T) {
	data := []float64{100, 100, 100, 110}
	roc := ROC(data, 3)
	assert.InDelta(t, 10.0, roc[3], 1e-9)

	roc = ROC([]float64{100, 90}, 1)
	assert.InDelta(t, -10.0, roc[1], 1e-9)
}

func TestATRWilderSmoothing(t *testing.T) {
	highs := []float64{11, 12, 13, 14, 15, 16}
	lows := []float64{9, 10, 11, 12, 13, 14}
	closes := []float64{10, 11, 12, 13, 14, 15}

	atr := ATR(highs, lows, closes, 3)
	require.Len(t, atr, 6)
	assert.Zero(t, atr[2])
	// True range is constant 2, so the average stays 2.
	assert.InDelta(t, 2.0, atr[3], 1e-9)
	assert.InDelta(t, 2.0, atr[5], 1e-9)
}

func TestLastAndPrev(t *testing.T) {
	assert.Equal(t, 3.0, Last([]float64{1, 2, 3}))
	assert.Equal(t, 2.0, Prev([]float64{1, 2, 3}))
	assert.Zero(t, Last(nil))
	assert.Zero(t, Prev([]float64{1}))
}
