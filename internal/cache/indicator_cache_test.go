package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/coinpilot/internal/models"
)

func makeCandles(n int, base float64) []models.Candle {
	candles := make([]models.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := base + float64(i)
		candles[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    100,
		}
	}
	return candles
}

func TestCacheHitOnIdenticalWindow(t *testing.T) {
	ic := New(time.Minute)
	window := makeCandles(20, 100)
	indicators := map[string]float64{"rsi": 42.5}

	ic.Set("BTCUSDT", "1h", "mean_reversion", window, indicators)

	got, ok := ic.Get("BTCUSDT", "1h", "mean_reversion", window)
	require.True(t, ok)
	assert.Equal(t, indicators, got)

	stats := ic.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Saves)
}

func TestCacheMissOnChangedTrailingRow(t *testing.T) {
	ic := New(time.Minute)
	window := makeCandles(20, 100)
	ic.Set("BTCUSDT", "1h", "mean_reversion", window, map[string]float64{"rsi": 42.5})

	changed := models.CloneCandles(window)
	changed[len(changed)-1].Close += 0.001

	_, ok := ic.Get("BTCUSDT", "1h", "mean_reversion", changed)
	assert.False(t, ok, "stale fingerprint must never produce a hit")
	assert.Equal(t, uint64(1), ic.Stats().Misses)
}

func TestCacheFingerprintUsesTrailingRowsOnly(t *testing.T) {
	window := makeCandles(20, 100)
	changed := models.CloneCandles(window)
	// Mutating a row outside the trailing region keeps the digest stable.
	changed[0].Close += 50

	assert.Equal(t, Fingerprint(window), Fingerprint(changed))

	changed[len(changed)-1].Volume += 1
	assert.NotEqual(t, Fingerprint(window), Fingerprint(changed))
}

func TestCacheEmptyWindowNeverHits(t *testing.T) {
	ic := New(time.Minute)
	ic.Set("BTCUSDT", "1h", "mean_reversion", nil, map[string]float64{"rsi": 1})

	_, ok := ic.Get("BTCUSDT", "1h", "mean_reversion", nil)
	assert.False(t, ok, "sentinel fingerprint must always miss")
}

func TestCacheKeyIsolation(t *testing.T) {
	ic := New(time.Minute)
	window := makeCandles(10, 100)
	ic.Set("BTCUSDT", "1h", "mean_reversion", window, map[string]float64{"rsi": 30})

	_, ok := ic.Get("ETHUSDT", "1h", "mean_reversion", window)
	assert.False(t, ok)
	_, ok = ic.Get("BTCUSDT", "4h", "mean_reversion", window)
	assert.False(t, ok)
	_, ok = ic.Get("BTCUSDT", "1h", "momentum", window)
	assert.False(t, ok)
}

func TestCachePartialInvalidation(t *testing.T) {
	ic := New(time.Minute)
	window := makeCandles(10, 100)
	indicators := map[string]float64{"x": 1}

	ic.Set("BTCUSDT", "1h", "mean_reversion", window, indicators)
	ic.Set("BTCUSDT", "4h", "mean_reversion", window, indicators)
	ic.Set("ETHUSDT", "1h", "mean_reversion", window, indicators)
	require.Equal(t, 3, ic.ItemCount())

	// Symbol-only invalidation drops both BTCUSDT entries.
	ic.Invalidate("BTCUSDT", "", "")
	assert.Equal(t, 1, ic.ItemCount())

	_, ok := ic.Get("ETHUSDT", "1h", "mean_reversion", window)
	assert.True(t, ok)
}

func TestCacheInvalidateAllEmptyFieldsFlushes(t *testing.T) {
	ic := New(time.Minute)
	window := makeCandles(10, 100)
	ic.Set("BTCUSDT", "1h", "mean_reversion", window, map[string]float64{"x": 1})
	ic.Set("ETHUSDT", "4h", "momentum", window, map[string]float64{"y": 2})

	ic.Invalidate("", "", "")
	assert.Equal(t, 0, ic.ItemCount())
}

func TestCacheClearResetsStats(t *testing.T) {
	ic := New(time.Minute)
	window := makeCandles(10, 100)
	ic.Set("BTCUSDT", "1h", "mean_reversion", window, map[string]float64{"x": 1})
	ic.Get("BTCUSDT", "1h", "mean_reversion", window)

	ic.Clear()
	assert.Equal(t, Stats{}, ic.Stats())
	assert.Equal(t, 0, ic.ItemCount())
}
