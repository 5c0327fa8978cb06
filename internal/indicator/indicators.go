// Package indicator provides the technical indicator math used by the
// trading strategies. All functions are pure over oldest-first series.
package indicator

import "math"

// SMA computes the Simple Moving Average series. Positions before the
// first full period are zero.
func SMA(data []float64, period int) []float64 {
	sma := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		return sma
	}

	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma
}

// EMA computes the Exponential Moving Average series, seeded with an SMA
// over the first period.
func EMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		return ema
	}

	k := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(data); i++ {
		ema[i] = (data[i] * k) + (ema[i-1] * (1 - k))
	}
	return ema
}

// RSI computes the Relative Strength Index with Wilder smoothing.
func RSI(closes []float64, period int) []float64 {
	rsi := make([]float64, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return rsi
	}

	gains := make([]float64, 0, len(closes)-1)
	losses := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	sumGain, sumLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		sumGain += gains[i]
		sumLoss += losses[i]
	}
	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)

	if avgLoss == 0 {
		rsi[period] = 100
	} else {
		rs := avgGain / avgLoss
		rsi[period] = 100 - (100 / (1 + rs))
	}

	for i := period + 1; i < len(closes); i++ {
		avgGain = ((avgGain * float64(period-1)) + gains[i-1]) / float64(period)
		avgLoss = ((avgLoss * float64(period-1)) + losses[i-1]) / float64(period)

		if avgLoss == 0 {
			rsi[i] = 100
		} else {
			rs := avgGain / avgLoss
			rsi[i] = 100 - (100 / (1 + rs))
		}
	}
	return rsi
}

// Bands holds Bollinger Band series
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes Bollinger Bands over closes.
func Bollinger(closes []float64, period int, multiplier float64) Bands {
	length := len(closes)
	bands := Bands{
		Upper:  make([]float64, length),
		Middle: make([]float64, length),
		Lower:  make([]float64, length),
	}
	if period <= 0 || length < period {
		return bands
	}

	for i := period - 1; i < length; i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += closes[i-j]
		}
		ma := sum / float64(period)

		sumSqDiff := 0.0
		for j := 0; j < period; j++ {
			diff := closes[i-j] - ma
			sumSqDiff += diff * diff
		}
		sd := math.Sqrt(sumSqDiff / float64(period))

		bands.Middle[i] = ma
		bands.Upper[i] = ma + multiplier*sd
		bands.Lower[i] = ma - multiplier*sd
	}
	return bands
}

// ROC computes the Rate of Change over the given lookback, in percent.
func ROC(closes []float64, period int) []float64 {
	roc := make([]float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return roc
	}
	for i := period; i < len(closes); i++ {
		if closes[i-period] != 0 {
			roc[i] = (closes[i] - closes[i-period]) / closes[i-period] * 100
		}
	}
	return roc
}

// Last returns the final value of a series, or zero for an empty series.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// Prev returns the next-to-last value of a series, or zero when shorter
// than two elements.
func Prev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return series[len(series)-2]
}

// ATR computes the Average True Range series from high, low and close
// slices of equal length, using Wilder smoothing. Positions before the
// first full period are zero.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	atr := make([]float64, n)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return atr
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr[period] = sum / float64(period)

	for i := period + 1; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}
