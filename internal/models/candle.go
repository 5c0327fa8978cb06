package models

import (
	"time"
)

// Candle represents a single OHLCV bar for a symbol/timeframe
type Candle struct {
	Symbol    string    `db:"symbol" json:"symbol"`
	Timeframe string    `db:"timeframe" json:"timeframe"`
	OpenTime  time.Time `db:"open_time" json:"open_time"`
	Open      float64   `db:"open" json:"open"`
	High      float64   `db:"high" json:"high"`
	Low       float64   `db:"low" json:"low"`
	Close     float64   `db:"close" json:"close"`
	Volume    float64   `db:"volume" json:"volume"`
}

// Closes extracts the close prices of a candle window, oldest first
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Highs extracts the high prices of a candle window, oldest first
func Highs(candles []Candle) []float64 {
	highs := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
	}
	return highs
}

// Lows extracts the low prices of a candle window, oldest first
func Lows(candles []Candle) []float64 {
	lows := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
	}
	return lows
}

// Volumes extracts the volumes of a candle window, oldest first
func Volumes(candles []Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}

// CloneCandles returns an independent copy of a candle window
func CloneCandles(candles []Candle) []Candle {
	cloned := make([]Candle, len(candles))
	copy(cloned, candles)
	return cloned
}

// TimeframeDuration maps a timeframe identifier to its polling interval
func TimeframeDuration(timeframe string) (time.Duration, error) {
	switch timeframe {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, ErrInvalidTimeframe
	}
}

// ValidTimeframes lists the supported timeframe identifiers
func ValidTimeframes() []string {
	return []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}
}
