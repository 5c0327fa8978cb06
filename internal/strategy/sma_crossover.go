package strategy

import (
	"fmt"

	"github.com/yourusername/coinpilot/internal/indicator"
	"github.com/yourusername/coinpilot/internal/models"
)

// SMACrossover trades golden/death crosses of a short and long simple
// moving average.
type SMACrossover struct {
	shortWindow int
	longWindow  int
}

// NewSMACrossover validates parameters and constructs the variant.
// Recognized params: short_window, long_window.
func NewSMACrossover(params map[string]float64) (*SMACrossover, error) {
	s := &SMACrossover{
		shortWindow: int(paramOr(params, "short_window", 10)),
		longWindow:  int(paramOr(params, "long_window", 30)),
	}

	if s.shortWindow < 2 {
		return nil, fmt.Errorf("short_window must be at least 2, got %d", s.shortWindow)
	}
	if s.shortWindow >= s.longWindow {
		return nil, fmt.Errorf("short_window (%d) must be below long_window (%d)", s.shortWindow, s.longWindow)
	}

	return s, nil
}

// Name returns the registry identifier
func (s *SMACrossover) Name() string { return "sma_crossover" }

// ComputeIndicators derives current and previous SMA values so the
// signal can detect the crossover itself, not just relative position.
func (s *SMACrossover) ComputeIndicators(candles []models.Candle) (map[string]float64, error) {
	if err := minWindow(candles, s.longWindow+1); err != nil {
		return nil, err
	}

	closes := models.Closes(candles)
	short := indicator.SMA(closes, s.shortWindow)
	long := indicator.SMA(closes, s.longWindow)

	return map[string]float64{
		"sma_short":      indicator.Last(short),
		"sma_long":       indicator.Last(long),
		"sma_short_prev": indicator.Prev(short),
		"sma_long_prev":  indicator.Prev(long),
	}, nil
}

// GenerateSignal emits BUY on a golden cross and SELL on a death cross
func (s *SMACrossover) GenerateSignal(candles []models.Candle, indicators map[string]float64) (models.Signal, error) {
	if len(candles) == 0 || len(indicators) == 0 {
		return models.SignalHold, nil
	}

	short := indicators["sma_short"]
	long := indicators["sma_long"]
	shortPrev := indicators["sma_short_prev"]
	longPrev := indicators["sma_long_prev"]

	if short == 0 || long == 0 || shortPrev == 0 || longPrev == 0 {
		return models.SignalHold, nil
	}

	switch {
	case shortPrev <= longPrev && short > long:
		return models.SignalBuy, nil
	case shortPrev >= longPrev && short < long:
		return models.SignalSell, nil
	default:
		return models.SignalHold, nil
	}
}
