package strategy

import (
	"fmt"

	"github.com/yourusername/coinpilot/internal/indicator"
	"github.com/yourusername/coinpilot/internal/models"
)

// Momentum trades sustained directional moves: a rate-of-change beyond
// the threshold, confirmed by above-average volume.
type Momentum struct {
	rocPeriod    int
	rocThreshold float64
	volumePeriod int
}

// NewMomentum validates parameters and constructs the variant.
// Recognized params: roc_period, roc_threshold, volume_period.
func NewMomentum(params map[string]float64) (*Momentum, error) {
	s := &Momentum{
		rocPeriod:    int(paramOr(params, "roc_period", 10)),
		rocThreshold: paramOr(params, "roc_threshold", 1.0),
		volumePeriod: int(paramOr(params, "volume_period", 20)),
	}

	if s.rocPeriod < 1 {
		return nil, fmt.Errorf("roc_period must be at least 1, got %d", s.rocPeriod)
	}
	if s.rocThreshold <= 0 {
		return nil, fmt.Errorf("roc_threshold must be positive, got %v", s.rocThreshold)
	}
	if s.volumePeriod < 2 {
		return nil, fmt.Errorf("volume_period must be at least 2, got %d", s.volumePeriod)
	}

	return s, nil
}

// Name returns the registry identifier
func (s *Momentum) Name() string { return "momentum" }

// ComputeIndicators derives rate-of-change, volume confirmation and an
// EMA trend baseline over the rate-of-change period
func (s *Momentum) ComputeIndicators(candles []models.Candle) (map[string]float64, error) {
	need := s.rocPeriod + 1
	if s.volumePeriod > need {
		need = s.volumePeriod
	}
	if err := minWindow(candles, need); err != nil {
		return nil, err
	}

	closes := models.Closes(candles)
	volumes := models.Volumes(candles)
	roc := indicator.ROC(closes, s.rocPeriod)
	ema := indicator.EMA(closes, s.rocPeriod)
	volSMA := indicator.SMA(volumes, s.volumePeriod)

	return map[string]float64{
		"roc":        indicator.Last(roc),
		"ema":        indicator.Last(ema),
		"close":      indicator.Last(closes),
		"volume":     indicator.Last(volumes),
		"volume_sma": indicator.Last(volSMA),
	}, nil
}

// GenerateSignal emits BUY/SELL when momentum exceeds the threshold with
// volume confirmation and price on the trend side of the EMA
func (s *Momentum) GenerateSignal(candles []models.Candle, indicators map[string]float64) (models.Signal, error) {
	if len(candles) == 0 || len(indicators) == 0 {
		return models.SignalHold, nil
	}

	roc := indicators["roc"]
	confirmed := indicators["volume"] > indicators["volume_sma"]

	switch {
	case roc >= s.rocThreshold && confirmed && indicators["close"] >= indicators["ema"]:
		return models.SignalBuy, nil
	case roc <= -s.rocThreshold && confirmed && indicators["close"] <= indicators["ema"]:
		return models.SignalSell, nil
	default:
		return models.SignalHold, nil
	}
}
