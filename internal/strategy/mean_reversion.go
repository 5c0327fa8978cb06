package strategy

import (
	"fmt"

	"github.com/yourusername/coinpilot/internal/indicator"
	"github.com/yourusername/coinpilot/internal/models"
)

// MeanReversion trades oversold/overbought extremes: buy when RSI is
// oversold and price sits below the lower Bollinger band, sell on the
// mirrored condition.
type MeanReversion struct {
	rsiPeriod     int
	rsiOversold   float64
	rsiOverbought float64
	bbPeriod      int
	bbMultiplier  float64
}

// NewMeanReversion validates parameters and constructs the variant.
// Recognized params: rsi_period, rsi_oversold, rsi_overbought,
// bb_period, bb_multiplier.
func NewMeanReversion(params map[string]float64) (*MeanReversion, error) {
	s := &MeanReversion{
		rsiPeriod:     int(paramOr(params, "rsi_period", 14)),
		rsiOversold:   paramOr(params, "rsi_oversold", 30),
		rsiOverbought: paramOr(params, "rsi_overbought", 70),
		bbPeriod:      int(paramOr(params, "bb_period", 20)),
		bbMultiplier:  paramOr(params, "bb_multiplier", 2.0),
	}

	if s.rsiPeriod < 2 {
		return nil, fmt.Errorf("rsi_period must be at least 2, got %d", s.rsiPeriod)
	}
	if s.bbPeriod < 2 {
		return nil, fmt.Errorf("bb_period must be at least 2, got %d", s.bbPeriod)
	}
	if s.bbMultiplier <= 0 {
		return nil, fmt.Errorf("bb_multiplier must be positive, got %v", s.bbMultiplier)
	}
	if s.rsiOversold >= s.rsiOverbought {
		return nil, fmt.Errorf("rsi_oversold (%v) must be below rsi_overbought (%v)", s.rsiOversold, s.rsiOverbought)
	}

	return s, nil
}

// Name returns the registry identifier
func (s *MeanReversion) Name() string { return "mean_reversion" }

// ComputeIndicators derives RSI, Bollinger Band and ATR values for the
// window. ATR shares the RSI period and is published as a volatility
// reading alongside the entry indicators.
func (s *MeanReversion) ComputeIndicators(candles []models.Candle) (map[string]float64, error) {
	need := s.rsiPeriod + 1
	if s.bbPeriod > need {
		need = s.bbPeriod
	}
	if err := minWindow(candles, need); err != nil {
		return nil, err
	}

	closes := models.Closes(candles)
	rsi := indicator.RSI(closes, s.rsiPeriod)
	bands := indicator.Bollinger(closes, s.bbPeriod, s.bbMultiplier)
	atr := indicator.ATR(models.Highs(candles), models.Lows(candles), closes, s.rsiPeriod)

	return map[string]float64{
		"rsi":       indicator.Last(rsi),
		"bb_upper":  indicator.Last(bands.Upper),
		"bb_middle": indicator.Last(bands.Middle),
		"bb_lower":  indicator.Last(bands.Lower),
		"atr":       indicator.Last(atr),
		"close":     indicator.Last(closes),
	}, nil
}

// GenerateSignal evaluates the oversold/overbought conditions
func (s *MeanReversion) GenerateSignal(candles []models.Candle, indicators map[string]float64) (models.Signal, error) {
	if len(candles) == 0 || len(indicators) == 0 {
		return models.SignalHold, nil
	}

	rsi := indicators["rsi"]
	close := indicators["close"]

	switch {
	case rsi > 0 && rsi <= s.rsiOversold && close <= indicators["bb_lower"]:
		return models.SignalBuy, nil
	case rsi >= s.rsiOverbought && close >= indicators["bb_upper"]:
		return models.SignalSell, nil
	default:
		return models.SignalHold, nil
	}
}
