// Package strategy implements the pluggable signal-generation capability
// used by the live trading loop and the backtester.
package strategy

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/coinpilot/internal/models"
)

// Strategy is the capability every concrete variant satisfies. Both the
// live loop and the backtester drive strategies through this interface.
type Strategy interface {
	// Name returns the registry identifier of the strategy
	Name() string
	// ComputeIndicators derives the indicator mapping from an
	// oldest-first candle window.
	ComputeIndicators(candles []models.Candle) (map[string]float64, error)
	// GenerateSignal produces a trading decision from the window and
	// its computed indicators.
	GenerateSignal(candles []models.Candle, indicators map[string]float64) (models.Signal, error)
}

// DefaultStrategyName is the variant used when an unrecognized strategy
// identifier is requested.
const DefaultStrategyName = "mean_reversion"

// NewFromParams maps a strategy identifier to a constructed variant,
// validating parameters before construction. An unknown name falls back
// to the default variant with a logged warning; invalid parameters are
// a hard error so an optimizer can skip the combination.
func NewFromParams(name string, params map[string]float64, logger *logrus.Logger) (Strategy, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if params == nil {
		params = map[string]float64{}
	}

	switch name {
	case "mean_reversion":
		return NewMeanReversion(params)
	case "sma_crossover":
		return NewSMACrossover(params)
	case "momentum":
		return NewMomentum(params)
	case "combined":
		return NewCombined(params)
	default:
		logger.WithFields(logrus.Fields{
			"strategy": name,
			"fallback": DefaultStrategyName,
		}).Warn("Unknown strategy name, falling back to default")
		return NewMeanReversion(params)
	}
}

// paramOr reads a parameter with a default for absent keys
func paramOr(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// minWindow returns an error unless the candle window has at least n rows
func minWindow(candles []models.Candle, n int) error {
	if len(candles) < n {
		return fmt.Errorf("%w: need at least %d candles, got %d", models.ErrDataUnavailable, n, len(candles))
	}
	return nil
}
