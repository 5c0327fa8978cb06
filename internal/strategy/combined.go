package strategy

import (
	"fmt"

	"github.com/yourusername/coinpilot/internal/models"
)

// Combined takes a majority vote across the mean-reversion, SMA-crossover
// and momentum variants. At least two sub-strategies must agree on a
// non-HOLD decision for it to trade.
type Combined struct {
	subs []Strategy
}

// NewCombined constructs all three sub-variants from the shared
// parameter map. A parameter rejected by any sub-variant fails the
// whole construction.
func NewCombined(params map[string]float64) (*Combined, error) {
	mr, err := NewMeanReversion(params)
	if err != nil {
		return nil, fmt.Errorf("combined: %w", err)
	}
	sma, err := NewSMACrossover(params)
	if err != nil {
		return nil, fmt.Errorf("combined: %w", err)
	}
	mom, err := NewMomentum(params)
	if err != nil {
		return nil, fmt.Errorf("combined: %w", err)
	}

	return &Combined{subs: []Strategy{mr, sma, mom}}, nil
}

// Name returns the registry identifier
func (s *Combined) Name() string { return "combined" }

// ComputeIndicators merges each sub-strategy's indicators under a
// name-prefixed key.
func (s *Combined) ComputeIndicators(candles []models.Candle) (map[string]float64, error) {
	merged := make(map[string]float64)
	for _, sub := range s.subs {
		indicators, err := sub.ComputeIndicators(candles)
		if err != nil {
			return nil, err
		}
		for k, v := range indicators {
			merged[sub.Name()+"."+k] = v
		}
	}
	return merged, nil
}

// GenerateSignal returns the majority decision across sub-strategies
func (s *Combined) GenerateSignal(candles []models.Candle, indicators map[string]float64) (models.Signal, error) {
	votes := map[models.Signal]int{}

	for _, sub := range s.subs {
		scoped := make(map[string]float64)
		prefix := sub.Name() + "."
		for k, v := range indicators {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				scoped[k[len(prefix):]] = v
			}
		}

		signal, err := sub.GenerateSignal(candles, scoped)
		if err != nil {
			return models.SignalHold, err
		}
		votes[signal]++
	}

	switch {
	case votes[models.SignalBuy] >= 2:
		return models.SignalBuy, nil
	case votes[models.SignalSell] >= 2:
		return models.SignalSell, nil
	default:
		return models.SignalHold, nil
	}
}
