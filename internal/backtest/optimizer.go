package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/models"
	"github.com/yourusername/coinpilot/internal/strategy"
)

// ProgressFunc is invoked after each evaluated combination.
type ProgressFunc func(done, total int)

// Optimizer grid-searches strategy parameters by running one backtest
// per combination of the supplied ranges.
type Optimizer struct {
	config Config
	logger *logrus.Logger
}

// NewOptimizer creates an optimizer that simulates with the given config.
func NewOptimizer(cfg Config, logger *logrus.Logger) *Optimizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Optimizer{config: cfg, logger: logger}
}

// Optimize evaluates the full Cartesian product of paramRanges. Keys are
// expanded in sorted order so the enumeration is stable across runs.
// Invalid combinations are logged and skipped, never fatal. Each
// combination gets a fresh strategy, a fresh engine and a private copy
// of the candles. Results come back sorted by total return descending.
func (o *Optimizer) Optimize(ctx context.Context, symbol, timeframe, strategyName string, paramRanges map[string][]float64, historical []models.Candle, progress ProgressFunc) ([]models.BacktestResult, error) {
	if len(historical) == 0 {
		return nil, fmt.Errorf("%w: no historical candles", models.ErrDataUnavailable)
	}

	keys := make([]string, 0, len(paramRanges))
	for k := range paramRanges {
		if len(paramRanges[k]) == 0 {
			return nil, fmt.Errorf("parameter %q has no values", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := enumerate(keys, paramRanges)
	total := len(combos)

	o.logger.WithFields(logrus.Fields{
		"strategy":     strategyName,
		"symbol":       symbol,
		"timeframe":    timeframe,
		"combinations": total,
	}).Info("Starting parameter optimization")

	results := make([]models.BacktestResult, 0, total)
	for done, params := range combos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := o.evaluate(ctx, symbol, timeframe, strategyName, params, historical)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"params": params,
				"error":  err,
			}).Warn("Skipping invalid combination")
		} else {
			results = append(results, *result)
		}
		metrics.OptimizerCombinationsTotal.Inc()

		if progress != nil {
			progress(done+1, total)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalReturn > results[j].TotalReturn
	})
	return results, nil
}

// evaluate runs one backtest for one parameter combination.
func (o *Optimizer) evaluate(ctx context.Context, symbol, timeframe, strategyName string, params map[string]float64, historical []models.Candle) (*models.BacktestResult, error) {
	strat, err := strategy.NewFromParams(strategyName, params, o.logger)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(o.config, o.logger)
	if err != nil {
		return nil, err
	}

	run, err := engine.Run(ctx, symbol, timeframe, strat, models.CloneCandles(historical))
	if err != nil {
		return nil, err
	}

	return &models.BacktestResult{
		StrategyName: strategyName,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Params:       params,
		TotalReturn:  run.TotalReturn,
		WinRate:      run.WinRate,
		TradeCount:   run.TradeCount,
		FinalBalance: run.FinalBalance,
	}, nil
}

// enumerate expands the Cartesian product of the ranges in key order.
func enumerate(keys []string, ranges map[string][]float64) []map[string]float64 {
	combos := []map[string]float64{{}}
	for _, key := range keys {
		next := make([]map[string]float64, 0, len(combos)*len(ranges[key]))
		for _, combo := range combos {
			for _, value := range ranges[key] {
				expanded := make(map[string]float64, len(combo)+1)
				for k, v := range combo {
					expanded[k] = v
				}
				expanded[key] = value
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}
