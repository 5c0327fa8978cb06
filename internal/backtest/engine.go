package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/exchange"
	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/models"
	"github.com/yourusername/coinpilot/internal/strategy"
)

// Config holds the simulation parameters shared by every run.
type Config struct {
	InitialBalance float64
	FeeRate        float64
	PositionSize   float64 // quote currency per entry
	TakeProfitPct  float64
	StopLossPct    float64
	WindowLimit    int // max candles fed to the strategy per step
}

// DefaultConfig returns the simulation defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		InitialBalance: 10000,
		FeeRate:        0.001,
		PositionSize:   1000,
		TakeProfitPct:  0,
		StopLossPct:    0,
		WindowLimit:    100,
	}
}

// Result is the outcome of a single backtest run.
type Result struct {
	StrategyName   string
	Symbol         string
	Timeframe      string
	InitialBalance float64
	FinalBalance   float64
	TotalReturn    float64 // percent
	WinRate        float64
	TradeCount     int
	Trades         []*models.Trade
}

// openPosition tracks the simulated position between replay steps.
type openPosition struct {
	entryPrice float64
	quantity   float64
	entryFee   float64
}

// Engine replays historical candles through a strategy using the same
// fill semantics as the live loop. Runs are deterministic: identical
// inputs produce identical trade ledgers.
type Engine struct {
	config Config
	logger *logrus.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(cfg Config, logger *logrus.Logger) (*Engine, error) {
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	if cfg.PositionSize <= 0 {
		return nil, fmt.Errorf("position size must be positive")
	}
	if cfg.WindowLimit < 2 {
		return nil, fmt.Errorf("window limit must be at least 2")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{config: cfg, logger: logger}, nil
}

// Run replays the candles oldest first. At each step the strategy sees
// the growing prefix, capped at the configured window limit, exactly as
// the live loop would. Orders execute through a fresh paper exchange.
func (e *Engine) Run(ctx context.Context, symbol, timeframe string, strat strategy.Strategy, candles []models.Candle) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no candles to replay", models.ErrDataUnavailable)
	}

	started := time.Now()
	defer func() {
		metrics.RecordBacktestDuration(time.Since(started).Seconds())
	}()

	exch := exchange.NewPaperExchange(e.config.InitialBalance, e.config.FeeRate, e.logger)

	var pos *openPosition
	var trades []*models.Trade
	var wins, closed int

	for i := 1; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lo := 0
		if i+1 > e.config.WindowLimit {
			lo = i + 1 - e.config.WindowLimit
		}
		window := candles[lo : i+1]

		indicators, err := strat.ComputeIndicators(window)
		if err != nil {
			// Not enough history yet, keep warming up.
			if errors.Is(err, models.ErrDataUnavailable) {
				continue
			}
			return nil, fmt.Errorf("compute indicators at step %d: %w", i, err)
		}
		signal, err := strat.GenerateSignal(window, indicators)
		if err != nil {
			return nil, fmt.Errorf("generate signal at step %d: %w", i, err)
		}

		price := candles[i].Close

		if pos != nil {
			exit, reason := shouldExit(pos, signal, price, e.config)
			if exit {
				trade, err := e.closePosition(ctx, exch, symbol, pos, price, candles[i].OpenTime)
				if err != nil {
					return nil, err
				}
				trades = append(trades, trade)
				closed++
				if trade.IsWin() {
					wins++
				}
				e.logger.WithFields(logrus.Fields{
					"step":   i,
					"reason": reason,
					"pnl":    trade.PnL,
				}).Debug("Backtest position closed")
				pos = nil
			}
			continue
		}

		if signal.IsEntry() && exch.Balance() >= e.config.PositionSize {
			quantity := e.config.PositionSize / price
			order, err := exch.CreateOrder(ctx, symbol, models.OrderTypeMarket, models.OrderSideBuy, quantity, price)
			if err != nil {
				return nil, fmt.Errorf("open position at step %d: %w", i, err)
			}
			cost := quantity * price
			pos = &openPosition{
				entryPrice: price,
				quantity:   quantity,
				entryFee:   cost * e.config.FeeRate,
			}
			trades = append(trades, &models.Trade{
				ID:        order.ID,
				OrderID:   order.ID,
				Symbol:    symbol,
				Side:      models.OrderSideBuy,
				Quantity:  quantity,
				Price:     price,
				Cost:      cost,
				Fee:       pos.entryFee,
				Timestamp: candles[i].OpenTime,
			})
		}
	}

	// Liquidate a still-open position at the final close so the ending
	// balance reflects the full mark-to-market value.
	if pos != nil {
		last := candles[len(candles)-1]
		trade, err := e.closePosition(ctx, exch, symbol, pos, last.Close, last.OpenTime)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
		closed++
		if trade.IsWin() {
			wins++
		}
	}

	finalBalance := exch.Balance()
	result := &Result{
		StrategyName:   strat.Name(),
		Symbol:         symbol,
		Timeframe:      timeframe,
		InitialBalance: e.config.InitialBalance,
		FinalBalance:   finalBalance,
		TotalReturn:    (finalBalance - e.config.InitialBalance) / e.config.InitialBalance * 100,
		TradeCount:     closed,
		Trades:         trades,
	}
	if closed > 0 {
		result.WinRate = float64(wins) / float64(closed)
	}

	e.logger.WithFields(logrus.Fields{
		"symbol":        symbol,
		"timeframe":     timeframe,
		"strategy":      strat.Name(),
		"trades":        closed,
		"final_balance": finalBalance,
		"return_pct":    result.TotalReturn,
	}).Info("Backtest complete")

	return result, nil
}

func (e *Engine) closePosition(ctx context.Context, exch *exchange.PaperExchange, symbol string, pos *openPosition, price float64, ts time.Time) (*models.Trade, error) {
	order, err := exch.CreateOrder(ctx, symbol, models.OrderTypeMarket, models.OrderSideSell, pos.quantity, price)
	if err != nil {
		return nil, fmt.Errorf("close position: %w", err)
	}

	cost := pos.quantity * price
	fee := cost * e.config.FeeRate
	return &models.Trade{
		ID:        order.ID,
		OrderID:   order.ID,
		Symbol:    symbol,
		Side:      models.OrderSideSell,
		Quantity:  pos.quantity,
		Price:     price,
		Cost:      cost,
		Fee:       fee,
		PnL:       (price-pos.entryPrice)*pos.quantity - fee - pos.entryFee,
		IsClosed:  true,
		Timestamp: ts,
	}, nil
}

// shouldExit applies exit rules in priority order: strategy signal,
// then take profit, then stop loss.
func shouldExit(pos *openPosition, signal models.Signal, price float64, cfg Config) (bool, string) {
	changePct := (price - pos.entryPrice) / pos.entryPrice * 100
	switch {
	case signal.IsExit():
		return true, "signal"
	case cfg.TakeProfitPct > 0 && changePct >= cfg.TakeProfitPct:
		return true, "take_profit"
	case cfg.StopLossPct > 0 && changePct <= -cfg.StopLossPct:
		return true, "stop_loss"
	}
	return false, ""
}
