package bot

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/config"
	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/repository"
)

// ExpectancyGate blocks new entries for a tenant whose recent closed
// trades show negative edge.
type ExpectancyGate struct {
	config    *config.TradingConfig
	tradeRepo repository.TradeRepository
	logger    *logrus.Logger
}

// NewExpectancyGate creates an expectancy gate backed by trade history.
func NewExpectancyGate(cfg *config.TradingConfig, tradeRepo repository.TradeRepository, logger *logrus.Logger) *ExpectancyGate {
	return &ExpectancyGate{
		config:    cfg,
		tradeRepo: tradeRepo,
		logger:    logger,
	}
}

// Expectancy computes per-trade expectancy over the tenant's most recent
// closed trades:
//
//	expectancy = winRate * avgWin - lossRate * |avgLoss|
//
// The second return value is the sample size actually used.
func (g *ExpectancyGate) Expectancy(ctx context.Context, tenantID uuid.UUID) (float64, int, error) {
	trades, err := g.tradeRepo.GetRecentClosed(ctx, tenantID, g.config.ExpectancyWindow)
	if err != nil {
		return 0, 0, fmt.Errorf("load trade history: %w", err)
	}

	n := len(trades)
	if n == 0 {
		return 0, 0, nil
	}

	var winSum, lossSum float64
	var wins, losses int
	for _, t := range trades {
		if t.IsWin() {
			wins++
			winSum += t.PnL
		} else {
			losses++
			lossSum += t.PnL
		}
	}

	winRate := float64(wins) / float64(n)
	lossRate := float64(losses) / float64(n)

	var avgWin, avgLoss float64
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}

	expectancy := winRate*avgWin - lossRate*math.Abs(avgLoss)
	return expectancy, n, nil
}

// CheckEdge reports whether the tenant is allowed to open a new position.
// Tenants without enough closed trades always pass, so a fresh account is
// never locked out of the market.
func (g *ExpectancyGate) CheckEdge(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	expectancy, sample, err := g.Expectancy(ctx, tenantID)
	if err != nil {
		return false, err
	}

	if sample < g.config.MinSampleSize {
		g.logger.WithFields(logrus.Fields{
			"tenant_id":   tenantID,
			"sample_size": sample,
			"min_sample":  g.config.MinSampleSize,
		}).Debug("Insufficient trade history, allowing entry")
		return true, nil
	}

	if expectancy < g.config.MinExpectancy {
		metrics.EdgeRejectionsTotal.Inc()
		g.logger.WithFields(logrus.Fields{
			"tenant_id":      tenantID,
			"expectancy":     expectancy,
			"min_expectancy": g.config.MinExpectancy,
			"sample_size":    sample,
		}).Info("Entry blocked by expectancy gate")
		return false, nil
	}

	return true, nil
}
