package bot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/coinpilot/internal/config"
	"github.com/yourusername/coinpilot/internal/models"
)

func gateConfig() *config.TradingConfig {
	return &config.TradingConfig{
		MinExpectancy:    0.0,
		ExpectancyWindow: 10,
		MinSampleSize:    10,
		MaxActiveTrades:  1,
	}
}

func closedTrades(pnls ...float64) []*models.Trade {
	trades := make([]*models.Trade, len(pnls))
	for i, pnl := range pnls {
		trades[i] = &models.Trade{
			ID:       uuid.New().String(),
			PnL:      pnl,
			IsClosed: true,
		}
	}
	return trades
}

func TestExpectancyComputation(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockTradeRepository)
	// 6 wins of +10, 4 losses of -5:
	// 0.6*10 - 0.4*5 = 4.0
	repo.On("GetRecentClosed", mock.Anything, tenantID, 10).
		Return(closedTrades(10, 10, 10, 10, 10, 10, -5, -5, -5, -5), nil)

	gate := NewExpectancyGate(gateConfig(), repo, logrus.New())

	expectancy, sample, err := gate.Expectancy(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 10, sample)
	assert.InDelta(t, 4.0, expectancy, 1e-9)
}

func TestCheckEdgeAllowsPositiveExpectancy(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockTradeRepository)
	repo.On("GetRecentClosed", mock.Anything, tenantID, 10).
		Return(closedTrades(10, 10, 10, 10, 10, 10, -5, -5, -5, -5), nil)

	cfg := gateConfig()
	cfg.MinExpectancy = 4.0
	gate := NewExpectancyGate(cfg, repo, logrus.New())

	allowed, err := gate.CheckEdge(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, allowed, "expectancy equal to the minimum passes")
}

func TestCheckEdgeBlocksNegativeExpectancy(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockTradeRepository)
	// All losers, well below any minimum.
	repo.On("GetRecentClosed", mock.Anything, tenantID, 10).
		Return(closedTrades(-5, -5, -5, -5, -5, -5, -5, -5, -5, -5), nil)

	gate := NewExpectancyGate(gateConfig(), repo, logrus.New())

	allowed, err := gate.CheckEdge(context.Background(), tenantID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckEdgeDefaultAllowsSmallSample(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockTradeRepository)
	// Terrible record but below the minimum sample size.
	repo.On("GetRecentClosed", mock.Anything, tenantID, 10).
		Return(closedTrades(-50, -50, -50), nil)

	gate := NewExpectancyGate(gateConfig(), repo, logrus.New())

	allowed, err := gate.CheckEdge(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, allowed, "fresh tenants are never locked out")
}

func TestCheckEdgePropagatesStoreErrors(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockTradeRepository)
	repo.On("GetRecentClosed", mock.Anything, tenantID, 10).
		Return(nil, models.ErrPersistenceFailure)

	gate := NewExpectancyGate(gateConfig(), repo, logrus.New())

	_, err := gate.CheckEdge(context.Background(), tenantID)
	assert.ErrorIs(t, err, models.ErrPersistenceFailure)
}
