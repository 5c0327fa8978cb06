package exchange

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/coinpilot/internal/models"
)

func TestPaperOrderFillsSynchronously(t *testing.T) {
	ex := NewPaperExchange(10000, 0.001, nil)
	ctx := context.Background()

	order, err := ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 0.1, 50000)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusClosed, order.Status)
	require.NotNil(t, order.ClosedAt)
	assert.Equal(t, 1, ex.TradeCount())

	trades, err := ex.FetchMyTrades(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, order.ID, trades[0].OrderID)
	assert.InDelta(t, 5000.0, trades[0].Cost, 1e-9)
	assert.InDelta(t, 5.0, trades[0].Fee, 1e-9)
}

func TestPaperOrderRejectsInvalidInput(t *testing.T) {
	ex := NewPaperExchange(10000, 0.001, nil)
	ctx := context.Background()

	_, err := ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 0, 50000)
	assert.ErrorIs(t, err, models.ErrInvalidOrder)

	_, err = ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 1, -5)
	assert.ErrorIs(t, err, models.ErrInvalidOrder)

	assert.Equal(t, 0, ex.TradeCount(), "rejected orders must not touch the ledger")
	assert.InDelta(t, 10000.0, ex.Balance(), 1e-9)
}

func TestPaperBalanceAccounting(t *testing.T) {
	ex := NewPaperExchange(10000, 0.001, nil)
	ctx := context.Background()

	_, err := ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 0.1, 50000)
	require.NoError(t, err)
	// 10000 - 5000 - 5 fee
	assert.InDelta(t, 4995.0, ex.Balance(), 1e-9)

	_, err = ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideSell, 0.1, 52000)
	require.NoError(t, err)
	// + 5200 - 5.2 fee
	assert.InDelta(t, 10189.8, ex.Balance(), 1e-9)
	assert.InDelta(t, 10.2, ex.TotalFees(), 1e-9)
}

func TestPaperFetchOrder(t *testing.T) {
	ex := NewPaperExchange(10000, 0.001, nil)
	ctx := context.Background()

	order, err := ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 0.5, 100)
	require.NoError(t, err)

	fetched, err := ex.FetchOrder(ctx, order.ID, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)

	_, err = ex.FetchOrder(ctx, "missing", "BTCUSDT")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = ex.FetchOrder(ctx, order.ID, "ETHUSDT")
	assert.ErrorIs(t, err, models.ErrNotFound, "symbol must match the stored order")
}

func TestPaperFetchMyTradesNewestFirst(t *testing.T) {
	ex := NewPaperExchange(1e9, 0, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 1, float64(i*100))
		require.NoError(t, err)
	}
	_, err := ex.CreateOrder(ctx, "ETHUSDT", models.OrderTypeMarket, models.OrderSideBuy, 1, 42)
	require.NoError(t, err)

	trades, err := ex.FetchMyTrades(ctx, "BTCUSDT", 3)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	assert.Equal(t, 500.0, trades[0].Price)
	assert.Equal(t, 400.0, trades[1].Price)
	assert.Equal(t, 300.0, trades[2].Price)
	for _, trade := range trades {
		assert.Equal(t, "BTCUSDT", trade.Symbol)
	}

	latest, err := ex.FetchMyTrades(ctx, "BTCUSDT", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 500.0, latest[0].Price)
}

func TestPaperFetchMyTradesNegativeLimit(t *testing.T) {
	ex := NewPaperExchange(10000, 0, nil)
	ctx := context.Background()

	_, err := ex.CreateOrder(ctx, "BTCUSDT", models.OrderTypeMarket, models.OrderSideBuy, 1, 100)
	require.NoError(t, err)

	trades, err := ex.FetchMyTrades(ctx, "BTCUSDT", -1)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestPaperConcurrentOrdersKeepLedgerConsistent(t *testing.T) {
	ex := NewPaperExchange(1e9, 0.001, nil)
	ctx := context.Background()

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				symbol := fmt.Sprintf("SYM%d", w%4)
				_, err := ex.CreateOrder(ctx, symbol, models.OrderTypeMarket, models.OrderSideBuy, 1, 100)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	// Every closed order has exactly one trade.
	assert.Equal(t, workers*perWorker, ex.TradeCount())

	trades, err := ex.FetchMyTrades(ctx, "SYM0", workers*perWorker)
	require.NoError(t, err)
	seen := make(map[string]bool, len(trades))
	for _, trade := range trades {
		order, err := ex.FetchOrder(ctx, trade.OrderID, "SYM0")
		require.NoError(t, err)
		assert.True(t, order.IsClosed())
		assert.False(t, seen[trade.OrderID], "one trade per order")
		seen[trade.OrderID] = true
	}
}
