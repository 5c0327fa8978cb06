// Package exchange defines the order/trade execution contract and the
// deterministic paper implementation used for dry-run trading.
package exchange

import (
	"context"

	"github.com/yourusername/coinpilot/internal/models"
)

// Exchange is the execution contract shared by the paper exchange and
// any live venue client. Bot instances are written against this
// interface so either implementation satisfies them.
type Exchange interface {
	// CreateOrder places an order. Market orders fill synchronously at
	// the supplied reference price.
	CreateOrder(ctx context.Context, symbol string, orderType models.OrderType, side models.OrderSide, quantity, price float64) (*models.Order, error)
	// FetchOrder retrieves an order by id.
	FetchOrder(ctx context.Context, orderID, symbol string) (*models.Order, error)
	// FetchMyTrades returns the most recent trades for the symbol,
	// newest first, bounded by limit.
	FetchMyTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error)
}
