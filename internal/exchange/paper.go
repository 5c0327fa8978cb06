package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/models"
)

// PaperExchange is an in-memory order/trade ledger that simulates fills
// without touching a network. Market orders fill unconditionally and
// instantly at the caller-supplied reference price; order close and
// trade append happen as one atomic unit so every closed order has
// exactly one trade.
type PaperExchange struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	trades  []*models.Trade
	balance decimal.Decimal
	fees    decimal.Decimal
	feeRate decimal.Decimal
	logger  *logrus.Logger
}

// NewPaperExchange creates a paper exchange with the given starting
// quote balance and taker fee rate.
func NewPaperExchange(initialBalance, feeRate float64, logger *logrus.Logger) *PaperExchange {
	if logger == nil {
		logger = logrus.New()
	}
	return &PaperExchange{
		orders:  make(map[string]*models.Order),
		trades:  make([]*models.Trade, 0),
		balance: decimal.NewFromFloat(initialBalance),
		feeRate: decimal.NewFromFloat(feeRate),
		logger:  logger,
	}
}

// CreateOrder fills a market order synchronously at the supplied price.
// Rejects with ErrInvalidOrder on non-positive quantity or price.
func (p *PaperExchange) CreateOrder(ctx context.Context, symbol string, orderType models.OrderType, side models.OrderSide, quantity, price float64) (*models.Order, error) {
	_ = ctx

	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %v", models.ErrInvalidOrder, quantity)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %v", models.ErrInvalidOrder, price)
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:        models.NewOrderID(),
		Symbol:    symbol,
		Type:      orderType,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Status:    models.OrderStatusOpen,
		CreatedAt: now,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Fill and record atomically under the one lock.
	closedAt := now
	order.Status = models.OrderStatusClosed
	order.ClosedAt = &closedAt

	qty := decimal.NewFromFloat(quantity)
	px := decimal.NewFromFloat(price)
	cost := qty.Mul(px)
	fee := cost.Mul(p.feeRate)

	if side == models.OrderSideBuy {
		p.balance = p.balance.Sub(cost)
	} else {
		p.balance = p.balance.Add(cost)
	}
	p.balance = p.balance.Sub(fee)
	p.fees = p.fees.Add(fee)

	trade := &models.Trade{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Cost:      cost.InexactFloat64(),
		Fee:       fee.InexactFloat64(),
		Timestamp: now,
	}

	p.orders[order.ID] = order
	p.trades = append(p.trades, trade)

	metrics.OrdersSimulatedTotal.Inc()
	metrics.TradesRecordedTotal.Inc()

	p.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"price":    price,
	}).Debug("Paper order filled")

	copied := *order
	return &copied, nil
}

// FetchOrder retrieves an order by id
func (p *PaperExchange) FetchOrder(ctx context.Context, orderID, symbol string) (*models.Order, error) {
	_ = ctx

	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok || order.Symbol != symbol {
		return nil, fmt.Errorf("%w: order %s for %s", models.ErrNotFound, orderID, symbol)
	}

	copied := *order
	return &copied, nil
}

// FetchMyTrades returns the most recent trades for the symbol, newest
// first, bounded by limit.
func (p *PaperExchange) FetchMyTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	_ = ctx

	p.mu.Lock()
	defer p.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	matched := make([]*models.Trade, 0, limit)
	for i := len(p.trades) - 1; i >= 0 && len(matched) < limit; i-- {
		if p.trades[i].Symbol != symbol {
			continue
		}
		copied := *p.trades[i]
		matched = append(matched, &copied)
	}

	return matched, nil
}

// Balance returns the current quote balance
func (p *PaperExchange) Balance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance.InexactFloat64()
}

// TotalFees returns the fees accumulated across all fills
func (p *PaperExchange) TotalFees() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fees.InexactFloat64()
}

// TradeCount returns the number of trades in the ledger
func (p *PaperExchange) TradeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.trades)
}
