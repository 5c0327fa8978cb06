package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderSide represents the side of an order (BUY or SELL)
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the order type
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus represents the lifecycle status of an order. Transitions
// are monotonic: open orders close and never reopen.
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusClosed OrderStatus = "closed"
)

// Order represents an exchange order, simulated or live
type Order struct {
	ID        string      `db:"id" json:"id"`
	Symbol    string      `db:"symbol" json:"symbol"`
	Type      OrderType   `db:"type" json:"type"`
	Side      OrderSide   `db:"side" json:"side"`
	Quantity  float64     `db:"quantity" json:"quantity"`
	Price     float64     `db:"price" json:"price"`
	Status    OrderStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	ClosedAt  *time.Time  `db:"closed_at" json:"closed_at"`
}

// IsClosed reports whether the order has been filled
func (o *Order) IsClosed() bool {
	return o.Status == OrderStatusClosed
}

// NewOrderID generates a unique order identifier
func NewOrderID() string {
	return uuid.New().String()
}
