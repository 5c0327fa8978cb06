package models

import (
	"time"

	"github.com/google/uuid"
)

// Trade represents an executed fill. Every closed market order has
// exactly one trade whose OrderID references the order that produced it.
type Trade struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	ConfigID  uuid.UUID `db:"config_id" json:"config_id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Side      OrderSide `db:"side" json:"side"`
	Quantity  float64   `db:"quantity" json:"quantity"`
	Price     float64   `db:"price" json:"price"`
	Cost      float64   `db:"cost" json:"cost"`
	Fee       float64   `db:"fee" json:"fee"`
	PnL       float64   `db:"pnl" json:"pnl"`
	IsClosed  bool      `db:"is_closed" json:"is_closed"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// IsWin reports whether a closed trade was profitable
func (t *Trade) IsWin() bool {
	return t.PnL > 0
}
