package models

import (
	"time"

	"github.com/google/uuid"
)

// BotConfig represents a tenant's saved strategy/symbol/risk parameter set.
// It is immutable while a bot instance is running; updates require stopping
// the instance first.
type BotConfig struct {
	ID             uuid.UUID          `db:"id" json:"id" validate:"required"`
	TenantID       uuid.UUID          `db:"tenant_id" json:"tenant_id" validate:"required"`
	Symbol         string             `db:"symbol" json:"symbol" validate:"required"`
	Timeframe      string             `db:"timeframe" json:"timeframe" validate:"required"`
	StrategyName   string             `db:"strategy_name" json:"strategy_name" validate:"required"`
	StrategyParams map[string]float64 `db:"strategy_params" json:"strategy_params"`
	PositionSize   float64            `db:"position_size" json:"position_size" validate:"required,gt=0"` // quote currency
	TakeProfitPct  float64            `db:"take_profit_pct" json:"take_profit_pct" validate:"gte=0"`
	StopLossPct    float64            `db:"stop_loss_pct" json:"stop_loss_pct" validate:"gte=0"`
	DryRun         bool               `db:"dry_run" json:"dry_run"`
	Exchange       string             `db:"exchange" json:"exchange"`
	IsActive       bool               `db:"is_active" json:"is_active"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// PollInterval derives the trading loop interval from the configured timeframe
func (c *BotConfig) PollInterval() (time.Duration, error) {
	return TimeframeDuration(c.Timeframe)
}
