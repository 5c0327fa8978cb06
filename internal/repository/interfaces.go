package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/coinpilot/internal/models"
)

// BotConfigRepository defines the interface for bot configuration data access
type BotConfigRepository interface {
	Create(ctx context.Context, cfg *models.BotConfig) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BotConfig, error)
	GetActive(ctx context.Context) ([]*models.BotConfig, error)
	GetByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.BotConfig, error)
	Update(ctx context.Context, cfg *models.BotConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BotStateRepository defines the interface for bot runtime state access.
// Update applies a partial update: nil fields in BotStateUpdate leave the
// stored value unchanged.
type BotStateRepository interface {
	Get(ctx context.Context, configID uuid.UUID) (*models.BotState, error)
	Init(ctx context.Context, tenantID, configID uuid.UUID) error
	Update(ctx context.Context, tenantID, configID uuid.UUID, update *models.BotStateUpdate) error
}

// TradeRepository defines the interface for trade ledger access
type TradeRepository interface {
	Save(ctx context.Context, trade *models.Trade) error
	GetRecentClosed(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Trade, error)
	GetByConfigID(ctx context.Context, configID uuid.UUID, limit int) ([]*models.Trade, error)
}

// CandleRepository defines the interface for historical candle storage
type CandleRepository interface {
	InsertBatch(ctx context.Context, candles []models.Candle) error
	GetRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Candle, error)
	GetRecent(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
}
