package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/coinpilot/internal/database"
	"github.com/yourusername/coinpilot/internal/models"
)

// PostgresTradeRepository implements TradeRepository for PostgreSQL
type PostgresTradeRepository struct {
	db     *database.DB
	policy RetryPolicy
}

// NewPostgresTradeRepository creates a new trade repository
func NewPostgresTradeRepository(db *database.DB, policy RetryPolicy) TradeRepository {
	return &PostgresTradeRepository{db: db, policy: policy}
}

// Save appends a trade to the ledger
func (r *PostgresTradeRepository) Save(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT INTO trades (id, order_id, tenant_id, config_id, symbol, side, quantity, price,
		                    cost, fee, pnl, is_closed, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	err := withRetry(ctx, r.policy, func() error {
		_, execErr := r.db.GetPool().Exec(ctx, query,
			trade.ID, trade.OrderID, trade.TenantID, trade.ConfigID, trade.Symbol, trade.Side,
			trade.Quantity, trade.Price, trade.Cost, trade.Fee, trade.PnL, trade.IsClosed, trade.Timestamp,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("%w: save trade: %v", models.ErrPersistenceFailure, err)
	}

	return nil
}

const tradeColumns = `
	SELECT id, order_id, tenant_id, config_id, symbol, side, quantity, price, cost, fee,
	       pnl, is_closed, timestamp
	FROM trades
`

// GetRecentClosed retrieves a tenant's most recent closed trades, newest first
func (r *PostgresTradeRepository) GetRecentClosed(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Trade, error) {
	query := tradeColumns + ` WHERE tenant_id = $1 AND is_closed = true ORDER BY timestamp DESC LIMIT $2`

	rows, err := r.db.GetPool().Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetByConfigID retrieves the most recent trades for a configuration, newest first
func (r *PostgresTradeRepository) GetByConfigID(ctx context.Context, configID uuid.UUID, limit int) ([]*models.Trade, error) {
	query := tradeColumns + ` WHERE config_id = $1 ORDER BY timestamp DESC LIMIT $2`

	rows, err := r.db.GetPool().Query(ctx, query, configID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by config: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]*models.Trade, error) {
	var trades []*models.Trade
	for rows.Next() {
		trade := &models.Trade{}
		err := rows.Scan(
			&trade.ID, &trade.OrderID, &trade.TenantID, &trade.ConfigID, &trade.Symbol, &trade.Side,
			&trade.Quantity, &trade.Price, &trade.Cost, &trade.Fee, &trade.PnL, &trade.IsClosed, &trade.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}
