package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/coinpilot/internal/database"
	"github.com/yourusername/coinpilot/internal/models"
)

// PostgresBotConfigRepository implements BotConfigRepository for PostgreSQL
type PostgresBotConfigRepository struct {
	db     *database.DB
	policy RetryPolicy
}

// NewPostgresBotConfigRepository creates a new bot config repository
func NewPostgresBotConfigRepository(db *database.DB, policy RetryPolicy) BotConfigRepository {
	return &PostgresBotConfigRepository{db: db, policy: policy}
}

// Create inserts a new bot configuration
func (r *PostgresBotConfigRepository) Create(ctx context.Context, cfg *models.BotConfig) error {
	params, err := json.Marshal(cfg.StrategyParams)
	if err != nil {
		return fmt.Errorf("failed to encode strategy params: %w", err)
	}

	query := `
		INSERT INTO bot_configs (id, tenant_id, symbol, timeframe, strategy_name, strategy_params,
		                         position_size, take_profit_pct, stop_loss_pct, dry_run, exchange,
		                         is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		cfg.ID, cfg.TenantID, cfg.Symbol, cfg.Timeframe, cfg.StrategyName, params,
		cfg.PositionSize, cfg.TakeProfitPct, cfg.StopLossPct, cfg.DryRun, cfg.Exchange, cfg.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create bot config: %w", err)
	}

	return nil
}

const botConfigColumns = `
	SELECT id, tenant_id, symbol, timeframe, strategy_name, strategy_params, position_size,
	       take_profit_pct, stop_loss_pct, dry_run, exchange, is_active, created_at, updated_at
	FROM bot_configs
`

// GetByID retrieves a bot configuration by ID
func (r *PostgresBotConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BotConfig, error) {
	row := r.db.GetPool().QueryRow(ctx, botConfigColumns+` WHERE id = $1`, id)
	cfg, err := scanBotConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot config: %w", err)
	}
	return cfg, nil
}

// GetActive retrieves all active bot configurations
func (r *PostgresBotConfigRepository) GetActive(ctx context.Context) ([]*models.BotConfig, error) {
	rows, err := r.db.GetPool().Query(ctx, botConfigColumns+` WHERE is_active = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active bot configs: %w", err)
	}
	defer rows.Close()
	return collectBotConfigs(rows)
}

// GetByTenant retrieves all bot configurations owned by a tenant
func (r *PostgresBotConfigRepository) GetByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.BotConfig, error) {
	rows, err := r.db.GetPool().Query(ctx, botConfigColumns+` WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant bot configs: %w", err)
	}
	defer rows.Close()
	return collectBotConfigs(rows)
}

// Update replaces a bot configuration. The caller must stop any running
// instance first.
func (r *PostgresBotConfigRepository) Update(ctx context.Context, cfg *models.BotConfig) error {
	params, err := json.Marshal(cfg.StrategyParams)
	if err != nil {
		return fmt.Errorf("failed to encode strategy params: %w", err)
	}

	query := `
		UPDATE bot_configs
		SET symbol = $2, timeframe = $3, strategy_name = $4, strategy_params = $5,
		    position_size = $6, take_profit_pct = $7, stop_loss_pct = $8, dry_run = $9,
		    exchange = $10, is_active = $11, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.GetPool().Exec(ctx, query,
		cfg.ID, cfg.Symbol, cfg.Timeframe, cfg.StrategyName, params, cfg.PositionSize,
		cfg.TakeProfitPct, cfg.StopLossPct, cfg.DryRun, cfg.Exchange, cfg.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update bot config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Delete removes a bot configuration
func (r *PostgresBotConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM bot_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bot config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBotConfig(row rowScanner) (*models.BotConfig, error) {
	cfg := &models.BotConfig{}
	var params []byte
	err := row.Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Symbol, &cfg.Timeframe, &cfg.StrategyName, &params,
		&cfg.PositionSize, &cfg.TakeProfitPct, &cfg.StopLossPct, &cfg.DryRun, &cfg.Exchange,
		&cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &cfg.StrategyParams); err != nil {
			return nil, fmt.Errorf("failed to decode strategy params: %w", err)
		}
	}
	return cfg, nil
}

func collectBotConfigs(rows pgx.Rows) ([]*models.BotConfig, error) {
	var configs []*models.BotConfig
	for rows.Next() {
		cfg, err := scanBotConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
