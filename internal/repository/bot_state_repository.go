package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/coinpilot/internal/database"
	"github.com/yourusername/coinpilot/internal/models"
)

// PostgresBotStateRepository implements BotStateRepository for PostgreSQL
type PostgresBotStateRepository struct {
	db     *database.DB
	policy RetryPolicy
}

// NewPostgresBotStateRepository creates a new bot state repository
func NewPostgresBotStateRepository(db *database.DB, policy RetryPolicy) BotStateRepository {
	return &PostgresBotStateRepository{db: db, policy: policy}
}

// Get retrieves the runtime state for one configuration
func (r *PostgresBotStateRepository) Get(ctx context.Context, configID uuid.UUID) (*models.BotState, error) {
	query := `
		SELECT config_id, tenant_id, position_open, active_order_id, position_start_time,
		       active_trades, last_error, updated_at
		FROM bot_states WHERE config_id = $1
	`

	state := &models.BotState{}
	err := r.db.GetPool().QueryRow(ctx, query, configID).Scan(
		&state.ConfigID, &state.TenantID, &state.PositionOpen, &state.ActiveOrderID,
		&state.PositionStartTime, &state.ActiveTrades, &state.LastError, &state.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot state: %w", err)
	}

	return state, nil
}

// Init creates a zero-valued state row if none exists yet
func (r *PostgresBotStateRepository) Init(ctx context.Context, tenantID, configID uuid.UUID) error {
	query := `
		INSERT INTO bot_states (config_id, tenant_id, position_open, active_order_id,
		                        position_start_time, active_trades, last_error, updated_at)
		VALUES ($1, $2, false, '', NULL, 0, '', NOW())
		ON CONFLICT (config_id) DO NOTHING
	`

	err := withRetry(ctx, r.policy, func() error {
		_, execErr := r.db.GetPool().Exec(ctx, query, configID, tenantID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("%w: init bot state: %v", models.ErrPersistenceFailure, err)
	}

	return nil
}

// Update applies a partial state update. Nil fields in the update leave
// the stored values unchanged; transient errors are retried under the
// repository retry policy before surfacing as ErrPersistenceFailure.
func (r *PostgresBotStateRepository) Update(ctx context.Context, tenantID, configID uuid.UUID, update *models.BotStateUpdate) error {
	if update == nil {
		return nil
	}

	set := make([]string, 0, 6)
	args := []any{configID, tenantID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.PositionOpen != nil {
		set = append(set, "position_open = "+arg(*update.PositionOpen))
	}
	if update.ActiveOrderID != nil {
		set = append(set, "active_order_id = "+arg(*update.ActiveOrderID))
	}
	if update.PositionStartTime != nil {
		set = append(set, "position_start_time = "+arg(*update.PositionStartTime))
	} else if update.ClearPositionTime {
		set = append(set, "position_start_time = NULL")
	}
	if update.ActiveTrades != nil {
		set = append(set, "active_trades = "+arg(*update.ActiveTrades))
	}
	if update.LastError != nil {
		set = append(set, "last_error = "+arg(*update.LastError))
	}

	if len(set) == 0 {
		return nil
	}

	query := "UPDATE bot_states SET " + joinSet(set) + ", updated_at = NOW() WHERE config_id = $1 AND tenant_id = $2"

	err := withRetry(ctx, r.policy, func() error {
		tag, execErr := r.db.GetPool().Exec(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: update bot state: %v", models.ErrPersistenceFailure, err)
	}

	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
