package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/coinpilot/internal/database"
	"github.com/yourusername/coinpilot/internal/models"
)

// PostgresCandleRepository implements CandleRepository for PostgreSQL
type PostgresCandleRepository struct {
	db     *database.DB
	policy RetryPolicy
}

// NewPostgresCandleRepository creates a new candle repository
func NewPostgresCandleRepository(db *database.DB, policy RetryPolicy) CandleRepository {
	return &PostgresCandleRepository{db: db, policy: policy}
}

// InsertBatch upserts a batch of candles; re-synced bars overwrite in place
func (r *PostgresCandleRepository) InsertBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	query := `
		INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, open_time)
		DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
		              close = EXCLUDED.close, volume = EXCLUDED.volume
	`

	err := withRetry(ctx, r.policy, func() error {
		for _, c := range candles {
			if _, execErr := r.db.GetPool().Exec(ctx, query,
				c.Symbol, c.Timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume,
			); execErr != nil {
				return execErr
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: insert candles: %v", models.ErrPersistenceFailure, err)
	}

	return nil
}

// GetRange retrieves candles in [start, end], oldest first
func (r *PostgresCandleRepository) GetRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Candle, error) {
	query := `
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND open_time >= $3 AND open_time <= $4
		ORDER BY open_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query candle range: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// GetRecent retrieves the latest candles for a symbol/timeframe, oldest first
func (r *PostgresCandleRepository) GetRecent(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	query := `
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM (
			SELECT symbol, timeframe, open_time, open, high, low, close, volume
			FROM candles
			WHERE symbol = $1 AND timeframe = $2
			ORDER BY open_time DESC
			LIMIT $3
		) recent
		ORDER BY open_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
