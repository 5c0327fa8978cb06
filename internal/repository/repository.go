package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/coinpilot/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	BotConfig BotConfigRepository
	BotState  BotStateRepository
	Trade     TradeRepository
	Candle    CandleRepository
}

// RetryPolicy bounds transient-error retries inside the repositories.
// Once the budget is exhausted the failure surfaces as
// models.ErrPersistenceFailure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy returns the retry policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 250 * time.Millisecond}
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB, policy RetryPolicy) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if policy.Attempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	return &Repositories{
		BotConfig: NewPostgresBotConfigRepository(db, policy),
		BotState:  NewPostgresBotStateRepository(db, policy),
		Trade:     NewPostgresTradeRepository(db, policy),
		Candle:    NewPostgresCandleRepository(db, policy),
	}, nil
}

// withRetry runs fn under the policy, backing off between attempts.
// Context cancellation aborts immediately.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var err error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff * time.Duration(attempt+1)):
		}
	}
	return err
}
