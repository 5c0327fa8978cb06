package models

import "errors"

// Custom errors
var (
	ErrNotFound              = errors.New("record not found")
	ErrInvalidOrder          = errors.New("invalid order parameters")
	ErrDataUnavailable       = errors.New("market data unavailable")
	ErrSubscriptionViolation = errors.New("entry blocked by subscription plan")
	ErrPersistenceFailure    = errors.New("persistence retry budget exhausted")
	ErrDuplicateKey          = errors.New("duplicate key violation")
	ErrInvalidTimeframe      = errors.New("unsupported timeframe")
	ErrBotNotRunning         = errors.New("bot is not running")
)
