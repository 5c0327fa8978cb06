package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("timeframe", validateTimeframe)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateTimeframe(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "1m", "5m", "15m", "30m", "1h", "4h", "1d":
		return true
	default:
		return false
	}
}

// validateCrossField applies validations that span multiple fields
func validateCrossField(cfg *Config) error {
	if !cfg.Features.PaperTradingEnabled && !cfg.Features.LiveTradingEnabled {
		return fmt.Errorf("at least one trading mode must be enabled")
	}
	if cfg.Trading.MinSampleSize > cfg.Trading.ExpectancyWindow {
		return fmt.Errorf("trading.min_sample_size (%d) cannot exceed trading.expectancy_window (%d)",
			cfg.Trading.MinSampleSize, cfg.Trading.ExpectancyWindow)
	}
	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.CandleSyncCron == "" {
			return fmt.Errorf("scheduler.candle_sync_cron is required when scheduler is enabled")
		}
		for _, tf := range cfg.Scheduler.SyncTimeframes {
			if !isValidTimeframe(tf) {
				return fmt.Errorf("scheduler.sync_timeframes contains unsupported timeframe %q", tf)
			}
		}
	}
	return nil
}

func isValidTimeframe(tf string) bool {
	switch tf {
	case "1m", "5m", "15m", "30m", "1h", "4h", "1d":
		return true
	default:
		return false
	}
}

// formatValidationErrors converts validator errors into a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, fmt.Sprintf("%s failed on '%s'", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}
