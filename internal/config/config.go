// Package config provides configuration management for the Coinpilot trading platform.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	MarketData MarketDataConfig `mapstructure:"market_data" validate:"required"`
	Trading    TradingConfig    `mapstructure:"trading" validate:"required"`
	Bot        BotConfig        `mapstructure:"bot" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Features   FeaturesConfig   `mapstructure:"features"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
	RetryAttempts  int    `mapstructure:"retry_attempts" validate:"gte=0"`
	RetryBackoffMS int    `mapstructure:"retry_backoff_ms" validate:"gte=0"`
}

// MarketDataConfig represents market data source configuration
type MarketDataConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"required,gt=0"` // requests per second
}

// TradingConfig represents risk management configuration shared by all bots
type TradingConfig struct {
	MinExpectancy    float64 `mapstructure:"min_expectancy" validate:"gte=-100"`
	ExpectancyWindow int     `mapstructure:"expectancy_window" validate:"required,gt=0"`
	MinSampleSize    int     `mapstructure:"min_sample_size" validate:"required,gt=0"`
	MaxActiveTrades  int     `mapstructure:"max_active_trades" validate:"required,gt=0"`
}

// BotConfig represents bot execution loop configuration
type BotConfig struct {
	CandleWindowLimit   int `mapstructure:"candle_window_limit" validate:"required,gte=20"`
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" validate:"required,gt=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance" validate:"required,gt=0"`
	FeeRate        float64 `mapstructure:"fee_rate" validate:"gte=0,lte=0.1"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// NotifyConfig represents the websocket broadcast hub configuration
type NotifyConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	Port           int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	SendBufferSize int  `mapstructure:"send_buffer_size" validate:"omitempty,gt=0"`
}

// SchedulerConfig represents the historical candle sync schedule
type SchedulerConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	CandleSyncCron  string   `mapstructure:"candle_sync_cron"`
	SyncSymbols     []string `mapstructure:"sync_symbols"`
	SyncTimeframes  []string `mapstructure:"sync_timeframes"`
	SyncCandleLimit int      `mapstructure:"sync_candle_limit" validate:"omitempty,gt=0"`
}

// FeaturesConfig represents feature flags
type FeaturesConfig struct {
	PaperTradingEnabled bool `mapstructure:"paper_trading_enabled"`
	LiveTradingEnabled  bool `mapstructure:"live_trading_enabled"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
