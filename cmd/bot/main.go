// Package main provides the entry point for the bot orchestrator.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/bot"
	"github.com/yourusername/coinpilot/internal/cache"
	"github.com/yourusername/coinpilot/internal/config"
	"github.com/yourusername/coinpilot/internal/database"
	"github.com/yourusername/coinpilot/internal/exchange"
	"github.com/yourusername/coinpilot/internal/health"
	"github.com/yourusername/coinpilot/internal/logger"
	"github.com/yourusername/coinpilot/internal/marketdata"
	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/notify"
	"github.com/yourusername/coinpilot/internal/repository"
	"github.com/yourusername/coinpilot/internal/scheduler"
)

const version = "0.3.0"

func main() {
	configPath := os.Getenv("COINPILOT_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     version,
	}).Info("Coinpilot bot orchestrator starting")

	metrics.InitRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, cfg.GetDatabaseDSN(), cfg.Database.MaxConnections)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	appLog.Info("Database connection established")

	retryPolicy := repository.RetryPolicy{
		Attempts: cfg.Database.RetryAttempts,
		Backoff:  time.Duration(cfg.Database.RetryBackoffMS) * time.Millisecond,
	}
	repos, err := repository.NewRepositories(db, retryPolicy)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	// Market data source
	httpClient := marketdata.NewRateLimitedHTTPClient(marketdata.HTTPClientConfig{
		Timeout:           time.Duration(cfg.MarketData.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.MarketData.MaxRetries,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         cfg.MarketData.RateLimit,
		CircuitBreakerMax: 5,
	}, appLog)
	defer httpClient.Close()

	source := marketdata.NewRESTSource(cfg.MarketData.BaseURL, httpClient, appLog)

	// Indicator cache shared by all bot instances
	indicatorCache := cache.New(30 * time.Minute)

	// Notification hub
	var broadcaster notify.Broadcaster = notify.NopBroadcaster{}
	var hub *notify.Hub
	if cfg.Notify.Enabled {
		hub = notify.NewHub(appLog)
		broadcaster = hub
	}

	// Paper execution only; live venue clients plug in behind the same
	// Exchange interface.
	if !cfg.Features.PaperTradingEnabled {
		appLog.Fatal("Paper trading is the only supported execution mode")
	}
	paperExchange := exchange.NewPaperExchange(cfg.Backtest.InitialBalance, cfg.Backtest.FeeRate, appLog)

	gate := bot.NewExpectancyGate(&cfg.Trading, repos.Trade, appLog)

	manager := bot.NewManager(repos.BotConfig, bot.InstanceDeps{
		AppConfig:   cfg,
		Exchange:    paperExchange,
		Source:      source,
		Cache:       indicatorCache,
		Gate:        gate,
		StateRepo:   repos.BotState,
		TradeRepo:   repos.Trade,
		Broadcaster: broadcaster,
		Logger:      appLog,
	}, appLog)

	// Health and metrics endpoint
	var wsHandler http.Handler
	if hub != nil {
		wsHandler = hub
	}
	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     version,
		Port:        fmt.Sprintf("%d", cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Path,
		WSHandler:   wsHandler,
		Logger:      appLog,
		DB:          db,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	// Candle sync scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, source, repos.Candle, appLog)
		if err := sched.ScheduleCandleSync(); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule candle sync")
		}
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
	}

	// Launch every active bot configuration
	if err := manager.StartActive(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start active bots")
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"bots_running":  manager.RunningCount(),
		"paper_trading": cfg.Features.PaperTradingEnabled,
		"notifications": cfg.Notify.Enabled,
		"scheduler":     cfg.Scheduler.Enabled,
	}).Info("Orchestrator started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	if sched != nil {
		sched.Stop()
	}
	manager.StopAll()

	appLog.Info("Shutdown complete")
}
