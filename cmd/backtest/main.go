// Package main provides the backtesting and optimization CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/coinpilot/internal/backtest"
	"github.com/yourusername/coinpilot/internal/config"
	"github.com/yourusername/coinpilot/internal/database"
	"github.com/yourusername/coinpilot/internal/logger"
	"github.com/yourusername/coinpilot/internal/marketdata"
	"github.com/yourusername/coinpilot/internal/models"
	"github.com/yourusername/coinpilot/internal/repository"
	"github.com/yourusername/coinpilot/internal/strategy"
)

var (
	configFile   string
	symbol       string
	timeframe    string
	strategyName string
	paramsFlag   string
	rangesFlag   string
	limit        int
	topN         int
	fromAPI      bool

	appLog *logrus.Logger
	cfg    *config.Config
	db     *database.DB
	repos  *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&symbol, "symbol", "BTCUSDT", "Trading pair symbol")
	rootCmd.PersistentFlags().StringVar(&timeframe, "timeframe", "1h", "Candle timeframe")
	rootCmd.PersistentFlags().StringVar(&strategyName, "strategy", strategy.DefaultStrategyName, "Strategy name")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 1000, "Number of historical candles to replay")
	rootCmd.PersistentFlags().BoolVar(&fromAPI, "from-api", false, "Fetch candles from the market data API instead of the database")

	runCmd.Flags().StringVar(&paramsFlag, "params", "", "Strategy parameters, e.g. rsi_period=14,bb_period=20")
	optimizeCmd.Flags().StringVar(&rangesFlag, "ranges", "", "Parameter ranges, e.g. rsi_period=10,14,21;bb_period=20,30")
	optimizeCmd.Flags().IntVar(&topN, "top", 10, "Number of ranked results to print")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(optimizeCmd)
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay strategies against historical candles",
	Long:  `Runs single backtests and grid-search parameter optimization against stored or freshly fetched OHLCV history.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		params, err := parseParams(paramsFlag)
		if err != nil {
			return err
		}
		strat, err := strategy.NewFromParams(strategyName, params, appLog)
		if err != nil {
			return err
		}

		candles, err := loadCandles(ctx)
		if err != nil {
			return err
		}

		engine, err := backtest.NewEngine(engineConfig(), appLog)
		if err != nil {
			return err
		}

		result, err := engine.Run(ctx, symbol, timeframe, strat, candles)
		if err != nil {
			return err
		}

		backtest.NewReporter(os.Stdout).PrintResult(result)
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Grid-search strategy parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ranges, err := parseRanges(rangesFlag)
		if err != nil {
			return err
		}
		if len(ranges) == 0 {
			return fmt.Errorf("--ranges is required")
		}

		candles, err := loadCandles(ctx)
		if err != nil {
			return err
		}

		optimizer := backtest.NewOptimizer(engineConfig(), appLog)

		started := time.Now()
		results, err := optimizer.Optimize(ctx, symbol, timeframe, strategyName, ranges, candles, func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%d/%d combinations", done, total)
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		appLog.WithFields(logrus.Fields{
			"combinations": len(results),
			"elapsed":      time.Since(started).Round(time.Millisecond),
		}).Info("Optimization complete")

		backtest.NewReporter(os.Stdout).PrintRanking(results, topN)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err = database.NewDB(ctx, cfg.GetDatabaseDSN(), cfg.Database.MaxConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db, repository.DefaultRetryPolicy())
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	return nil
}

func engineConfig() backtest.Config {
	ec := backtest.DefaultConfig()
	ec.InitialBalance = cfg.Backtest.InitialBalance
	ec.FeeRate = cfg.Backtest.FeeRate
	ec.WindowLimit = cfg.Bot.CandleWindowLimit
	return ec
}

// loadCandles reads history from the candle store, or from the market
// data API when --from-api is set.
func loadCandles(ctx context.Context) ([]models.Candle, error) {
	if fromAPI {
		client := marketdata.NewRateLimitedHTTPClient(marketdata.DefaultHTTPClientConfig(), appLog)
		defer client.Close()
		source := marketdata.NewRESTSource(cfg.MarketData.BaseURL, client, appLog)
		return source.FetchOHLCV(ctx, symbol, timeframe, limit)
	}

	candles, err := repos.Candle.GetRecent(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no stored candles for %s %s, try --from-api", models.ErrDataUnavailable, symbol, timeframe)
	}
	return candles, nil
}

// parseParams parses "key=1.5,key2=3" into a parameter map.
func parseParams(s string) (map[string]float64, error) {
	params := make(map[string]float64)
	if s == "" {
		return params, nil
	}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		params[key] = v
	}
	return params, nil
}

// parseRanges parses "key=1,2,3;key2=4,5" into parameter ranges.
func parseRanges(s string) (map[string][]float64, error) {
	ranges := make(map[string][]float64)
	if s == "" {
		return ranges, nil
	}
	for _, group := range strings.Split(s, ";") {
		key, list, ok := strings.Cut(strings.TrimSpace(group), "=")
		if !ok {
			return nil, fmt.Errorf("invalid range %q, want key=v1,v2,...", group)
		}
		var values []float64
		for _, raw := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value in range for %q: %w", key, err)
			}
			values = append(values, v)
		}
		ranges[key] = values
	}
	return ranges, nil
}
