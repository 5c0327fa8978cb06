package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/config"
	"github.com/yourusername/coinpilot/internal/marketdata"
	"github.com/yourusername/coinpilot/internal/repository"
)

// Scheduler runs the periodic candle sync that keeps historical data
// fresh for backtests and optimizer runs.
type Scheduler struct {
	cron       *cron.Cron
	cfg        config.SchedulerConfig
	source     marketdata.Source
	candleRepo repository.CandleRepository
	logger     *logrus.Logger

	mu        sync.Mutex
	isRunning bool
	jobIDs    []cron.EntryID
}

// New creates a scheduler. Jobs are registered with Schedule before Start.
func New(cfg config.SchedulerConfig, source marketdata.Source, candleRepo repository.CandleRepository, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		cfg:        cfg,
		source:     source,
		candleRepo: candleRepo,
		logger:     logger,
		jobIDs:     make([]cron.EntryID, 0),
	}
}

// ScheduleCandleSync registers the candle sync job using the configured
// cron expression.
func (s *Scheduler) ScheduleCandleSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if s.cfg.CandleSyncCron == "" {
		return fmt.Errorf("candle sync cron expression is empty")
	}

	entryID, err := s.cron.AddFunc(s.cfg.CandleSyncCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.syncCandles(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add candle sync job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"cron":       s.cfg.CandleSyncCron,
		"symbols":    s.cfg.SyncSymbols,
		"timeframes": s.cfg.SyncTimeframes,
	}).Info("Candle sync scheduled")
	return nil
}

// syncCandles fetches the latest window per symbol and timeframe and
// upserts it. One failing pair does not block the others.
func (s *Scheduler) syncCandles(ctx context.Context) {
	limit := s.cfg.SyncCandleLimit
	if limit <= 0 {
		limit = 500
	}

	for _, symbol := range s.cfg.SyncSymbols {
		for _, timeframe := range s.cfg.SyncTimeframes {
			candles, err := s.source.FetchOHLCV(ctx, symbol, timeframe, limit)
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"symbol":    symbol,
					"timeframe": timeframe,
					"error":     err,
				}).Error("Candle sync fetch failed")
				continue
			}
			if err := s.candleRepo.InsertBatch(ctx, candles); err != nil {
				s.logger.WithFields(logrus.Fields{
					"symbol":    symbol,
					"timeframe": timeframe,
					"error":     err,
				}).Error("Candle sync upsert failed")
				continue
			}
			s.logger.WithFields(logrus.Fields{
				"symbol":    symbol,
				"timeframe": timeframe,
				"count":     len(candles),
			}).Debug("Candle sync complete")
		}
	}
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}
