package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/cache"
	"github.com/yourusername/coinpilot/internal/config"
	"github.com/yourusername/coinpilot/internal/exchange"
	"github.com/yourusername/coinpilot/internal/marketdata"
	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/models"
	"github.com/yourusername/coinpilot/internal/notify"
	"github.com/yourusername/coinpilot/internal/repository"
	"github.com/yourusername/coinpilot/internal/strategy"
)

// InstanceState is the lifecycle state of a single bot instance.
type InstanceState string

const (
	StateIdle     InstanceState = "idle"
	StateRunning  InstanceState = "running"
	StateStopping InstanceState = "stopping"
	StateError    InstanceState = "error"
)

// InstanceStatus is a point-in-time snapshot of a bot instance.
type InstanceStatus struct {
	ConfigID     uuid.UUID     `json:"config_id"`
	TenantID     uuid.UUID     `json:"tenant_id"`
	Symbol       string        `json:"symbol"`
	Timeframe    string        `json:"timeframe"`
	StrategyName string        `json:"strategy_name"`
	State        InstanceState `json:"state"`
	PositionOpen bool          `json:"position_open"`
	LastError    string        `json:"last_error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	LastLoopAt   time.Time     `json:"last_loop_at"`
}

// position tracks the instance's open position between loop iterations.
type position struct {
	orderID    string
	entryPrice float64
	quantity   float64
	fee        float64
	openedAt   time.Time
}

// Instance runs the trading loop for one bot configuration. All loop
// side effects (orders, persisted state, broadcasts) happen between
// iteration boundaries; a stop request is observed only at the boundary
// so an in-flight order is never abandoned.
type Instance struct {
	botCfg      *models.BotConfig
	appCfg      *config.Config
	strat       strategy.Strategy
	exch        exchange.Exchange
	source      marketdata.Source
	cache       *cache.IndicatorCache
	gate        *ExpectancyGate
	stateRepo   repository.BotStateRepository
	tradeRepo   repository.TradeRepository
	broadcaster notify.Broadcaster
	logger      *logrus.Entry

	mu         sync.RWMutex
	state      InstanceState
	lastError  string
	pos        *position
	startedAt  time.Time
	lastLoopAt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
	onExit func()
}

// InstanceDeps bundles the collaborators a bot instance needs.
type InstanceDeps struct {
	AppConfig   *config.Config
	Exchange    exchange.Exchange
	Source      marketdata.Source
	Cache       *cache.IndicatorCache
	Gate        *ExpectancyGate
	StateRepo   repository.BotStateRepository
	TradeRepo   repository.TradeRepository
	Broadcaster notify.Broadcaster
	Logger      *logrus.Logger
}

// NewInstance builds an idle instance for the given configuration.
func NewInstance(botCfg *models.BotConfig, deps InstanceDeps) (*Instance, error) {
	if _, err := botCfg.PollInterval(); err != nil {
		return nil, err
	}

	strat, err := strategy.NewFromParams(botCfg.StrategyName, botCfg.StrategyParams, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	return &Instance{
		botCfg:      botCfg,
		appCfg:      deps.AppConfig,
		strat:       strat,
		exch:        deps.Exchange,
		source:      deps.Source,
		cache:       deps.Cache,
		gate:        deps.Gate,
		stateRepo:   deps.StateRepo,
		tradeRepo:   deps.TradeRepo,
		broadcaster: deps.Broadcaster,
		logger: deps.Logger.WithFields(logrus.Fields{
			"config_id": botCfg.ID,
			"tenant_id": botCfg.TenantID,
			"symbol":    botCfg.Symbol,
			"strategy":  strat.Name(),
		}),
		state:  StateIdle,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start launches the trading loop. It returns an error if the instance
// is not idle. onExit is invoked exactly once when the loop terminates,
// after the final state transition.
func (in *Instance) Start(ctx context.Context, onExit func()) error {
	in.mu.Lock()
	if in.state != StateIdle {
		state := in.state
		in.mu.Unlock()
		return fmt.Errorf("instance is %s, not idle", state)
	}
	in.state = StateRunning
	in.startedAt = time.Now().UTC()
	in.onExit = onExit
	in.mu.Unlock()

	if err := in.stateRepo.Init(ctx, in.botCfg.TenantID, in.botCfg.ID); err != nil {
		in.mu.Lock()
		in.state = StateIdle
		in.mu.Unlock()
		// The loop never launched, so this is the only place that can
		// release a Stop already waiting on the done channel.
		close(in.doneCh)
		return fmt.Errorf("init bot state: %w", err)
	}

	go in.run(ctx)

	in.logger.Info("Bot instance started")
	in.broadcast(notify.Event{Type: notify.EventBotStarted, ConfigID: in.botCfg.ID})
	return nil
}

// Stop requests termination and blocks until the loop has exited.
// Calling Stop on an already stopped instance is a no-op.
func (in *Instance) Stop() {
	in.mu.Lock()
	switch in.state {
	case StateRunning:
		in.state = StateStopping
		close(in.stopCh)
	case StateStopping:
		// Another caller is already stopping it, just wait below.
	default:
		in.mu.Unlock()
		return
	}
	in.mu.Unlock()

	<-in.doneCh
}

// Status returns a snapshot of the instance.
func (in *Instance) Status() InstanceStatus {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return InstanceStatus{
		ConfigID:     in.botCfg.ID,
		TenantID:     in.botCfg.TenantID,
		Symbol:       in.botCfg.Symbol,
		Timeframe:    in.botCfg.Timeframe,
		StrategyName: in.strat.Name(),
		State:        in.state,
		PositionOpen: in.pos != nil,
		LastError:    in.lastError,
		StartedAt:    in.startedAt,
		LastLoopAt:   in.lastLoopAt,
	}
}

// State returns the current lifecycle state.
func (in *Instance) State() InstanceState {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

func (in *Instance) run(ctx context.Context) {
	finalState := StateIdle

	defer func() {
		if r := recover(); r != nil {
			metrics.BotErrorsTotal.Inc()
			in.logger.WithField("panic", r).Error("Bot loop panicked")
			in.setError(fmt.Sprintf("panic: %v", r))
			finalState = StateError
		}

		in.mu.Lock()
		in.state = finalState
		onExit := in.onExit
		in.mu.Unlock()

		close(in.doneCh)
		in.broadcast(notify.Event{Type: notify.EventBotStopped, ConfigID: in.botCfg.ID})
		in.logger.WithField("state", finalState).Info("Bot instance stopped")
		if onExit != nil {
			onExit()
		}
	}()

	interval, _ := in.botCfg.PollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := in.iterate(ctx); err != nil {
			if errors.Is(err, models.ErrPersistenceFailure) {
				in.setError(err.Error())
				finalState = StateError
				in.broadcast(notify.Event{Type: notify.EventBotError, ConfigID: in.botCfg.ID, Payload: err.Error()})
				return
			}
			metrics.BotErrorsTotal.Inc()
			in.logger.WithError(err).Warn("Trading loop iteration failed")
		}

		select {
		case <-in.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// iterate executes one full trading cycle. Recoverable errors (data
// gaps, signal errors) are returned for logging and the next cycle
// proceeds; only persistence exhaustion terminates the loop.
func (in *Instance) iterate(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.RecordLoopDuration(time.Since(started).Seconds())
		in.mu.Lock()
		in.lastLoopAt = time.Now().UTC()
		in.mu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(in.appCfg.Bot.FetchTimeoutSeconds)*time.Second)
	candles, err := in.source.FetchOHLCV(fetchCtx, in.botCfg.Symbol, in.botCfg.Timeframe, in.appCfg.Bot.CandleWindowLimit)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			in.logger.Debug("No market data available, retrying next cycle")
			return nil
		}
		return fmt.Errorf("fetch market data: %w", err)
	}

	indicators, ok := in.cache.Get(in.botCfg.Symbol, in.botCfg.Timeframe, in.strat.Name(), candles)
	if !ok {
		indicators, err = in.strat.ComputeIndicators(candles)
		if err != nil {
			return fmt.Errorf("compute indicators: %w", err)
		}
		in.cache.Set(in.botCfg.Symbol, in.botCfg.Timeframe, in.strat.Name(), candles, indicators)
	}

	signal, err := in.strat.GenerateSignal(candles, indicators)
	if err != nil {
		return fmt.Errorf("generate signal: %w", err)
	}
	metrics.RecordSignal(string(signal))
	in.broadcast(notify.Event{Type: notify.EventSignal, ConfigID: in.botCfg.ID, Payload: signal})

	lastClose := candles[len(candles)-1].Close

	in.mu.RLock()
	pos := in.pos
	in.mu.RUnlock()

	if pos != nil {
		return in.manageOpenPosition(ctx, pos, signal, lastClose)
	}
	if signal.IsEntry() {
		return in.tryEnter(ctx, lastClose)
	}
	return nil
}

// manageOpenPosition exits when the strategy signals SELL or when the
// configured take profit or stop loss level is crossed.
func (in *Instance) manageOpenPosition(ctx context.Context, pos *position, signal models.Signal, price float64) error {
	reason := ""
	changePct := (price - pos.entryPrice) / pos.entryPrice * 100

	switch {
	case signal.IsExit():
		reason = "signal"
	case in.botCfg.TakeProfitPct > 0 && changePct >= in.botCfg.TakeProfitPct:
		reason = "take_profit"
	case in.botCfg.StopLossPct > 0 && changePct <= -in.botCfg.StopLossPct:
		reason = "stop_loss"
	default:
		return nil
	}

	order, err := in.exch.CreateOrder(ctx, in.botCfg.Symbol, models.OrderTypeMarket, models.OrderSideSell, pos.quantity, price)
	if err != nil {
		if errors.Is(err, models.ErrSubscriptionViolation) {
			in.logger.WithError(err).Warn("Exit skipped this cycle")
			return nil
		}
		return fmt.Errorf("close position: %w", err)
	}

	cost := pos.quantity * price
	fee := cost * in.appCfg.Backtest.FeeRate
	pnl := (price-pos.entryPrice)*pos.quantity - fee - pos.fee

	trade := &models.Trade{
		ID:        models.NewOrderID(),
		OrderID:   order.ID,
		TenantID:  in.botCfg.TenantID,
		ConfigID:  in.botCfg.ID,
		Symbol:    in.botCfg.Symbol,
		Side:      models.OrderSideSell,
		Quantity:  pos.quantity,
		Price:     price,
		Cost:      cost,
		Fee:       fee,
		PnL:       pnl,
		IsClosed:  true,
		Timestamp: time.Now().UTC(),
	}
	if err := in.tradeRepo.Save(ctx, trade); err != nil {
		return err
	}

	update := &models.BotStateUpdate{
		PositionOpen:      models.BoolPtr(false),
		ActiveOrderID:     models.StringPtr(""),
		ClearPositionTime: true,
		ActiveTrades:      models.IntPtr(0),
	}
	if err := in.stateRepo.Update(ctx, in.botCfg.TenantID, in.botCfg.ID, update); err != nil {
		return err
	}

	in.mu.Lock()
	in.pos = nil
	in.mu.Unlock()

	in.logger.WithFields(logrus.Fields{
		"reason": reason,
		"price":  price,
		"pnl":    pnl,
	}).Info("Position closed")
	in.broadcast(notify.Event{Type: notify.EventTradeClosed, ConfigID: in.botCfg.ID, Payload: trade})
	return nil
}

// tryEnter opens a position if the expectancy gate allows it.
func (in *Instance) tryEnter(ctx context.Context, price float64) error {
	allowed, err := in.gate.CheckEdge(ctx, in.botCfg.TenantID)
	if err != nil {
		return fmt.Errorf("check edge: %w", err)
	}
	if !allowed {
		in.broadcast(notify.Event{Type: notify.EventEdgeRejected, ConfigID: in.botCfg.ID})
		return nil
	}

	quantity := in.botCfg.PositionSize / price

	order, err := in.exch.CreateOrder(ctx, in.botCfg.Symbol, models.OrderTypeMarket, models.OrderSideBuy, quantity, price)
	if err != nil {
		if errors.Is(err, models.ErrSubscriptionViolation) {
			in.logger.WithError(err).Warn("Entry skipped this cycle")
			return nil
		}
		return fmt.Errorf("open position: %w", err)
	}

	cost := quantity * price
	fee := cost * in.appCfg.Backtest.FeeRate
	now := time.Now().UTC()

	trade := &models.Trade{
		ID:        models.NewOrderID(),
		OrderID:   order.ID,
		TenantID:  in.botCfg.TenantID,
		ConfigID:  in.botCfg.ID,
		Symbol:    in.botCfg.Symbol,
		Side:      models.OrderSideBuy,
		Quantity:  quantity,
		Price:     price,
		Cost:      cost,
		Fee:       fee,
		IsClosed:  false,
		Timestamp: now,
	}
	if err := in.tradeRepo.Save(ctx, trade); err != nil {
		return err
	}

	update := &models.BotStateUpdate{
		PositionOpen:      models.BoolPtr(true),
		ActiveOrderID:     models.StringPtr(order.ID),
		PositionStartTime: models.TimePtr(now),
		ActiveTrades:      models.IntPtr(1),
	}
	if err := in.stateRepo.Update(ctx, in.botCfg.TenantID, in.botCfg.ID, update); err != nil {
		return err
	}

	in.mu.Lock()
	in.pos = &position{
		orderID:    order.ID,
		entryPrice: price,
		quantity:   quantity,
		fee:        fee,
		openedAt:   now,
	}
	in.mu.Unlock()

	in.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"price":    price,
		"quantity": quantity,
	}).Info("Position opened")
	in.broadcast(notify.Event{Type: notify.EventTradeOpened, ConfigID: in.botCfg.ID, Payload: trade})
	return nil
}

// broadcast publishes an event without ever blocking the trading loop.
func (in *Instance) broadcast(event notify.Event) {
	if in.broadcaster == nil {
		return
	}
	event.ConfigID = in.botCfg.ID
	in.broadcaster.Broadcast(in.botCfg.TenantID, event)
}

func (in *Instance) setError(msg string) {
	in.mu.Lock()
	in.lastError = msg
	in.mu.Unlock()

	update := &models.BotStateUpdate{LastError: models.StringPtr(msg)}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := in.stateRepo.Update(ctx, in.botCfg.TenantID, in.botCfg.ID, update); err != nil {
		in.logger.WithError(err).Error("Failed to persist error state")
	}
}
