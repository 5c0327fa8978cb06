// Package metrics provides the centralized Prometheus metrics registry for the trading platform.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	OrdersSimulatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "orders_simulated_total",
		Help:      "Total number of orders filled by the paper exchange",
	})
	TradesRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "trades_recorded_total",
		Help:      "Total number of trades appended to the simulated ledger",
	})
	SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "signals_total",
		Help:      "Total number of strategy signals by type",
	}, []string{"signal"})
	EdgeRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "edge_rejections_total",
		Help:      "Total number of entries vetoed by the expectancy gate",
	})
	IndicatorCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "indicator_cache_hits_total",
		Help:      "Total number of indicator cache hits",
	})
	IndicatorCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "indicator_cache_misses_total",
		Help:      "Total number of indicator cache misses",
	})
	IndicatorCacheSavesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "indicator_cache_saves_total",
		Help:      "Total number of indicator cache writes",
	})
	OptimizerCombinationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "optimizer_combinations_total",
		Help:      "Total number of optimizer parameter combinations evaluated",
	})
	BotErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Name:      "bot_errors_total",
		Help:      "Total number of bot instances transitioned to the error state",
	})
)

// Gauge metrics
var (
	BotsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coinpilot",
		Name:      "bots_running",
		Help:      "Number of currently running bot instances",
	})
	NotifyClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coinpilot",
		Name:      "notify_clients_connected",
		Help:      "Number of connected websocket notification clients",
	})
)

// Histogram metrics
var (
	BotLoopDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coinpilot",
		Name:      "bot_loop_duration_seconds",
		Help:      "Duration of one bot evaluation cycle in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coinpilot",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(OrdersSimulatedTotal)
		registry.MustRegister(TradesRecordedTotal)
		registry.MustRegister(SignalsTotal)
		registry.MustRegister(EdgeRejectionsTotal)
		registry.MustRegister(IndicatorCacheHitsTotal)
		registry.MustRegister(IndicatorCacheMissesTotal)
		registry.MustRegister(IndicatorCacheSavesTotal)
		registry.MustRegister(OptimizerCombinationsTotal)
		registry.MustRegister(BotErrorsTotal)

		registry.MustRegister(BotsRunning)
		registry.MustRegister(NotifyClientsConnected)

		registry.MustRegister(BotLoopDuration)
		registry.MustRegister(BacktestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSignal records a strategy signal event.
func RecordSignal(signal string) {
	SignalsTotal.WithLabelValues(signal).Inc()
}

// RecordLoopDuration records one bot cycle duration.
func RecordLoopDuration(durationSeconds float64) {
	BotLoopDuration.Observe(durationSeconds)
}

// RecordBacktestDuration records backtest duration.
func RecordBacktestDuration(durationSeconds float64) {
	BacktestDuration.Observe(durationSeconds)
}
