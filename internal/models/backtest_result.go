package models

// BacktestResult holds the outcome of one backtest run, one row per
// optimizer combination. Results are ephemeral and ranked by return
// percentage descending for presentation.
type BacktestResult struct {
	StrategyName string             `json:"strategy_name"`
	Symbol       string             `json:"symbol"`
	Timeframe    string             `json:"timeframe"`
	Params       map[string]float64 `json:"params"`
	TotalReturn  float64            `json:"total_return_pct"`
	WinRate      float64            `json:"win_rate"`
	TradeCount   int                `json:"trade_count"`
	FinalBalance float64            `json:"final_balance"`
}
