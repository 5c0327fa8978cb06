package backtest

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yourusername/coinpilot/internal/models"
)

// Reporter renders backtest and optimization results as text tables.
type Reporter struct {
	out io.Writer
}

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// PrintResult renders a single backtest run.
func (r *Reporter) PrintResult(result *Result) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s on %s %s", result.StrategyName, result.Symbol, result.Timeframe))

	t.AppendRows([]table.Row{
		{"Initial balance", fmt.Sprintf("%.2f", result.InitialBalance)},
		{"Final balance", fmt.Sprintf("%.2f", result.FinalBalance)},
		{"Total return", fmt.Sprintf("%+.2f%%", result.TotalReturn)},
		{"Win rate", fmt.Sprintf("%.1f%%", result.WinRate*100)},
		{"Closed trades", result.TradeCount},
	})
	t.Render()
}

// PrintRanking renders optimizer results ranked by total return. The
// results are expected to arrive sorted already; rank is positional.
func (r *Reporter) PrintRanking(results []models.BacktestResult, topN int) {
	if len(results) == 0 {
		fmt.Fprintln(r.out, "no results")
		return
	}
	if topN <= 0 || topN > len(results) {
		topN = len(results)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Params", "Return %", "Win Rate", "Trades", "Final Balance"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for i := 0; i < topN; i++ {
		res := results[i]
		t.AppendRow(table.Row{
			i + 1,
			formatParams(res.Params),
			fmt.Sprintf("%+.2f", res.TotalReturn),
			fmt.Sprintf("%.1f%%", res.WinRate*100),
			res.TradeCount,
			fmt.Sprintf("%.2f", res.FinalBalance),
		})
	}
	t.Render()
}

// formatParams renders a parameter map in stable key order.
func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, " ")
}
