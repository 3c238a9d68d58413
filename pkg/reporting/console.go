package reporting

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/regime-trading-bot/internal/backtest"
)

// ConsoleReporter renders backtest results as terminal tables.
type ConsoleReporter struct{}

// NewConsoleReporter creates a console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// OutputResults prints the performance summary and the regime history.
func (r *ConsoleReporter) OutputResults(results *backtest.Results, symbol string) {
	stats := results.Stats

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("BACKTEST RESULTS - %s", symbol))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Balance", fmt.Sprintf("$%.2f", stats.InitialBalance)},
		{"💰 Final Balance", fmt.Sprintf("$%.2f", stats.FinalBalance)},
		{"📈 Net PnL", fmt.Sprintf("$%.2f", stats.NetPnL)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", stats.MaxDrawdown)},
		{"📊 Sharpe Ratio", formatRatio(stats.SharpeRatio)},
		{"📊 Sortino Ratio", formatRatio(stats.SortinoRatio)},
		{"💹 Profit Factor", formatRatio(stats.ProfitFactor)},
		{"🔄 Total Trades", fmt.Sprintf("%d", stats.TotalTrades)},
		{"✅ Wins", fmt.Sprintf("%d (%.1f%%)", stats.Wins, stats.WinRate)},
		{"❌ Losses", fmt.Sprintf("%d", stats.Losses)},
		{"🎯 Expectancy", fmt.Sprintf("$%.2f/trade", stats.Expectancy)},
		{"💸 Total Fees", fmt.Sprintf("$%.2f", stats.TotalFees)},
		{"🌀 Regime Changes", fmt.Sprintf("%d (final: %s)", len(results.RegimeChanges), results.FinalRegime)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 22, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()

	if len(results.Trades) > 0 {
		r.outputTrades(results)
	}
}

// outputTrades prints the per-trade breakdown.
func (r *ConsoleReporter) outputTrades(results *backtest.Results) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "Side", "Regime", "Entry", "Exit", "PnL", "Return", "Reason", "Duration"})
	for i, trade := range results.Trades {
		t.AppendRow(table.Row{
			i + 1,
			trade.Side,
			trade.OpenRegime,
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			fmt.Sprintf("$%.2f", trade.PnL),
			fmt.Sprintf("%.1f%%", trade.ReturnPct),
			trade.Reason,
			trade.Duration().Round(time.Second).String(),
		})
	}
	t.Render()
	fmt.Println()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}
