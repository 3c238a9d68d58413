package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/regime-trading-bot/internal/backtest"
)

// CSVReporter writes backtest artifacts as CSV files.
type CSVReporter struct{}

// NewCSVReporter creates a CSV reporter.
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteTrades writes the closed trades to path. An .xlsx path delegates
// to the Excel writer.
func (r *CSVReporter) WriteTrades(results *backtest.Results, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(results, path)
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"ID", "Side", "Regime", "Entry_Time", "Exit_Time",
		"Entry_Price", "Exit_Price", "Quantity", "Leverage",
		"Fees", "Funding", "PnL", "Return_%", "Reason",
	}); err != nil {
		return err
	}

	for _, t := range results.Trades {
		row := []string{
			t.ID,
			t.Side.String(),
			t.OpenRegime.String(),
			t.OpenTime.Format("2006-01-02 15:04:05"),
			t.CloseTime.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.8f", t.EntryPrice),
			fmt.Sprintf("%.8f", t.ExitPrice),
			fmt.Sprintf("%.6f", t.Quantity),
			fmt.Sprintf("%.0f", t.Leverage),
			fmt.Sprintf("%.4f", t.Fees),
			fmt.Sprintf("%.4f", t.Funding),
			fmt.Sprintf("%.4f", t.PnL),
			fmt.Sprintf("%.2f", t.ReturnPct),
			string(t.Reason),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	stats := results.Stats
	summary := fmt.Sprintf("SUMMARY: net_pnl=$%.2f; win_rate=%.1f%%; max_drawdown=%.2f%%; total_trades=%d",
		stats.NetPnL, stats.WinRate, stats.MaxDrawdown, stats.TotalTrades)
	summaryRow := make([]string, 14)
	summaryRow[13] = summary
	return w.Write(summaryRow)
}

// WriteEquityCurve writes the marked-to-market equity samples to path.
func (r *CSVReporter) WriteEquityCurve(results *backtest.Results, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Timestamp", "Equity"}); err != nil {
		return err
	}
	for _, point := range results.EquityCurve {
		row := []string{
			point.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(point.Equity, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// WriteTradesCSV is a package-level convenience wrapper.
func WriteTradesCSV(results *backtest.Results, path string) error {
	return NewCSVReporter().WriteTrades(results, path)
}
