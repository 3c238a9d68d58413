package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/regime-trading-bot/internal/backtest"
)

// ExcelReporter writes backtest results as a styled workbook.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// excelStyles holds the style IDs shared across sheets.
type excelStyles struct {
	header   int
	currency int
	percent  int
	win      int
	loss     int
}

// WriteTrades writes a workbook with Summary, Trades and Equity sheets.
func (r *ExcelReporter) WriteTrades(results *backtest.Results, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, results, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, results, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt:    9,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.win, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006100"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return styles, err
	}

	styles.loss, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	stats := results.Stats

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Initial Balance", stats.InitialBalance},
		{"Final Balance", stats.FinalBalance},
		{"Net PnL", stats.NetPnL},
		{"Max Drawdown %", stats.MaxDrawdown},
		{"Sharpe Ratio", sanitizeRatio(stats.SharpeRatio)},
		{"Sortino Ratio", sanitizeRatio(stats.SortinoRatio)},
		{"Profit Factor", sanitizeRatio(stats.ProfitFactor)},
		{"Total Trades", stats.TotalTrades},
		{"Wins", stats.Wins},
		{"Losses", stats.Losses},
		{"Win Rate %", stats.WinRate},
		{"Expectancy", stats.Expectancy},
		{"Total Fees", stats.TotalFees},
		{"Regime Changes", len(results.RegimeChanges)},
		{"Final Regime", results.FinalRegime.String()},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", "B", 20)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	header := []interface{}{
		"ID", "Side", "Regime", "Entry Time", "Exit Time",
		"Entry Price", "Exit Price", "Quantity", "Fees", "Funding", "PnL", "Return %", "Reason",
	}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "M1", styles.header); err != nil {
		return err
	}

	for i, t := range results.Trades {
		rowNum := i + 2
		row := []interface{}{
			t.ID,
			t.Side.String(),
			t.OpenRegime.String(),
			t.OpenTime.Format("2006-01-02 15:04:05"),
			t.CloseTime.Format("2006-01-02 15:04:05"),
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.Fees,
			t.Funding,
			t.PnL,
			t.ReturnPct / 100,
			string(t.Reason),
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}

		pnlCell := fmt.Sprintf("K%d", rowNum)
		style := styles.win
		if t.PnL < 0 {
			style = styles.loss
		}
		if err := fx.SetCellStyle(sheet, pnlCell, pnlCell, style); err != nil {
			return err
		}
		retCell := fmt.Sprintf("L%d", rowNum)
		if err := fx.SetCellStyle(sheet, retCell, retCell, styles.percent); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "M", 16)
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	header := []interface{}{"Timestamp", "Equity"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, point := range results.EquityCurve {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{point.Timestamp.Format("2006-01-02 15:04:05"), point.Equity}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 20)
}

// sanitizeRatio keeps +Inf ratios out of the workbook; Excel has no
// representation for them.
func sanitizeRatio(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return v
}

// WriteTradesXLSX is a package-level convenience wrapper.
func WriteTradesXLSX(results *backtest.Results, path string) error {
	return NewExcelReporter().WriteTrades(results, path)
}
