package bot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/strategy"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// intervalDuration converts an interval string to its candle duration.
func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d", "D":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// timeUntilNextCandle returns the wait until the current candle closes,
// aligned to UTC boundaries.
func timeUntilNextCandle(interval string) time.Duration {
	d := intervalDuration(interval)
	now := time.Now().UTC()
	next := now.Truncate(d).Add(d)
	return next.Sub(now)
}

// closedCandles fetches the analysis window on the given timeframe and
// drops the still-forming candle so decisions only see closed bars.
func (bot *LiveBot) closedCandles(ctx context.Context, timeframe string) ([]types.OHLCV, error) {
	limit := bot.config.Strategy.WindowSize + 2
	klines, err := bot.getKlines(ctx, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if len(klines) == 0 {
		return klines, nil
	}

	last := klines[len(klines)-1]
	closeTime := last.Timestamp.Add(intervalDuration(timeframe))
	if closeTime.After(time.Now().UTC()) {
		klines = klines[:len(klines)-1]
	}
	if len(klines) > bot.config.Strategy.WindowSize+1 {
		klines = klines[len(klines)-bot.config.Strategy.WindowSize-1:]
	}
	return klines, nil
}

// adoptExistingPosition warns when the exchange already carries size for
// the symbol. Such a position predates this session and stays unmanaged;
// its protective stop on the venue keeps governing it.
func (bot *LiveBot) adoptExistingPosition(ctx context.Context) error {
	info, err := bot.getPosition(ctx)
	if err != nil {
		return err
	}
	if info == nil || info.Size == 0 {
		return nil
	}

	bot.logger.Warning("Exchange holds an existing %s position of %.6f %s (avg %.4f); it will not be managed by this session",
		info.Side, info.Size, bot.symbol, info.AvgPrice)
	bot.notify("warning", fmt.Sprintf("Unmanaged %s position of %.6f %s found on startup", info.Side, info.Size, bot.symbol))
	return nil
}

// opposes reports whether the signal direction points against the side.
func opposes(side position.Side, d strategy.Direction) bool {
	switch side {
	case position.SideLong:
		return d == strategy.DirectionShort
	case position.SideShort:
		return d == strategy.DirectionLong
	default:
		return false
	}
}

// printStartupInfo renders the session banner.
func (bot *LiveBot) printStartupInfo() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("REGIME BOT INITIALIZATION")
	t.SetStyle(table.StyleRounded)

	trailing := bot.config.Risk.Trailing
	t.AppendRows([]table.Row{
		{"📊 Symbol", bot.symbol},
		{"⏰ Interval", bot.interval},
		{"🏪 Exchange", bot.exchange.GetName()},
		{"💰 Balance", fmt.Sprintf("$%.2f USDT", bot.balance)},
		{"⚖️ Leverage", fmt.Sprintf("%.0fx", bot.config.Risk.Leverage)},
		{"🎯 Risk/Trade", fmt.Sprintf("%.1f%%", bot.config.Risk.RiskPct)},
		{"🛤️ Trailing", fmt.Sprintf("%s (activates at %.1f%%)", trailing.Mode, trailing.ActivationPct)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}
