package bybit

import (
	"strconv"
	"time"
)

// Kline represents one candle as returned by the v5 market kline endpoint.
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// KlineInterval represents supported kline intervals
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval4h  KlineInterval = "240"
	Interval1d  KlineInterval = "D"
)

// IntervalFromString maps common interval notation ("1h", "4h") to the
// Bybit API form.
func IntervalFromString(interval string) KlineInterval {
	switch interval {
	case "1m":
		return Interval1m
	case "5m":
		return Interval5m
	case "15m":
		return Interval15m
	case "30m":
		return Interval30m
	case "1h":
		return Interval1h
	case "4h":
		return Interval4h
	case "1d", "D":
		return Interval1d
	default:
		return KlineInterval(interval)
	}
}

// Balance represents a single coin balance in the unified account.
type Balance struct {
	Coin             string
	Equity           float64
	WalletBalance    float64
	AvailableToTrade float64
	UnrealisedPnl    float64
}

// PositionInfo represents one row of the v5 position list.
type PositionInfo struct {
	Symbol        string
	Side          string // "Buy", "Sell" or "" when flat
	Size          float64
	AvgPrice      float64
	Leverage      float64
	StopLoss      float64
	TakeProfit    float64
	UnrealisedPnl float64
	UpdatedTime   time.Time
}

// Order represents an accepted order.
type Order struct {
	OrderID     string
	OrderLinkID string
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseTimestamp(ts string) time.Time {
	ms := parseInt64(ts)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
