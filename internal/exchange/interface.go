package exchange

import (
	"context"
	"time"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// OrderSide is the direction of an order.
type OrderSide int

const (
	OrderBuy OrderSide = iota
	OrderSell
)

func (s OrderSide) String() string {
	if s == OrderSell {
		return "Sell"
	}
	return "Buy"
}

// Exchange is the surface the bot needs from a perpetual-futures venue.
type Exchange interface {
	GetName() string

	// Market data
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
	GetFundingRate(ctx context.Context, symbol string) (float64, time.Time, error)

	// Account
	GetBalance(ctx context.Context, asset string) (*types.Balance, error)

	// Trading
	SetLeverage(ctx context.Context, symbol string, leverage float64) error
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64, reduceOnly bool) (orderID string, err error)
	SetTradingStop(ctx context.Context, symbol string, stopLoss, takeProfit float64) error
	GetPosition(ctx context.Context, symbol string) (*PositionInfo, error)
}

// PositionInfo mirrors the venue's view of an open position.
type PositionInfo struct {
	Symbol        string
	Side          OrderSide
	Size          float64
	AvgPrice      float64
	Leverage      float64
	StopLoss      float64
	TakeProfit    float64
	UnrealisedPnL float64
}

// ExchangeConfig selects and configures a venue.
type ExchangeConfig struct {
	Name  string       `json:"name"`
	Bybit *BybitConfig `json:"bybit,omitempty"`
}

// BybitConfig holds Bybit credentials and environment selection.
type BybitConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Testnet   bool   `json:"testnet"`
	Demo      bool   `json:"demo"`
}
