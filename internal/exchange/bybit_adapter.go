package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	berrors "github.com/ducminhle1904/regime-trading-bot/internal/errors"
	"github.com/ducminhle1904/regime-trading-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// BybitAdapter adapts the Bybit v5 client to the Exchange interface.
type BybitAdapter struct {
	client *bybit.Client
}

// NewBybitAdapter creates a Bybit-backed Exchange.
func NewBybitAdapter(cfg BybitConfig) *BybitAdapter {
	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Testnet:   cfg.Testnet,
		Demo:      cfg.Demo,
	})
	return &BybitAdapter{client: client}
}

func (b *BybitAdapter) GetName() string {
	return fmt.Sprintf("bybit-%s", b.client.GetEnvironment())
}

// GetKlines fetches candles and returns them oldest-first. Bybit returns
// newest-first, so the result is re-sorted.
func (b *BybitAdapter) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	var klines []bybit.Kline
	err := b.client.Retry(ctx, func() error {
		var kerr error
		klines, kerr = b.client.GetKlines(ctx, bybit.KlineParams{
			Category: "linear",
			Symbol:   symbol,
			Interval: bybit.IntervalFromString(interval),
			Limit:    limit,
		})
		return kerr
	})
	if err != nil {
		return nil, b.convertError("get_klines", err)
	}

	result := make([]types.OHLCV, len(klines))
	for i, kline := range klines {
		result[i] = types.OHLCV{
			Timestamp: kline.StartTime,
			Open:      kline.OpenPrice,
			High:      kline.HighPrice,
			Low:       kline.LowPrice,
			Close:     kline.ClosePrice,
			Volume:    kline.Volume,
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (b *BybitAdapter) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := b.client.Retry(ctx, func() error {
		var perr error
		price, perr = b.client.GetLatestPrice(ctx, "linear", symbol)
		return perr
	})
	if err != nil {
		return 0, b.convertError("get_latest_price", err)
	}
	return price, nil
}

func (b *BybitAdapter) GetFundingRate(ctx context.Context, symbol string) (float64, time.Time, error) {
	rate, next, err := b.client.GetFundingRate(ctx, "linear", symbol)
	if err != nil {
		return 0, time.Time{}, b.convertError("get_funding_rate", err)
	}
	return rate, next, nil
}

func (b *BybitAdapter) GetBalance(ctx context.Context, asset string) (*types.Balance, error) {
	var balance *bybit.Balance
	err := b.client.Retry(ctx, func() error {
		var berr error
		balance, berr = b.client.GetCoinBalance(ctx, bybit.AccountTypeUnified, asset)
		return berr
	})
	if err != nil {
		return nil, b.convertError("get_balance", err)
	}
	return &types.Balance{
		Asset:     balance.Coin,
		Total:     balance.WalletBalance,
		Available: balance.AvailableToTrade,
	}, nil
}

func (b *BybitAdapter) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	lev := strconv.FormatFloat(leverage, 'f', -1, 64)
	if err := b.client.SetLeverage(ctx, "linear", symbol, lev, lev); err != nil {
		return b.convertError("set_leverage", err)
	}
	return nil
}

func (b *BybitAdapter) PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64, reduceOnly bool) (string, error) {
	bybitSide := bybit.OrderSideBuy
	if side == OrderSell {
		bybitSide = bybit.OrderSideSell
	}
	qty := strconv.FormatFloat(quantity, 'f', 6, 64)

	order, err := b.client.PlaceFuturesMarketOrder(ctx, "linear", symbol, bybitSide, qty, reduceOnly)
	if err != nil {
		return "", b.convertError("place_market_order", err)
	}
	return order.OrderID, nil
}

func (b *BybitAdapter) SetTradingStop(ctx context.Context, symbol string, stopLoss, takeProfit float64) error {
	sl := ""
	if stopLoss > 0 {
		sl = strconv.FormatFloat(stopLoss, 'f', 4, 64)
	}
	tp := ""
	if takeProfit > 0 {
		tp = strconv.FormatFloat(takeProfit, 'f', 4, 64)
	}
	err := b.client.Retry(ctx, func() error {
		return b.client.SetTradingStop(ctx, "linear", symbol, 0, tp, sl)
	})
	if err != nil {
		return b.convertError("set_trading_stop", err)
	}
	return nil
}

func (b *BybitAdapter) GetPosition(ctx context.Context, symbol string) (*PositionInfo, error) {
	positions, err := b.client.GetPositions(ctx, "linear", symbol)
	if err != nil {
		return nil, b.convertError("get_position", err)
	}
	for _, p := range positions {
		if p.Symbol != symbol || p.Size == 0 {
			continue
		}
		side := OrderBuy
		if p.Side == "Sell" {
			side = OrderSell
		}
		return &PositionInfo{
			Symbol:        p.Symbol,
			Side:          side,
			Size:          p.Size,
			AvgPrice:      p.AvgPrice,
			Leverage:      p.Leverage,
			StopLoss:      p.StopLoss,
			TakeProfit:    p.TakeProfit,
			UnrealisedPnL: p.UnrealisedPnl,
		}, nil
	}
	return nil, nil
}

// convertError maps venue errors onto the bot error taxonomy.
func (b *BybitAdapter) convertError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case bybit.IsAuthenticationError(err):
		return berrors.WrapError(err, berrors.ErrorCategoryCredentials, "bybit", operation)
	case bybit.IsInsufficientBalanceError(err):
		return berrors.WrapError(err, berrors.ErrorCategorySizing, "bybit", operation)
	case bybit.IsRetryableError(err):
		return berrors.WrapError(err, berrors.ErrorCategoryTemporary, "bybit", operation)
	default:
		return berrors.WrapError(err, berrors.ErrorCategoryExchange, "bybit", operation)
	}
}
