package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// PlaceFuturesMarketOrder places a market order on a linear perpetual.
// positionIdx 0 is one-way mode. reduceOnly orders close exposure only.
func (c *Client) PlaceFuturesMarketOrder(ctx context.Context, category, symbol string, side OrderSide, qty string, reduceOnly bool) (*Order, error) {
	if category == "" {
		category = "linear"
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if qty == "" {
		return nil, fmt.Errorf("qty is required")
	}

	apiParams := map[string]interface{}{
		"category":  category,
		"symbol":    symbol,
		"side":      string(side),
		"orderType": "Market",
		"qty":       qty,
	}
	if reduceOnly {
		apiParams["reduceOnly"] = true
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place futures order: %w", err)
	}

	order, err := c.parseOrderResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	return order, nil
}

// SetLeverage sets the leverage for a linear perpetual symbol
func (c *Client) SetLeverage(ctx context.Context, category, symbol string, buyLeverage, sellLeverage string) error {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category":     category,
		"symbol":       symbol,
		"buyLeverage":  buyLeverage,
		"sellLeverage": sellLeverage,
	}

	_, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
	if err != nil {
		return fmt.Errorf("failed to set leverage: %w", err)
	}
	return nil
}

// SetTradingStop sets take profit and stop loss for a position
func (c *Client) SetTradingStop(ctx context.Context, category, symbol string, positionIdx int, takeProfit, stopLoss string) error {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category":    category,
		"symbol":      symbol,
		"positionIdx": positionIdx,
	}
	if takeProfit != "" {
		params["takeProfit"] = takeProfit
	}
	if stopLoss != "" {
		params["stopLoss"] = stopLoss
	}

	_, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionTradingStop(ctx)
	if err != nil {
		return fmt.Errorf("failed to set trading stop: %w", err)
	}
	return nil
}

// GetPositions fetches the position list for a symbol
func (c *Client) GetPositions(ctx context.Context, category, symbol string) ([]PositionInfo, error) {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	positions, err := c.parsePositionsResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse positions response: %w", err)
	}
	return positions, nil
}

// parseOrderResponse parses the place-order API response
func (c *Client) parseOrderResponse(response interface{}) (*Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var orderResult struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := json.Unmarshal(resultBytes, &orderResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order result: %w", err)
	}

	return &Order{
		OrderID:     orderResult.OrderID,
		OrderLinkID: orderResult.OrderLinkID,
	}, nil
}

// parsePositionsResponse parses the positions list API response
func (c *Client) parsePositionsResponse(response interface{}) ([]PositionInfo, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var positionsResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			Leverage      string `json:"leverage"`
			StopLoss      string `json:"stopLoss"`
			TakeProfit    string `json:"takeProfit"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			UpdatedTime   string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &positionsResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal positions result: %w", err)
	}

	var positions []PositionInfo
	for _, item := range positionsResult.List {
		positions = append(positions, PositionInfo{
			Symbol:        item.Symbol,
			Side:          item.Side,
			Size:          parseFloat64(item.Size),
			AvgPrice:      parseFloat64(item.AvgPrice),
			Leverage:      parseFloat64(item.Leverage),
			StopLoss:      parseFloat64(item.StopLoss),
			TakeProfit:    parseFloat64(item.TakeProfit),
			UnrealisedPnl: parseFloat64(item.UnrealisedPnl),
			UpdatedTime:   parseTimestamp(item.UpdatedTime),
		})
	}
	return positions, nil
}
