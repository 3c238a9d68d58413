package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// AccountType represents the Bybit account type
type AccountType string

const (
	AccountTypeUnified AccountType = "UNIFIED"
)

// GetCoinBalance fetches the balance of a single coin in the unified account
func (c *Client) GetCoinBalance(ctx context.Context, accountType AccountType, coin string) (*Balance, error) {
	if accountType == "" {
		accountType = AccountTypeUnified
	}

	params := map[string]interface{}{
		"accountType": string(accountType),
		"coin":        coin,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	balance, err := c.parseWalletResponse(result, coin)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance response: %w", err)
	}
	return balance, nil
}

func (c *Client) parseWalletResponse(response interface{}, coin string) (*Balance, error) {
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

	var walletResult struct {
		List []struct {
			AccountType string `json:"accountType"`
			Coin        []struct {
				Coin             string `json:"coin"`
				Equity           string `json:"equity"`
				WalletBalance    string `json:"walletBalance"`
				AvailableToTrade string `json:"availableToTrade"`
				UnrealisedPnl    string `json:"unrealisedPnl"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet result: %w", err)
	}

	for _, account := range walletResult.List {
		for _, c := range account.Coin {
			if c.Coin == coin {
				return &Balance{
					Coin:             c.Coin,
					Equity:           parseFloat64(c.Equity),
					WalletBalance:    parseFloat64(c.WalletBalance),
					AvailableToTrade: parseFloat64(c.AvailableToTrade),
					UnrealisedPnl:    parseFloat64(c.UnrealisedPnl),
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("coin %s not found in wallet", coin)
}
