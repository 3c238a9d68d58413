package types

import "time"

// OHLCV is a single candle. Series are ordered oldest-first and append-only.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

type Ticker struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Balance is account state owned by the exchange; the core only reads it.
type Balance struct {
	Asset     string
	Total     float64
	Available float64
}

// FundingPayment is one entry of a symbol's funding rate history.
type FundingPayment struct {
	Rate      float64
	Timestamp time.Time
}
