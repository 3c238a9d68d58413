package indicators

import (
	"time"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// generateCandles produces count candles with closes from the step function
func generateCandles(count int, closeAt func(i int) float64) []types.OHLCV {
	data := make([]types.OHLCV, count)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		close := closeAt(i)
		data[i] = types.OHLCV{
			Open:      close * 0.999,
			High:      close * 1.004,
			Low:       close * 0.996,
			Close:     close,
			Volume:    1000.0,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}

func risingCandles(count int) []types.OHLCV {
	return generateCandles(count, func(i int) float64 { return 100.0 + float64(i) })
}

func fallingCandles(count int) []types.OHLCV {
	return generateCandles(count, func(i int) float64 { return 200.0 - float64(i) })
}

func flatCandles(count int) []types.OHLCV {
	return generateCandles(count, func(i int) float64 { return 100.0 })
}
