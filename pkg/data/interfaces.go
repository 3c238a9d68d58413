package data

import (
	"time"

	"github.com/ducminhle1904/regime-trading-bot/pkg/types"
)

// Provider loads historical candles from some backing source.
type Provider interface {
	// LoadData loads candles from the given source (e.g. a file path).
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData checks the integrity of loaded candles.
	ValidateData(data []types.OHLCV) error

	// GetName returns a human-readable provider name.
	GetName() string
}

// Cache stores loaded candle series keyed by source.
type Cache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// CSVColumnMapping defines column positions and the timestamp format
// for a CSV candle file.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat is the common exchange-export layout:
// timestamp,open,high,low,close,volume with a space-separated datetime.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}

// FilterByDateRange returns the candles with timestamps inside [start, end].
func FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	var out []types.OHLCV
	for _, c := range data {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterLastPeriod returns the candles within the trailing period before the
// newest candle in the series.
func FilterLastPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if len(data) == 0 {
		return nil
	}
	cutoff := data[len(data)-1].Timestamp.Add(-period)
	for i, c := range data {
		if !c.Timestamp.Before(cutoff) {
			return data[i:]
		}
	}
	return nil
}
