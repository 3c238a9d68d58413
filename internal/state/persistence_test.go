package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

func sampleSnapshot() Snapshot {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Snapshot{
		Position: position.Position{
			ID:            "BTCUSDT-1",
			Symbol:        "BTCUSDT",
			Side:          position.SideLong,
			Status:        position.StatusTrailingActive,
			OpenTime:      t0,
			EntryPrice:    100,
			Quantity:      2.5,
			Leverage:      5,
			Margin:        50,
			EntryATR:      1,
			StopLoss:      101.5,
			InitialStop:   98,
			TakeProfit:    105,
			HighWaterMark: 103,
			LowWaterMark:  99.5,
			Timeframe:     "1h",
			OpenRegime:    regime.RegimeTrending,
		},
		FundingDue: t0.Add(4 * time.Hour),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), "BTCUSDT")
	require.NoError(t, err)

	snapshot := sampleSnapshot()
	require.NoError(t, store.Save(snapshot))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, snapshot.Position, loaded.Position)
	assert.True(t, snapshot.FundingDue.Equal(loaded.FundingDue))
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	store, err := NewStore(t.TempDir(), "BTCUSDT")
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadRejectsForeignSymbol(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "BTCUSDT")
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleSnapshot()))

	// Same file read by a store bound to a different symbol.
	other, err := NewStore(dir, "ETHUSDT")
	require.NoError(t, err)
	require.NoError(t, os.Rename(
		filepath.Join(dir, "BTCUSDT_position.json"),
		filepath.Join(dir, "ETHUSDT_position.json"),
	))
	_, err = other.Load()
	assert.Error(t, err)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "BTCUSDT")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "BTCUSDT_position.json"), []byte("{not json"), 0o644))
	_, err = store.Load()
	assert.Error(t, err)
}

func TestClearRemovesSnapshot(t *testing.T) {
	store, err := NewStore(t.TempDir(), "BTCUSDT")
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleSnapshot()))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing twice is fine.
	assert.NoError(t, store.Clear())
}
