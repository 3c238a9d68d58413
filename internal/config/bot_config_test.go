package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadBotConfigAppliesDefaults(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{"strategy": {"symbol": "BTCUSDT"}}`)

	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "1h", cfg.Strategy.Interval)
	assert.Equal(t, 200, cfg.Strategy.WindowSize)
	assert.Equal(t, 14, cfg.Strategy.ATRPeriod)
	assert.InDelta(t, 0.3, cfg.Strategy.LongThreshold, 1e-9)
	assert.InDelta(t, -0.3, cfg.Strategy.ShortThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Strategy.Regime.MinWindow)

	assert.InDelta(t, 1.0, cfg.Risk.RiskPct, 1e-9)
	assert.Equal(t, "1h", cfg.Risk.BaseTimeframe)
	assert.Equal(t, "4h", cfg.Risk.EscalatedTimeframe)
	assert.NotEmpty(t, cfg.Risk.RegimeRisk)

	assert.Equal(t, "bybit", cfg.Exchange.Name)
	assert.Equal(t, "key", cfg.Exchange.Bybit.APIKey)
}

func TestLoadBotConfigRequiresSymbol(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{"strategy": {"interval": "1h"}}`)

	_, err := LoadBotConfig(path)
	assert.Error(t, err)
}

func TestLoadBotConfigRequiresCredentials(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_SECRET", "")

	path := writeConfig(t, `{"strategy": {"symbol": "BTCUSDT"}}`)

	_, err := LoadBotConfig(path)
	assert.Error(t, err)
}

func TestLoadBotConfigRejectsBadThresholds(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{"strategy": {"symbol": "BTCUSDT", "long_threshold": 1.4}}`)

	_, err := LoadBotConfig(path)
	assert.Error(t, err)
}

func TestLoadBotConfigMissingFile(t *testing.T) {
	_, err := LoadBotConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadBacktestConfigSkipsCredentials(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_SECRET", "")

	path := writeConfig(t, `{"strategy": {"symbol": "BTCUSDT"}}`)

	cfg, err := LoadBacktestConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", cfg.Strategy.Symbol)
	assert.Equal(t, 200, cfg.Strategy.WindowSize)

	// The live loader still refuses the same file without credentials.
	_, err = LoadBotConfig(path)
	assert.Error(t, err)
}

func TestLoadBacktestConfigStillValidatesStrategy(t *testing.T) {
	path := writeConfig(t, `{"strategy": {"symbol": "BTCUSDT", "long_threshold": 1.4}}`)

	_, err := LoadBacktestConfig(path)
	assert.Error(t, err)
}

func TestLoadBotConfigOverlaysRegimeMultipliers(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{
		"strategy": {"symbol": "BTCUSDT"},
		"risk": {
			"regime_risk": {"TRENDING": 1.8},
			"regime_tp": {"QUIET": 0.9}
		}
	}`)

	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)

	defaults := position.DefaultConfig()
	assert.InDelta(t, 1.8, cfg.Risk.RegimeRisk[regime.RegimeTrending], 1e-9)
	assert.InDelta(t, defaults.RegimeRisk[regime.RegimeRanging], cfg.Risk.RegimeRisk[regime.RegimeRanging], 1e-9)
	assert.InDelta(t, 0.9, cfg.Risk.RegimeTP[regime.RegimeQuiet], 1e-9)
	assert.InDelta(t, defaults.RegimeTP[regime.RegimeTrending], cfg.Risk.RegimeTP[regime.RegimeTrending], 1e-9)
}

func TestLoadBotConfigOverlaysStrategyProfiles(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{
		"strategy": {
			"symbol": "BTCUSDT",
			"profiles": {
				"TRENDING": {
					"weights": {"rsi": 0, "macd": 0.5, "bollinger": 0, "ema_cross": 0.5, "adx_dmi": 0, "volume_spike": 0},
					"params": {"ema_cross": {"fast_period": 10, "slow_period": 30}}
				}
			}
		}
	}`)

	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)

	trending := cfg.Strategy.Profiles[regime.RegimeTrending]
	assert.InDelta(t, 0.5, trending.Weights.MACD, 1e-9)
	assert.InDelta(t, 0.0, trending.Weights.ADX, 1e-9)
	assert.Equal(t, 10, trending.Params.EMACross.FastPeriod)

	// Regimes the file does not mention keep the built-in profile.
	ranging := cfg.Strategy.Profiles[regime.RegimeRanging]
	assert.InDelta(t, 0.30, ranging.Weights.RSI, 1e-9)
}

func TestLoadBotConfigRejectsUnknownRegimeKey(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")

	path := writeConfig(t, `{
		"strategy": {"symbol": "BTCUSDT"},
		"risk": {"regime_risk": {"SIDEWAYS": 1.2}}
	}`)

	_, err := LoadBotConfig(path)
	assert.Error(t, err)
}
