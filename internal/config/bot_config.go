package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ducminhle1904/regime-trading-bot/internal/exchange"
	"github.com/ducminhle1904/regime-trading-bot/internal/position"
	"github.com/ducminhle1904/regime-trading-bot/internal/regime"
	"github.com/ducminhle1904/regime-trading-bot/internal/strategy"
)

// BotConfig is the complete configuration for the live trading bot.
type BotConfig struct {
	Strategy StrategyConfig `json:"strategy"`

	Exchange exchange.ExchangeConfig `json:"exchange"`

	Risk position.Config `json:"risk"`

	Notifications *NotificationConfig `json:"notifications,omitempty"`

	Monitoring MonitoringConfig `json:"monitoring"`

	// StateDir is where position snapshots are persisted across restarts.
	StateDir string `json:"state_dir,omitempty"`
}

// StrategyConfig holds decision-engine configuration.
type StrategyConfig struct {
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	WindowSize int    `json:"window_size"`

	// ATR period used for stop placement and the trailing floor.
	ATRPeriod int `json:"atr_period"`

	// Fusion dead zone: |score| must exceed the threshold to trade.
	LongThreshold  float64 `json:"long_threshold"`
	ShortThreshold float64 `json:"short_threshold"`

	// Regime classifier settings.
	Regime regime.Config `json:"regime"`

	// Profiles overrides the per-regime strategy weight and parameter
	// tables, keyed by regime name. Regimes left out keep the built-in
	// profile.
	Profiles strategy.ProfileTable `json:"profiles,omitempty"`
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	Enabled       bool   `json:"enabled"`
	TelegramToken string `json:"telegram_token,omitempty"`
	TelegramChat  string `json:"telegram_chat,omitempty"`
}

// MonitoringConfig holds the metrics and health endpoints.
type MonitoringConfig struct {
	Enabled        bool `json:"enabled"`
	PrometheusPort int  `json:"prometheus_port"`
	HealthPort     int  `json:"health_port"`
}

// LoadBotConfig loads configuration from a JSON file. Bare names are
// resolved against the configs/ directory.
func LoadBotConfig(configFile string) (*BotConfig, error) {
	config, err := readConfigFile(configFile)
	if err != nil {
		return nil, err
	}

	config.setDefaults()
	config.applyEnvCredentials()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// LoadBacktestConfig loads the same file format for offline simulation.
// Strategy and risk settings are validated, but exchange and telegram
// credentials are not required since nothing talks to a venue.
func LoadBacktestConfig(configFile string) (*BotConfig, error) {
	config, err := readConfigFile(configFile)
	if err != nil {
		return nil, err
	}

	config.setDefaults()

	if err := config.validateCore(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func readConfigFile(configFile string) (*BotConfig, error) {
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	config := &BotConfig{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// DefaultBotConfig returns a runnable config for the given symbol.
func DefaultBotConfig(symbol string) *BotConfig {
	config := &BotConfig{}
	config.Strategy.Symbol = symbol
	config.setDefaults()
	return config
}

func (c *BotConfig) setDefaults() {
	if c.Strategy.Interval == "" {
		c.Strategy.Interval = "1h"
	}
	if c.Strategy.WindowSize == 0 {
		c.Strategy.WindowSize = 200
	}
	if c.Strategy.ATRPeriod == 0 {
		c.Strategy.ATRPeriod = 14
	}
	if c.Strategy.LongThreshold == 0 {
		c.Strategy.LongThreshold = strategy.DefaultFusionConfig().LongThreshold
	}
	if c.Strategy.ShortThreshold == 0 {
		c.Strategy.ShortThreshold = strategy.DefaultFusionConfig().ShortThreshold
	}
	if c.Strategy.Regime.MinWindow == 0 {
		c.Strategy.Regime = regime.DefaultConfig()
	}

	// File-supplied profiles overlay the built-ins per regime.
	profiles := strategy.DefaultProfiles()
	for r, p := range c.Strategy.Profiles {
		profiles[r] = p
	}
	c.Strategy.Profiles = profiles

	riskDefaults := position.DefaultConfig()
	if c.Risk.RiskPct == 0 {
		c.Risk = riskDefaults
	}
	if c.Risk.StopATRMult == 0 {
		c.Risk.StopATRMult = riskDefaults.StopATRMult
	}
	if c.Risk.TPFloorATRMult == 0 {
		c.Risk.TPFloorATRMult = riskDefaults.TPFloorATRMult
	}
	if c.Risk.Trailing.Mode == "" {
		c.Risk.Trailing = riskDefaults.Trailing
	}
	c.Risk.RegimeRisk = overlayMultipliers(riskDefaults.RegimeRisk, c.Risk.RegimeRisk)
	c.Risk.RegimeTP = overlayMultipliers(riskDefaults.RegimeTP, c.Risk.RegimeTP)
	if c.Risk.BaseTimeframe == "" {
		c.Risk.BaseTimeframe = c.Strategy.Interval
	}
	if c.Risk.EscalatedTimeframe == "" {
		c.Risk.EscalatedTimeframe = riskDefaults.EscalatedTimeframe
	}
	if c.Risk.EscalationProfitPct == 0 {
		c.Risk.EscalationProfitPct = riskDefaults.EscalationProfitPct
	}

	if c.Exchange.Name == "" {
		c.Exchange.Name = "bybit"
	}

	if c.StateDir == "" {
		c.StateDir = "state"
	}

	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8081
	}
}

// overlayMultipliers lays file-supplied per-regime multipliers over the
// defaults so a partial map tunes only the regimes it names.
func overlayMultipliers(defaults, overrides map[regime.Regime]float64) map[regime.Regime]float64 {
	merged := make(map[regime.Regime]float64, len(defaults))
	for r, v := range defaults {
		merged[r] = v
	}
	for r, v := range overrides {
		merged[r] = v
	}
	return merged
}

// applyEnvCredentials fills credentials from the environment when the
// config file leaves them blank. Secrets belong in .env, not in JSON.
func (c *BotConfig) applyEnvCredentials() {
	if strings.EqualFold(c.Exchange.Name, "bybit") {
		if c.Exchange.Bybit == nil {
			c.Exchange.Bybit = &exchange.BybitConfig{Demo: true}
		}
		if c.Exchange.Bybit.APIKey == "" {
			c.Exchange.Bybit.APIKey = os.Getenv("BYBIT_API_KEY")
		}
		if c.Exchange.Bybit.APISecret == "" {
			c.Exchange.Bybit.APISecret = os.Getenv("BYBIT_API_SECRET")
		}
	}

	if c.Notifications != nil && c.Notifications.Enabled {
		if c.Notifications.TelegramToken == "" {
			c.Notifications.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
		}
		if c.Notifications.TelegramChat == "" {
			c.Notifications.TelegramChat = os.Getenv("TELEGRAM_CHAT_ID")
		}
	}
}

// validateCore checks the venue-independent settings.
func (c *BotConfig) validateCore() error {
	if c.Strategy.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Strategy.WindowSize < c.Strategy.Regime.MinWindow {
		return fmt.Errorf("window size %d is below the regime minimum %d",
			c.Strategy.WindowSize, c.Strategy.Regime.MinWindow)
	}
	if c.Strategy.LongThreshold <= 0 || c.Strategy.LongThreshold >= 1 {
		return fmt.Errorf("long threshold must be in (0, 1), got %.2f", c.Strategy.LongThreshold)
	}
	if c.Strategy.ShortThreshold >= 0 || c.Strategy.ShortThreshold <= -1 {
		return fmt.Errorf("short threshold must be in (-1, 0), got %.2f", c.Strategy.ShortThreshold)
	}

	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk config: %w", err)
	}
	return nil
}

func (c *BotConfig) validate() error {
	if err := c.validateCore(); err != nil {
		return err
	}

	if err := exchange.ValidateConfig(c.Exchange); err != nil {
		return fmt.Errorf("exchange config: %w", err)
	}

	if c.Notifications != nil && c.Notifications.Enabled {
		if c.Notifications.TelegramToken == "" || c.Notifications.TelegramChat == "" {
			return fmt.Errorf("telegram token and chat id are required when notifications are enabled")
		}
	}
	return nil
}
